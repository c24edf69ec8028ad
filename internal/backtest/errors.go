package backtest

import (
	"fmt"
	"strings"
)

// InvalidDataError 表示输入数据形状或取值非法，
// 在任何模拟状态建立之前抛出，并携带完整的违规描述。
type InvalidDataError struct {
	Reason  string
	Dataset string   // "prices" | "signals"
	Columns []string // 缺失的列名
	Values  []string // 越界的取值
}

func (e *InvalidDataError) Error() string {
	msg := e.Reason
	if len(e.Columns) > 0 {
		msg = fmt.Sprintf("%s: [%s]", msg, strings.Join(e.Columns, ", "))
	}
	if len(e.Values) > 0 {
		msg = fmt.Sprintf("%s: [%s]", msg, strings.Join(e.Values, ", "))
	}
	if e.Dataset != "" {
		msg = e.Dataset + " " + msg
	}
	return msg
}

// BacktestError 表示数据形状合法但内容无法驱动模拟
// （典型：日期过滤后价格序列为空）。
type BacktestError struct {
	Reason string
}

func (e *BacktestError) Error() string { return e.Reason }
