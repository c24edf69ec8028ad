// Package convert 提供宽松的数值转换，交易所接口的字符串字段统一走这里。
package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToFloat64 尽力把任意值转成 float64，失败返回 0。
func ToFloat64(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}
