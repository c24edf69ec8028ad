package backtest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"alphatrade/internal/domain"
	"alphatrade/internal/market"
)

// PriceRow 是价格序列的一行。Timestamp 为字符串，
// 解析失败属于 InvalidDataError（数据问题而非参数问题）。
type PriceRow struct {
	Timestamp string  `json:"timestamp"`
	Symbol    string  `json:"symbol"`
	Open      float64 `json:"open,omitempty"`
	High      float64 `json:"high,omitempty"`
	Low       float64 `json:"low,omitempty"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume,omitempty"`
}

// SignalRow 是信号序列的一行，side 必须是 BUY/SELL（大小写敏感）。
type SignalRow struct {
	Timestamp string  `json:"timestamp"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp 宽松解析常见时间格式，兼容 unix 秒/毫秒数字。
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("时间戳为空")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// 13 位按毫秒、10 位按秒处理
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("无法解析时间戳: %q", raw)
}

type priceTick struct {
	ts  time.Time
	seq int
	row PriceRow
}

type signalTick struct {
	ts   time.Time
	seq  int
	side domain.OrderSide
	row  SignalRow
}

// columnCollector 汇总整个数据集里缺失的列名，去重保序。
type columnCollector struct {
	seen    map[string]bool
	columns []string
}

func (c *columnCollector) add(col string) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[col] {
		return
	}
	c.seen[col] = true
	c.columns = append(c.columns, col)
}

// validatePrices 在建立任何模拟状态之前校验价格序列。
func validatePrices(rows []PriceRow) ([]priceTick, error) {
	var missing columnCollector
	for _, row := range rows {
		if strings.TrimSpace(row.Timestamp) == "" {
			missing.add("timestamp")
		}
		if strings.TrimSpace(row.Symbol) == "" {
			missing.add("symbol")
		}
		if row.Close == 0 {
			missing.add("close")
		}
	}
	if len(missing.columns) > 0 {
		return nil, &InvalidDataError{
			Dataset: "prices",
			Reason:  "缺少必需列",
			Columns: missing.columns,
		}
	}
	out := make([]priceTick, 0, len(rows))
	for i, row := range rows {
		ts, err := ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, &InvalidDataError{
				Dataset: "prices",
				Reason:  fmt.Sprintf("第 %d 行时间戳非法 (%v)", i, err),
			}
		}
		out = append(out, priceTick{ts: ts, seq: i, row: row})
	}
	return out, nil
}

// validateSignals 校验信号序列，收集全部越界 side 取值一次性报告。
func validateSignals(rows []SignalRow) ([]signalTick, error) {
	var missing columnCollector
	for _, row := range rows {
		if strings.TrimSpace(row.Timestamp) == "" {
			missing.add("timestamp")
		}
		if strings.TrimSpace(row.Symbol) == "" {
			missing.add("symbol")
		}
		if strings.TrimSpace(row.Side) == "" {
			missing.add("side")
		}
		if row.Quantity == 0 {
			missing.add("quantity")
		}
	}
	if len(missing.columns) > 0 {
		return nil, &InvalidDataError{
			Dataset: "signals",
			Reason:  "缺少必需列",
			Columns: missing.columns,
		}
	}
	out := make([]signalTick, 0, len(rows))
	var invalid []string
	seen := make(map[string]bool)
	for i, row := range rows {
		ts, err := ParseTimestamp(row.Timestamp)
		if err != nil {
			return nil, &InvalidDataError{
				Dataset: "signals",
				Reason:  fmt.Sprintf("第 %d 行时间戳非法 (%v)", i, err),
			}
		}
		side, err := domain.ParseSide(row.Side)
		if err != nil {
			if !seen[row.Side] {
				seen[row.Side] = true
				invalid = append(invalid, row.Side)
			}
			continue
		}
		out = append(out, signalTick{ts: ts, seq: i, side: side, row: row})
	}
	if len(invalid) > 0 {
		return nil, &InvalidDataError{
			Dataset: "signals",
			Reason:  "side 取值非法",
			Values:  invalid,
		}
	}
	return out, nil
}

// sortTicks 按时间升序稳定排序（同刻保持输入顺序）。
func sortPriceTicks(ticks []priceTick) {
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].ts.Before(ticks[j].ts) })
}

func sortSignalTicks(ticks []signalTick) {
	sort.SliceStable(ticks, func(i, j int) bool { return ticks[i].ts.Before(ticks[j].ts) })
}

// PricesFromCandles 把 K 线转换为引擎可用的价格序列。
func PricesFromCandles(symbol string, candles []market.Candle) []PriceRow {
	out := make([]PriceRow, 0, len(candles))
	for _, c := range candles {
		ts := c.CloseTime
		if ts == 0 {
			ts = c.OpenTime
		}
		out = append(out, PriceRow{
			Timestamp: strconv.FormatInt(ts, 10),
			Symbol:    symbol,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	return out
}
