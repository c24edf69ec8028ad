package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe 是回测与行情拉取共用的周期定义，
// Interval 为交易所接口使用的周期字符串。
type Timeframe struct {
	Key      string
	Duration time.Duration
	Interval string
}

var timeframes = map[string]Timeframe{
	"1m":  {Key: "1m", Duration: time.Minute, Interval: "1m"},
	"5m":  {Key: "5m", Duration: 5 * time.Minute, Interval: "5m"},
	"15m": {Key: "15m", Duration: 15 * time.Minute, Interval: "15m"},
	"30m": {Key: "30m", Duration: 30 * time.Minute, Interval: "30m"},
	"1h":  {Key: "1h", Duration: time.Hour, Interval: "1h"},
	"4h":  {Key: "4h", Duration: 4 * time.Hour, Interval: "4h"},
	"1d":  {Key: "1d", Duration: 24 * time.Hour, Interval: "1d"},
	"1w":  {Key: "1w", Duration: 7 * 24 * time.Hour, Interval: "1w"},
}

// ParseTimeframe 返回标准化的周期定义，不区分大小写。
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	tf, ok := timeframes[key]
	if !ok {
		return Timeframe{}, fmt.Errorf("不支持的周期: %s", input)
	}
	return tf, nil
}

// SupportedTimeframes 返回全部受支持的周期 key（排序后）。
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(timeframes))
	for k := range timeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (tf Timeframe) StepMillis() int64 {
	return tf.Duration.Milliseconds()
}

func alignDown(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	rem := ts % step
	if rem < 0 {
		rem += step
	}
	return ts - rem
}

// AlignRange 把毫秒时间戳对齐到周期网格，并保证 start<=end。
func (tf Timeframe) AlignRange(start, end int64) (int64, int64) {
	step := tf.StepMillis()
	if end < start {
		start, end = end, start
	}
	s := alignDown(start, step)
	e := alignDown(end, step)
	if e < s {
		e = s
	}
	return s, e
}

// ExpectedBars 计算闭区间内按网格应有的 K 线数量。
func (tf Timeframe) ExpectedBars(start, end int64) int64 {
	if end < start {
		return 0
	}
	step := tf.StepMillis()
	if step == 0 {
		return 0
	}
	return (end-start)/step + 1
}
