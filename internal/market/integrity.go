package market

import "context"

// Gap 表示一段缺失的 K 线区间（开盘时间，闭区间）。
type Gap struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// IntegrityReport 对比网格期望与本地已有数据给出缺口清单。
type IntegrityReport struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Expected  int64  `json:"expected"`
	Present   int64  `json:"present"`
	Gaps      []Gap  `json:"gaps,omitempty"`
}

func (r IntegrityReport) Complete() bool {
	return r.Expected > 0 && len(r.Gaps) == 0
}

// CheckIntegrity 扫描闭区间内的 open_time，把连续缺失折叠成 Gap。
// start/end 必须已对齐到周期网格。
func (s *Store) CheckIntegrity(ctx context.Context, symbol, timeframe string, tf Timeframe, start, end int64) (IntegrityReport, error) {
	report := IntegrityReport{
		Symbol:    symbol,
		Timeframe: timeframe,
		Start:     start,
		End:       end,
		Expected:  tf.ExpectedBars(start, end),
	}
	if report.Expected <= 0 {
		return report, nil
	}
	present, err := s.OpenTimes(ctx, symbol, timeframe, start, end)
	if err != nil {
		return IntegrityReport{}, err
	}
	report.Present = int64(len(present))

	step := tf.StepMillis()
	idx := 0
	var gapStart int64 = -1
	for ts := start; ts <= end; ts += step {
		for idx < len(present) && present[idx] < ts {
			idx++
		}
		have := idx < len(present) && present[idx] == ts
		if !have && gapStart < 0 {
			gapStart = ts
		}
		if have && gapStart >= 0 {
			report.Gaps = append(report.Gaps, Gap{From: gapStart, To: ts - step})
			gapStart = -1
		}
	}
	if gapStart >= 0 {
		report.Gaps = append(report.Gaps, Gap{From: gapStart, To: end})
	}
	return report, nil
}
