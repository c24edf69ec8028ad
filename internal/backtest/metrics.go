package backtest

import "math"

// 年化常数沿用日线口径 √252，对任意 K 线频率统一套用（遗留口径）。
const annualizationFactor = 252

// deriveMetrics 从最终的资金曲线和成交日志推导全部绩效指标。
// 纯函数式推导，只依赖这两份数据。
func deriveMetrics(r *Result) {
	initial := r.InitialCapital
	final := r.FinalCapital

	if initial != 0 {
		r.TotalReturn = (final - initial) / initial * 100
	}
	r.TotalPnL = final - initial

	r.SharpeRatio = sharpeRatio(r.EquityCurve)
	r.MaxDrawdown = maxDrawdown(r.EquityCurve)

	var winning, losing []float64
	var grossProfit, grossLoss float64
	for _, t := range r.Trades {
		switch {
		case t.PnL > 0:
			winning = append(winning, t.PnL)
			grossProfit += t.PnL
		case t.PnL < 0:
			losing = append(losing, t.PnL)
			grossLoss += -t.PnL
		}
	}

	r.TotalTrades = len(r.Trades)
	r.WinningTrades = len(winning)
	r.LosingTrades = len(losing)
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	r.AverageWin = mean(winning)
	r.AverageLoss = mean(losing)
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	}
}

// sharpeRatio 基于逐段收益率（含种子值）计算，总体标准差，
// 不足两个收益观测或零波动时返回 0。
func sharpeRatio(equity []float64) float64 {
	returns := periodReturns(equity)
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sd := stddev(returns, m)
	if sd <= 0 {
		return 0
	}
	return m / sd * math.Sqrt(annualizationFactor)
}

// maxDrawdown 返回相对滚动峰值的最大回撤百分比（含种子值）。
func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	runningMax := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > runningMax {
			runningMax = v
		}
		if runningMax != 0 {
			dd := (v - runningMax) / runningMax * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return math.Abs(worst)
}

func periodReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (equity[i]-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev 为总体标准差（分母 n）。
func stddev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
