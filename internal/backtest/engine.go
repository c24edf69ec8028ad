package backtest

import (
	"math"
	"sort"
	"time"

	"alphatrade/internal/domain"
)

// EngineConfig 是引擎的全部外部配置。
type EngineConfig struct {
	// Slippage 为名义滑点比例，实际滑点随单量线性放大。
	Slippage float64 `json:"slippage"`
	// Commission 按成交名义额收取。
	Commission float64 `json:"commission"`
	// FundingRate 为每 8 小时资金费率，模拟中近似按每 3 根 K 线收取一次。
	FundingRate float64 `json:"funding_rate"`
}

// Engine 把价格序列 + 信号序列按时间重放为资金曲线与绩效指标。
// 每次 Run 构造全新状态，实例可被并发的多次 Run 复用。
type Engine struct {
	slippage    float64
	commission  float64
	fundingRate float64
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		slippage:    cfg.Slippage,
		commission:  cfg.Commission,
		fundingRate: cfg.FundingRate,
	}
}

// RunOptions 限定回测时间窗（零值表示不限制，闭区间）。
type RunOptions struct {
	Start time.Time
	End   time.Time
}

// Run 执行回测。校验失败返回 *InvalidDataError，
// 过滤后无价格数据返回 *BacktestError；中途不产生部分结果。
func (e *Engine) Run(prices []PriceRow, signals []SignalRow, initialCapital float64, opts RunOptions) (*Result, error) {
	priceTicks, err := validatePrices(prices)
	if err != nil {
		return nil, err
	}
	signalTicks, err := validateSignals(signals)
	if err != nil {
		return nil, err
	}

	priceTicks = filterPriceTicks(priceTicks, opts)
	signalTicks = filterSignalTicks(signalTicks, opts)
	if len(priceTicks) == 0 {
		return nil, &BacktestError{Reason: "指定区间内没有价格数据"}
	}

	sortPriceTicks(priceTicks)
	sortSignalTicks(signalTicks)

	capital := initialCapital
	positions := make(map[string]*domain.Position)
	var trades []TradeRecord
	equityCurve := []float64{initialCapital}

	signalIdx := 0
	for i := 0; i < len(priceTicks); {
		ts := priceTicks[i].ts

		// 同刻的全部价格行
		closes := make(map[string]float64)
		for i < len(priceTicks) && priceTicks[i].ts.Equal(ts) {
			// 同刻同 symbol 出现多行时以首行为准
			if _, ok := closes[priceTicks[i].row.Symbol]; !ok {
				closes[priceTicks[i].row.Symbol] = priceTicks[i].row.Close
			}
			i++
		}

		// 1) 按收盘价重新标记持仓
		for symbol, pos := range positions {
			if mark, ok := closes[symbol]; ok {
				pos.MarkPrice = mark
				pos.UpdatePnL()
			}
		}

		// 2) 处理同刻信号（信号时间早于当前价格刻的直接跳过，
		//    与逐刻匹配语义一致：没有对应价格刻的信号不会成交）
		for signalIdx < len(signalTicks) && signalTicks[signalIdx].ts.Before(ts) {
			signalIdx++
		}
		for signalIdx < len(signalTicks) && signalTicks[signalIdx].ts.Equal(ts) {
			sig := signalTicks[signalIdx]
			signalIdx++
			closePrice, ok := closes[sig.row.Symbol]
			if !ok {
				continue
			}
			e.applySignal(ts, sig, closePrice, &capital, positions, &trades)
		}

		// 3) 资金费：按已处理 K 线计数近似 8 小时周期（遗留口径）
		if len(equityCurve)%3 == 0 {
			for _, pos := range positions {
				funding := math.Abs(pos.Size) * pos.MarkPrice * e.fundingRate
				if pos.Size > 0 {
					capital -= funding
				} else {
					capital += funding
				}
				pos.FundingPaid += funding
			}
		}

		// 4) 资金曲线快照
		totalEquity := capital
		for _, pos := range positions {
			totalEquity += pos.UnrealizedPnL
		}
		equityCurve = append(equityCurve, totalEquity)
	}

	finalCapital := equityCurve[len(equityCurve)-1]

	start := opts.Start
	if start.IsZero() {
		start = priceTicks[0].ts
	}
	end := opts.End
	if end.IsZero() {
		end = priceTicks[len(priceTicks)-1].ts
	}

	open := make([]domain.Position, 0, len(positions))
	for _, pos := range positions {
		open = append(open, *pos)
	}
	sort.Slice(open, func(a, b int) bool { return open[a].Symbol < open[b].Symbol })

	result := &Result{
		InitialCapital: initialCapital,
		FinalCapital:   finalCapital,
		EquityCurve:    equityCurve,
		Trades:         trades,
		OpenPositions:  open,
		StartDate:      start,
		EndDate:        end,
	}
	deriveMetrics(result)
	return result, nil
}

// applySignal 执行单条信号：滑点成交、资金闸门、仓位演化与资金更新。
func (e *Engine) applySignal(ts time.Time, sig signalTick, closePrice float64, capital *float64, positions map[string]*domain.Position, trades *[]TradeRecord) {
	symbol := sig.row.Symbol
	quantity := sig.row.Quantity

	executionPrice := e.applySlippage(closePrice, sig.side, quantity)
	cost := executionPrice * quantity
	commissionCost := cost * e.commission
	totalCost := cost + commissionCost

	// 资金不足的买单整单放弃：不产生部分成交，也不记录
	if sig.side == domain.SideBuy && totalCost > *capital {
		return
	}

	pos, exists := positions[symbol]
	if !exists {
		size := quantity
		if sig.side == domain.SideSell {
			size = -quantity
		}
		positions[symbol] = domain.NewPosition(symbol, size, executionPrice)
	} else {
		var newSize float64
		if sig.side == domain.SideBuy {
			newSize = pos.Size + quantity
		} else {
			newSize = pos.Size - quantity
		}

		// 减仓或反手：按平掉的数量实现盈亏
		if (pos.Size > 0 && newSize < pos.Size) || (pos.Size < 0 && newSize > pos.Size) {
			closedSize := math.Abs(pos.Size - newSize)
			realized := closedSize * (executionPrice - pos.EntryPrice)
			pos.RealizedPnL += realized
			*capital += realized
			*trades = append(*trades, TradeRecord{
				Timestamp:  ts,
				Symbol:     symbol,
				Side:       string(sig.side),
				Quantity:   closedSize,
				EntryPrice: pos.EntryPrice,
				ExitPrice:  executionPrice,
				PnL:        realized,
				Commission: commissionCost,
			})
		}

		if math.Abs(newSize) < domain.FlatEpsilon {
			delete(positions, symbol)
		} else {
			// 同向加仓：入场价改为数量加权平均
			if (pos.Size > 0 && newSize > pos.Size) || (pos.Size < 0 && newSize < pos.Size) {
				oldCost := math.Abs(pos.Size) * pos.EntryPrice
				addedCost := quantity * executionPrice
				pos.EntryPrice = (oldCost + addedCost) / math.Abs(newSize)
			}
			pos.Size = newSize
			pos.MarkPrice = executionPrice
			pos.UpdatePnL()
		}
	}

	// 买入扣 cost+fee；卖出只进 cost−fee（费用口径不对称，刻意保留）
	if sig.side == domain.SideBuy {
		*capital -= totalCost
	} else {
		*capital += cost - commissionCost
	}
}

// applySlippage 滑点随单量线性放大：slippage·(1+qty/100)。
func (e *Engine) applySlippage(price float64, side domain.OrderSide, quantity float64) float64 {
	factor := e.slippage * (1 + quantity/100)
	if side == domain.SideBuy {
		return price * (1 + factor)
	}
	return price * (1 - factor)
}

func filterPriceTicks(ticks []priceTick, opts RunOptions) []priceTick {
	out := ticks[:0]
	for _, t := range ticks {
		if !opts.Start.IsZero() && t.ts.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && t.ts.After(opts.End) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func filterSignalTicks(ticks []signalTick, opts RunOptions) []signalTick {
	out := ticks[:0]
	for _, t := range ticks {
		if !opts.Start.IsZero() && t.ts.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && t.ts.After(opts.End) {
			continue
		}
		out = append(out, t)
	}
	return out
}
