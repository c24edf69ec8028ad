package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyPrices(symbol string, close float64, bars int) []PriceRow {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]PriceRow, 0, bars)
	for i := 0; i < bars; i++ {
		out = append(out, PriceRow{
			Timestamp: base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05"),
			Symbol:    symbol,
			Close:     close,
		})
	}
	return out
}

func barTimestamp(i int) string {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05")
}

func TestRunAdmissionControl(t *testing.T) {
	// 资金不足的买单整单放弃，不报错、不记录、不动资金
	engine := NewEngine(EngineConfig{Slippage: 0.001, Commission: 0.0002})
	prices := hourlyPrices("BTCUSDT", 50000, 3)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
	}

	result, err := engine.Run(prices, signals, 100, RunOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Empty(t, result.OpenPositions)
	assert.Equal(t, 100.0, result.FinalCapital)
	for _, equity := range result.EquityCurve {
		assert.Equal(t, 100.0, equity)
	}
}

func TestRunRoundTrip(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := []PriceRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Close: 100},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Close: 110},
	}
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Side: "SELL", Quantity: 1.0},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, 1.0, trade.Quantity)
	assert.Equal(t, 100.0, trade.EntryPrice)
	assert.Equal(t, 110.0, trade.ExitPrice)
	assert.InDelta(t, 10.0, trade.PnL, 1e-9)

	// 平完后不残留仓位
	assert.Empty(t, result.OpenPositions)

	// 遗留口径：已实现盈亏与卖出所得都计入资金
	assert.InDelta(t, 100000-100+10+110, result.FinalCapital, 1e-9)
}

func TestRunEquitySeed(t *testing.T) {
	engine := NewEngine(EngineConfig{Slippage: 0.001, Commission: 0.0002})
	prices := hourlyPrices("BTCUSDT", 50000, 5)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
		{Timestamp: barTimestamp(2), Symbol: "BTCUSDT", Side: "SELL", Quantity: 0.5},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, result.EquityCurve)
	assert.Equal(t, 100000.0, result.EquityCurve[0])
}

func TestRunBuyAndHoldFlatPrice(t *testing.T) {
	const (
		initial    = 100000.0
		close      = 50000.0
		quantity   = 1.0
		slippage   = 0.001
		commission = 0.0002
	)
	engine := NewEngine(EngineConfig{Slippage: slippage, Commission: commission})
	prices := hourlyPrices("BTCUSDT", close, 100)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: quantity},
	}

	result, err := engine.Run(prices, signals, initial, RunOptions{})
	require.NoError(t, err)

	// 逐项复算入场成本
	factor := slippage * (1 + quantity/100)
	entryPrice := close * (1 + factor)
	cost := entryPrice * quantity
	commissionCost := cost * commission
	capitalAfter := initial - cost - commissionCost

	require.Len(t, result.OpenPositions, 1)
	pos := result.OpenPositions[0]
	assert.Equal(t, "BTCUSDT", pos.Symbol)
	assert.InDelta(t, quantity, pos.Size, 1e-9)
	assert.InDelta(t, entryPrice, pos.EntryPrice, 1e-9)

	// 从未平仓
	assert.Zero(t, result.TotalTrades)

	// 价格不动时最终权益 = 扣除成本后的资金 + 持仓浮亏（滑点差）
	expectedEquity := capitalAfter + (close-entryPrice)*quantity
	assert.InDelta(t, expectedEquity, result.FinalCapital, 1e-6)
	assert.Less(t, result.FinalCapital, initial)

	// 种子 + 每根 K 线一个快照
	assert.Len(t, result.EquityCurve, 101)
}

func TestRunEmptySignals(t *testing.T) {
	engine := NewEngine(EngineConfig{Slippage: 0.001, Commission: 0.0002, FundingRate: 0.0001})
	prices := hourlyPrices("BTCUSDT", 50000, 10)

	result, err := engine.Run(prices, nil, 100000, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100000.0, result.FinalCapital)
	assert.Zero(t, result.TotalTrades)
	assert.Zero(t, result.TotalReturn)
}

func TestRunInvalidSide(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := hourlyPrices("BTCUSDT", 50000, 3)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Side: "HOLD", Quantity: 1.0},
	}

	_, err := engine.Run(prices, signals, 100000, RunOptions{})
	var invalid *InvalidDataError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "signals", invalid.Dataset)
	assert.Contains(t, invalid.Values, "HOLD")
}

func TestRunEmptyRange(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := hourlyPrices("BTCUSDT", 50000, 3)

	opts := RunOptions{
		Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	_, err := engine.Run(prices, nil, 100000, opts)
	var bterr *BacktestError
	require.ErrorAs(t, err, &bterr)
}

func TestRunFundingCadence(t *testing.T) {
	// 每处理 3 根 K 线收一次资金费（按曲线长度计数，遗留口径）
	engine := NewEngine(EngineConfig{FundingRate: 0.01})
	prices := hourlyPrices("BTCUSDT", 100, 6)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)

	// 第 3、6 根各收 1·100·0.01
	require.Len(t, result.OpenPositions, 1)
	assert.InDelta(t, 2.0, result.OpenPositions[0].FundingPaid, 1e-9)
	assert.InDelta(t, 100000-100-2, result.FinalCapital, 1e-9)
}

func TestRunAveragesEntryOnAdd(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := []PriceRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Close: 100},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Close: 110},
	}
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)

	require.Len(t, result.OpenPositions, 1)
	pos := result.OpenPositions[0]
	assert.InDelta(t, 2.0, pos.Size, 1e-9)
	assert.InDelta(t, 105.0, pos.EntryPrice, 1e-9)
	assert.Empty(t, result.Trades)
}

func TestRunFlipKeepsEntryPrice(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := []PriceRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Close: 100},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Close: 110},
	}
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "BTCUSDT", Side: "BUY", Quantity: 1.0},
		{Timestamp: barTimestamp(1), Symbol: "BTCUSDT", Side: "SELL", Quantity: 2.0},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)

	// 反手按全部跨越数量实现盈亏，新仓沿用旧入场价（遗留口径）
	require.Len(t, result.Trades, 1)
	assert.InDelta(t, 2.0, result.Trades[0].Quantity, 1e-9)
	assert.InDelta(t, 20.0, result.Trades[0].PnL, 1e-9)

	require.Len(t, result.OpenPositions, 1)
	pos := result.OpenPositions[0]
	assert.InDelta(t, -1.0, pos.Size, 1e-9)
	assert.InDelta(t, 100.0, pos.EntryPrice, 1e-9)
}

func TestRunSkipsSignalWithoutPrice(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := hourlyPrices("BTCUSDT", 100, 3)
	signals := []SignalRow{
		{Timestamp: barTimestamp(0), Symbol: "ETHUSDT", Side: "BUY", Quantity: 1.0},
	}

	result, err := engine.Run(prices, signals, 100000, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.OpenPositions)
	assert.Equal(t, 100000.0, result.FinalCapital)
}

func TestRunRejectsBadTimestamp(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	prices := []PriceRow{
		{Timestamp: "not-a-time", Symbol: "BTCUSDT", Close: 100},
	}

	_, err := engine.Run(prices, nil, 100000, RunOptions{})
	var invalid *InvalidDataError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "prices", invalid.Dataset)
}
