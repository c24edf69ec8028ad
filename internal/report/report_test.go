package report

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphatrade/internal/backtest"
)

func sampleResult() *backtest.Result {
	return &backtest.Result{
		InitialCapital: 100000,
		FinalCapital:   103000,
		TotalReturn:    3,
		SharpeRatio:    1.2,
		MaxDrawdown:    4.5,
		WinRate:        55,
		EquityCurve:    []float64{100000, 101000, 99500, 103000},
		Trades: []backtest.TradeRecord{
			{Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Symbol: "BTCUSDT", Side: "SELL", Quantity: 1, PnL: 500},
			{Timestamp: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), Symbol: "BTCUSDT", Side: "SELL", Quantity: 1, PnL: -200},
		},
	}
}

func TestBuildHTML(t *testing.T) {
	html, err := BuildHTML(Input{RunID: "run-1", Symbol: "btcusdt", Result: sampleResult()})
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, "BTCUSDT")
	assert.Contains(t, page, "equity")
	assert.Contains(t, page, "drawdown")
	assert.Contains(t, page, "echarts")
}

func TestBuildHTMLRequiresResult(t *testing.T) {
	_, err := BuildHTML(Input{RunID: "run-1"})
	assert.Error(t, err)
}

func TestWriteHTML(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteHTML(Input{RunID: "run-2", Symbol: "ETHUSDT", Result: sampleResult()}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
