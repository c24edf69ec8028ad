package backtest

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphatrade/internal/market"
	"alphatrade/internal/store"
)

// gridSource 生成整齐网格上的 K 线，价格随时间线性抬升。
type gridSource struct {
	step int64
}

func (g *gridSource) Name() string { return "grid" }

func (g *gridSource) Fetch(_ context.Context, req market.FetchRequest) ([]market.Candle, error) {
	var out []market.Candle
	for ts := req.Start; ts <= req.End && len(out) < req.Limit; ts += g.step {
		price := 100 + float64(ts/g.step)
		out = append(out, market.Candle{
			OpenTime:  ts,
			CloseTime: ts + g.step - 1,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
		})
	}
	return out, nil
}

type fixedSignals struct {
	rows []SignalRow
}

func (f *fixedSignals) Signals(string, []market.Candle) ([]SignalRow, error) {
	return f.rows, nil
}

func newTestSimulator(t *testing.T, signals SignalSource) (*Simulator, *store.RunStore) {
	t.Helper()
	tf, _ := market.ParseTimeframe("1h")

	candleStore, err := market.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { candleStore.Close() })

	svc, err := market.NewService(market.ServiceConfig{
		Store:           candleStore,
		Sources:         map[string]market.CandleSource{"grid": &gridSource{step: tf.StepMillis()}},
		RateLimitPerMin: 60000,
	})
	require.NoError(t, err)

	runs, err := store.NewRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { runs.Close() })

	sim, err := NewSimulator(SimulatorConfig{
		Market:         svc,
		Runs:           runs,
		Signals:        signals,
		InitialCapital: 100000,
		Slippage:       0.001,
		Commission:     0.0002,
	})
	require.NoError(t, err)
	return sim, runs
}

func waitRun(t *testing.T, sim *Simulator, id string) Run {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := sim.RunSnapshot(id)
		require.True(t, ok)
		if run.Status == RunStatusDone || run.Status == RunStatusFailed {
			return run
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("回测未在期限内结束")
	return Run{}
}

func TestStartRunEndToEnd(t *testing.T) {
	tf, _ := market.ParseTimeframe("1h")
	step := tf.StepMillis()

	buyTS := strconv.FormatInt(2*step-1, 10) // 首根 K 线的收盘时刻
	sim, runs := newTestSimulator(t, &fixedSignals{rows: []SignalRow{
		{Timestamp: buyTS, Symbol: "BTCUSDT", Side: "BUY", Quantity: 1},
	}})

	run, err := sim.StartRun(RunRequest{
		Symbol:         "btcusdt",
		Timeframe:      "1h",
		StartTS:        step,
		EndTS:          10 * step,
		InitialCapital: 100000,
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", run.Config.Symbol)

	done := waitRun(t, sim, run.ID)
	require.Equal(t, RunStatusDone, done.Status, done.Message)
	require.NotNil(t, done.Result)
	assert.Equal(t, 100000.0, done.Result.InitialCapital)
	assert.Len(t, done.Result.OpenPositions, 1)
	assert.Equal(t, 1, done.Config.SignalCount)

	stored, err := runs.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", stored.Status)
	assert.Equal(t, done.Result.FinalCapital, stored.FinalCapital)
}

func TestStartRunValidation(t *testing.T) {
	sim, _ := newTestSimulator(t, nil)

	_, err := sim.StartRun(RunRequest{Timeframe: "1h", StartTS: 1, EndTS: 2})
	assert.Error(t, err)

	_, err = sim.StartRun(RunRequest{Symbol: "BTCUSDT", Timeframe: "9h", StartTS: 1, EndTS: 2})
	assert.Error(t, err)

	// 对齐后区间塌缩
	_, err = sim.StartRun(RunRequest{Symbol: "BTCUSDT", Timeframe: "1h", StartTS: 1, EndTS: 2})
	assert.Error(t, err)
}

func TestStartRunWithExplicitSignals(t *testing.T) {
	tf, _ := market.ParseTimeframe("1h")
	step := tf.StepMillis()

	// 内置信号源会被请求里的显式信号覆盖
	sim, _ := newTestSimulator(t, &fixedSignals{rows: []SignalRow{
		{Timestamp: "1", Symbol: "BTCUSDT", Side: "BUY", Quantity: 99},
	}})

	run, err := sim.StartRun(RunRequest{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		StartTS:   step,
		EndTS:     5 * step,
		Signals: []SignalRow{
			{Timestamp: strconv.FormatInt(2*step-1, 10), Symbol: "BTCUSDT", Side: "BUY", Quantity: 0.5},
		},
	})
	require.NoError(t, err)

	done := waitRun(t, sim, run.ID)
	require.Equal(t, RunStatusDone, done.Status, done.Message)
	require.Len(t, done.Result.OpenPositions, 1)
	assert.InDelta(t, 0.5, done.Result.OpenPositions[0].Size, 1e-9)
}

// 返回的快照须在 worker 启动前取好，worker 随即就会改写同一个 run。
// 回归用例配合 -race 跑：快照字段读取不允许与 worker 写并发。
func TestStartRunSnapshotTakenBeforeWorker(t *testing.T) {
	tf, _ := market.ParseTimeframe("1h")
	step := tf.StepMillis()

	sim, _ := newTestSimulator(t, &fixedSignals{})

	for i := 0; i < 20; i++ {
		run, err := sim.StartRun(RunRequest{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			StartTS:   step,
			EndTS:     10 * step,
		})
		require.NoError(t, err)
		assert.Equal(t, RunStatusPending, run.Status)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, "BTCUSDT", run.Config.Symbol)
		waitRun(t, sim, run.ID)
	}
}
