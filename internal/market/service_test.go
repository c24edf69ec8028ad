package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource 按请求区间生成整齐的网格数据。
type fakeSource struct {
	tf    Timeframe
	calls int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(_ context.Context, req FetchRequest) ([]Candle, error) {
	f.calls++
	step := f.tf.StepMillis()
	var out []Candle
	for ts := req.Start; ts <= req.End && len(out) < req.Limit; ts += step {
		out = append(out, Candle{OpenTime: ts, CloseTime: ts + step - 1, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1})
	}
	return out, nil
}

func newTestService(t *testing.T, tf Timeframe) (*Service, *Store, *fakeSource) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	src := &fakeSource{tf: tf}
	svc, err := NewService(ServiceConfig{
		Store:           store,
		Sources:         map[string]CandleSource{"fake": src},
		RateLimitPerMin: 60000,
	})
	require.NoError(t, err)
	return svc, store, src
}

func waitJob(t *testing.T, svc *Service, id string) FetchJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := svc.JobSnapshot(id)
		require.True(t, ok)
		switch job.Status {
		case JobStatusDone, JobStatusPartial, JobStatusFailed:
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("任务未在期限内结束")
	return FetchJob{}
}

func TestSubmitFetchFillsGaps(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	svc, store, _ := newTestService(t, tf)
	step := tf.StepMillis()

	job, err := svc.SubmitFetch(FetchParams{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Start:     step,
		End:       10 * step,
	})
	require.NoError(t, err)

	done := waitJob(t, svc, job.ID)
	assert.Equal(t, JobStatusDone, done.Status)
	assert.Empty(t, done.Missing)

	report, err := store.CheckIntegrity(context.Background(), "BTCUSDT", "1h", tf, step, 10*step)
	require.NoError(t, err)
	assert.True(t, report.Complete())
}

func TestSubmitFetchAlreadyComplete(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	svc, store, src := newTestService(t, tf)
	step := tf.StepMillis()

	_, err := store.InsertCandles(context.Background(), "BTCUSDT", "1h", testCandles(tf, step, 5))
	require.NoError(t, err)

	job, err := svc.SubmitFetch(FetchParams{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		Start:     step,
		End:       5 * step,
	})
	require.NoError(t, err)

	done := waitJob(t, svc, job.ID)
	assert.Equal(t, JobStatusDone, done.Status)
	// 数据完整时不触发任何远端请求
	assert.Zero(t, src.calls)
}

func TestSubmitFetchRejectsBadParams(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	svc, _, _ := newTestService(t, tf)

	_, err := svc.SubmitFetch(FetchParams{Timeframe: "1h", Start: 0, End: 1})
	assert.Error(t, err)

	_, err = svc.SubmitFetch(FetchParams{Symbol: "BTCUSDT", Timeframe: "9h", Start: 0, End: 1})
	assert.Error(t, err)

	_, err = svc.SubmitFetch(FetchParams{Symbol: "BTCUSDT", Timeframe: "1h", Exchange: "nope", Start: 0, End: tf.StepMillis() * 2})
	assert.Error(t, err)
}

// 返回的快照须在 worker 启动前取好，worker 随即就会改写同一个 job。
// 回归用例配合 -race 跑：快照字段读取不允许与 worker 写并发。
func TestSubmitFetchSnapshotTakenBeforeWorker(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	svc, _, _ := newTestService(t, tf)
	step := tf.StepMillis()

	for i := 0; i < 20; i++ {
		job, err := svc.SubmitFetch(FetchParams{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			Start:     int64(i*100+1) * step,
			End:       int64(i*100+10) * step,
		})
		require.NoError(t, err)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.NotEmpty(t, job.ID)
		assert.NotEmpty(t, job.Missing)
		waitJob(t, svc, job.ID)
	}
}
