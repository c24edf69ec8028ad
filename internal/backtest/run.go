package backtest

import "time"

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig 记录本次回测的参数快照，便于重放。
type RunConfig struct {
	Profile        string  `json:"profile,omitempty"`
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe"`
	StartTS        int64   `json:"start_ts"`
	EndTS          int64   `json:"end_ts"`
	InitialCapital float64 `json:"initial_capital"`
	Slippage       float64 `json:"slippage"`
	Commission     float64 `json:"commission"`
	FundingRate    float64 `json:"funding_rate"`
	SignalCount    int     `json:"signal_count"`
	Notes          string  `json:"notes,omitempty"`
}

// Run 表示一次回测任务的可见状态。
type Run struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Config      RunConfig `json:"config"`
	Result      *Result   `json:"result,omitempty"`
	ReportPath  string    `json:"report_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

func (r *Run) copy() Run {
	out := *r
	return out
}

// RunRequest 为 HTTP 提交使用；Signals 非空时优先于内置信号源。
type RunRequest struct {
	Symbol         string      `json:"symbol" binding:"required"`
	Timeframe      string      `json:"timeframe"`
	Profile        string      `json:"profile"`
	StartTS        int64       `json:"start_ts" binding:"required"`
	EndTS          int64       `json:"end_ts" binding:"required"`
	InitialCapital float64     `json:"initial_capital"`
	Slippage       float64     `json:"slippage"`
	Commission     float64     `json:"commission"`
	FundingRate    float64     `json:"funding_rate"`
	Signals        []SignalRow `json:"signals,omitempty"`
}
