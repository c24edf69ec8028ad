package backtest

import (
	"time"

	"alphatrade/internal/domain"
)

// TradeRecord 是一笔已实现盈亏的成交记录，只在减仓/反手时追加，
// 追加后不可变。
type TradeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	Commission float64   `json:"commission"`
}

// Result 是一次回测的完整产出，构造后不可变。
type Result struct {
	InitialCapital float64       `json:"initial_capital"`
	FinalCapital   float64       `json:"final_capital"`
	TotalReturn    float64       `json:"total_return"` // 百分比
	TotalPnL       float64       `json:"total_pnl"`
	SharpeRatio    float64       `json:"sharpe_ratio"`
	MaxDrawdown    float64       `json:"max_drawdown"` // 百分比
	WinRate        float64       `json:"win_rate"`     // 百分比
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	AverageWin     float64       `json:"average_win"`
	AverageLoss    float64       `json:"average_loss"`
	ProfitFactor   float64       `json:"profit_factor"`
	EquityCurve    []float64     `json:"equity_curve"`
	Trades         []TradeRecord `json:"trades"`
	// OpenPositions 是回测结束时仍未平掉的仓位快照。
	OpenPositions []domain.Position `json:"open_positions,omitempty"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
}
