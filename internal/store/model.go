package store

import (
	"time"

	"gorm.io/datatypes"
)

// RunModel 是 backtest_runs 表的持久化模型，
// 配置与完整结果以 JSON 存储，汇总指标单列冗余便于列表查询。
type RunModel struct {
	ID        string `gorm:"column:id;primaryKey"`
	Symbol    string `gorm:"column:symbol;index"`
	Timeframe string `gorm:"column:timeframe"`
	Status    string `gorm:"column:status;index"`
	Message   string `gorm:"column:message"`

	InitialCapital float64 `gorm:"column:initial_capital"`
	FinalCapital   float64 `gorm:"column:final_capital"`
	TotalReturn    float64 `gorm:"column:total_return"`
	SharpeRatio    float64 `gorm:"column:sharpe_ratio"`
	MaxDrawdown    float64 `gorm:"column:max_drawdown"`
	WinRate        float64 `gorm:"column:win_rate"`
	TotalTrades    int     `gorm:"column:total_trades"`

	ConfigJSON datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	ResultJSON datatypes.JSON `gorm:"column:result_json;type:TEXT"`

	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (RunModel) TableName() string { return "backtest_runs" }
