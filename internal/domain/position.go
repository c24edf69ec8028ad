package domain

import (
	"math"
	"time"
)

// FlatEpsilon 以下的仓位规模视为已平仓。
const FlatEpsilon = 1e-8

// Position 表示单个合约的持仓状态。size 正为多、负为空，
// entry_price 为开仓侧的加权平均成本。
type Position struct {
	Symbol           string    `json:"symbol"`
	Size             float64   `json:"size"`
	EntryPrice       float64   `json:"entry_price"`
	MarkPrice        float64   `json:"mark_price"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	RealizedPnL      float64   `json:"realized_pnl"`
	FundingRate      float64   `json:"funding_rate"`
	FundingPaid      float64   `json:"funding_paid"`
	Leverage         float64   `json:"leverage"`
	LiquidationPrice float64   `json:"liquidation_price,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// NewPosition 以首笔成交建仓。
func NewPosition(symbol string, size, entryPrice float64) *Position {
	p := &Position{
		Symbol:     symbol,
		Size:       size,
		EntryPrice: entryPrice,
		MarkPrice:  entryPrice,
		Leverage:   1,
		Timestamp:  time.Now().UTC(),
	}
	p.UpdatePnL()
	return p
}

func (p *Position) IsLong() bool  { return p.Size > 0 }
func (p *Position) IsShort() bool { return p.Size < 0 }

// IsFlat 判断仓位是否可视为已平。
func (p *Position) IsFlat() bool { return math.Abs(p.Size) < FlatEpsilon }

// NotionalValue 返回名义价值 |size * mark|。
func (p *Position) NotionalValue() float64 {
	return math.Abs(p.Size * p.MarkPrice)
}

// UpdatePnL 按公式 size*(mark-entry) 重算未实现盈亏。
// 任何改动 size/mark/entry 的路径之后都必须调用，不允许增量漂移。
func (p *Position) UpdatePnL() {
	if p.IsFlat() {
		p.UnrealizedPnL = 0
		return
	}
	p.UnrealizedPnL = p.Size * (p.MarkPrice - p.EntryPrice)
}
