package manager

import (
	"sort"
	"sync"
	"time"

	"alphatrade/internal/domain"
)

// PositionUpdate 用显式可选字段表达部分更新，逐字段应用。
type PositionUpdate struct {
	Size        *float64
	EntryPrice  *float64
	MarkPrice   *float64
	RealizedPnL *float64
	FundingRate *float64
	FundingPaid *float64
	Leverage    *float64
}

// PositionManager 是 symbol→Position 的内存注册表，后写覆盖。
type PositionManager struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
}

func NewPositionManager() *PositionManager {
	return &PositionManager{positions: make(map[string]*domain.Position)}
}

func (m *PositionManager) Put(p *domain.Position) {
	if p == nil || p.Symbol == "" {
		return
	}
	m.mu.Lock()
	m.positions[p.Symbol] = p
	m.mu.Unlock()
}

func (m *PositionManager) Get(symbol string) (*domain.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[symbol]
	return p, ok
}

func (m *PositionManager) Remove(symbol string) {
	m.mu.Lock()
	delete(m.positions, symbol)
	m.mu.Unlock()
}

// List 返回按 symbol 排序的持仓快照。
func (m *PositionManager) List() []*domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Apply 应用部分更新并重算未实现盈亏。symbol 不存在时返回 false。
func (m *PositionManager) Apply(symbol string, upd PositionUpdate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[symbol]
	if !ok {
		return false
	}
	if upd.Size != nil {
		p.Size = *upd.Size
	}
	if upd.EntryPrice != nil {
		p.EntryPrice = *upd.EntryPrice
	}
	if upd.MarkPrice != nil {
		p.MarkPrice = *upd.MarkPrice
	}
	if upd.RealizedPnL != nil {
		p.RealizedPnL = *upd.RealizedPnL
	}
	if upd.FundingRate != nil {
		p.FundingRate = *upd.FundingRate
	}
	if upd.FundingPaid != nil {
		p.FundingPaid = *upd.FundingPaid
	}
	if upd.Leverage != nil {
		p.Leverage = *upd.Leverage
	}
	p.UpdatedAt = time.Now().UTC()
	p.UpdatePnL()
	return true
}
