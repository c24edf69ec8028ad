package manager

import (
	"sort"
	"sync"

	"alphatrade/internal/domain"

	"github.com/shopspring/decimal"
)

// InventoryManager 是 asset→Inventory 的内存注册表。
type InventoryManager struct {
	mu        sync.RWMutex
	inventory map[string]*domain.Inventory
}

func NewInventoryManager() *InventoryManager {
	return &InventoryManager{inventory: make(map[string]*domain.Inventory)}
}

// GetOrCreate 返回资产库存，不存在时创建空记录。
func (m *InventoryManager) GetOrCreate(asset, chain string) *domain.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.inventory[asset]; ok {
		return inv
	}
	inv := domain.NewInventory(asset, chain)
	m.inventory[asset] = inv
	return inv
}

func (m *InventoryManager) Get(asset string) (*domain.Inventory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.inventory[asset]
	return inv, ok
}

// List 返回按资产名排序的库存快照。
func (m *InventoryManager) List() []*domain.Inventory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Inventory, 0, len(m.inventory))
	for _, inv := range m.inventory {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// TotalOf 返回某资产总余额，不存在时为 0。
func (m *InventoryManager) TotalOf(asset string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inv, ok := m.inventory[asset]; ok {
		return inv.Total()
	}
	return decimal.Zero
}
