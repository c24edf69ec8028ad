package manager

import (
	"sort"
	"sync"

	"alphatrade/internal/domain"
)

// OrderManager 是 id→Order 的内存注册表。
type OrderManager struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderManager() *OrderManager {
	return &OrderManager{orders: make(map[string]*domain.Order)}
}

func (m *OrderManager) Put(o *domain.Order) {
	if o == nil || o.ID == "" {
		return
	}
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()
}

func (m *OrderManager) Get(id string) (*domain.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	return o, ok
}

func (m *OrderManager) Remove(id string) {
	m.mu.Lock()
	delete(m.orders, id)
	m.mu.Unlock()
}

// BySymbol 返回某 symbol 的全部订单，按 ID 排序保证遍历稳定。
func (m *OrderManager) BySymbol(symbol string) []*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Open 返回所有仍可成交的订单。
func (m *OrderManager) Open() []*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.IsOpen() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CancelAll 取消某 symbol 的全部挂单，返回取消数量。
func (m *OrderManager) CancelAll(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Symbol != symbol || !o.IsOpen() {
			continue
		}
		if err := o.Cancel(); err == nil {
			n++
		}
	}
	return n
}
