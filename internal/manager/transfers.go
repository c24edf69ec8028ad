package manager

import (
	"sort"
	"sync"

	"alphatrade/internal/domain"
)

// TransferManager 是 id→Transfer 的内存注册表。
type TransferManager struct {
	mu        sync.RWMutex
	transfers map[string]*domain.Transfer
}

func NewTransferManager() *TransferManager {
	return &TransferManager{transfers: make(map[string]*domain.Transfer)}
}

func (m *TransferManager) Put(t *domain.Transfer) {
	if t == nil || t.ID == "" {
		return
	}
	m.mu.Lock()
	m.transfers[t.ID] = t
	m.mu.Unlock()
}

func (m *TransferManager) Get(id string) (*domain.Transfer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[id]
	return t, ok
}

// Pending 返回所有未到终态的划转，按创建时间排序。
func (m *TransferManager) Pending() []*domain.Transfer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transfer
	for _, t := range m.transfers {
		if t.IsPending() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
