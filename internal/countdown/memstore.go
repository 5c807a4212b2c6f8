package countdown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local DeadlineStore. Countdowns backed by it do
// not survive a restart; it serves tests and deployments without Redis.
type MemoryStore struct {
	mu        sync.Mutex
	deadlines map[int64]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deadlines: make(map[int64]time.Time)}
}

func (m *MemoryStore) Get(_ context.Context, orderID int64) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deadlines[orderID]
	return d, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, orderID int64, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[orderID] = deadline
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.deadlines, orderID)
	return nil
}
