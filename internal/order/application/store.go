package application

import (
	"sort"
	"sync"

	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

// Store is the in-memory canonical view of the vendor's orders. It performs
// no I/O; reconciliation and the transition controller are the only writers.
type Store struct {
	mu       sync.RWMutex
	orders   map[int64]domain.Order
	observer Observer
}

func NewStore() *Store {
	return &Store{orders: make(map[int64]domain.Order)}
}

// Subscribe registers the single observer. Must be called before the store
// receives any mutation.
func (s *Store) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = obs
}

// ReplaceAll atomically swaps the full order set. Used only by
// reconciliation, which is the sole authority for bulk state.
func (s *Store) ReplaceAll(orders []domain.Order) {
	s.mu.Lock()
	next := make(map[int64]domain.Order, len(orders))
	for _, o := range orders {
		next[o.ID] = o
	}
	s.orders = next
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs.OrdersReplaced(orders)
	}
}

func (s *Store) Get(id int64) (domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// ApplyStatus mutates a single order's status locally. Called solely by the
// transition controller after the remote write is acknowledged.
func (s *Store) ApplyStatus(id int64, status domain.OrderStatus) bool {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	o.Status = status
	s.orders[id] = o
	obs := s.observer
	s.mu.Unlock()

	if obs != nil {
		obs.OrderStatusChanged(o)
	}
	return true
}

// ActiveOrders returns every order not yet completed, newest first.
func (s *Store) ActiveOrders() []domain.Order {
	return s.selectOrders(func(o domain.Order) bool { return o.Status != domain.StatusCompleted })
}

// CompletedOrders returns the historical view, newest first.
func (s *Store) CompletedOrders() []domain.Order {
	return s.selectOrders(func(o domain.Order) bool { return o.Status == domain.StatusCompleted })
}

func (s *Store) All() []domain.Order {
	return s.selectOrders(func(domain.Order) bool { return true })
}

func (s *Store) selectOrders(keep func(domain.Order) bool) []domain.Order {
	s.mu.RLock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
