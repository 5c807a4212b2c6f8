// Package countdown drives the wall-clock countdown shown for every order
// being prepared. Deadlines live in a durable key-value store so a countdown
// survives a full dashboard restart.
package countdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
	"github.com/foodcourt/vendor-dashboard/pkg/metrics"
)

// DeadlineStore persists one absolute deadline per order id. Implementations
// must treat a missing key as (zero, false, nil).
type DeadlineStore interface {
	Get(ctx context.Context, orderID int64) (time.Time, bool, error)
	Set(ctx context.Context, orderID int64, deadline time.Time) error
	Delete(ctx context.Context, orderID int64) error
}

// Scheduler owns one cancellable repeating task per preparing order. It
// observes Order Store mutations; nothing else starts or stops countdowns.
type Scheduler struct {
	log     *slog.Logger
	store   DeadlineStore
	ctx     context.Context
	now     func() time.Time
	tick    time.Duration
	metrics *metrics.SyncMetrics

	mu    sync.Mutex
	tasks map[int64]*task
}

type task struct {
	deadline time.Time
	stop     chan struct{}
}

func NewScheduler(ctx context.Context, log *slog.Logger, store DeadlineStore) *Scheduler {
	return &Scheduler{
		log:   log,
		store: store,
		ctx:   ctx,
		now:   time.Now,
		tick:  time.Second,
		tasks: make(map[int64]*task),
	}
}

func (s *Scheduler) SetMetrics(m *metrics.SyncMetrics) { s.metrics = m }

// OrderStatusChanged reacts to a single locally observed transition. Into
// preparing: start (or resume) a countdown, deriving a fresh deadline from
// the order's pick-up estimate when none is persisted. Away from preparing:
// stop the tick and delete the persisted deadline.
func (s *Scheduler) OrderStatusChanged(o domain.Order) {
	if o.Status == domain.StatusPreparing {
		s.start(o, true)
		return
	}
	s.Clear(o.ID)
}

// OrdersReplaced reacts to a reconciliation (including the initial load
// after a restart). Preparing orders without a running task resume a
// persisted deadline if it is still in the future; a stale or absent entry
// means no countdown. Tasks for orders no longer preparing are cancelled.
func (s *Scheduler) OrdersReplaced(orders []domain.Order) {
	preparing := make(map[int64]bool, len(orders))
	for _, o := range orders {
		if o.Status == domain.StatusPreparing {
			preparing[o.ID] = true
			if !s.running(o.ID) {
				s.start(o, false)
			}
		}
	}

	s.mu.Lock()
	var drop []int64
	for id := range s.tasks {
		if !preparing[id] {
			drop = append(drop, id)
		}
	}
	s.mu.Unlock()
	for _, id := range drop {
		s.Clear(id)
	}
}

// Remaining reports the live remaining time for an order's countdown, zero-
// floored. The second return is false when no countdown is active.
func (s *Scheduler) Remaining(orderID int64) (time.Duration, bool) {
	s.mu.Lock()
	t, ok := s.tasks[orderID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	rem := t.deadline.Sub(s.now())
	if rem < 0 {
		rem = 0
	}
	return rem, true
}

// Clear stops an order's countdown and deletes its persisted deadline.
func (s *Scheduler) Clear(orderID int64) {
	s.mu.Lock()
	t, ok := s.tasks[orderID]
	if ok {
		close(t.stop)
		delete(s.tasks, orderID)
	}
	s.mu.Unlock()

	if ok {
		s.gauge(-1)
	}
	if err := s.store.Delete(s.ctx, orderID); err != nil {
		s.log.Warn("delete persisted deadline", "order_id", orderID, "err", err)
	}
}

// StopAll cancels every ticking task on teardown. Persisted deadlines are
// kept so countdowns resume after a reload.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, t := range s.tasks {
		close(t.stop)
		delete(s.tasks, id)
		s.gauge(-1)
	}
	s.mu.Unlock()
}

// start launches (or resumes) a countdown, cancelling any existing task for
// the order first. fresh controls whether a missing persisted deadline may
// be derived from the pick-up estimate; the reconciliation path passes false
// so restart semantics hold.
func (s *Scheduler) start(o domain.Order, fresh bool) {
	now := s.now()

	deadline, ok, err := s.store.Get(s.ctx, o.ID)
	if err != nil {
		s.log.Warn("read persisted deadline", "order_id", o.ID, "err", err)
		ok = false
	}
	if ok && !deadline.After(now) {
		// Stale entry from a countdown that ran out while nobody watched.
		if err := s.store.Delete(s.ctx, o.ID); err != nil {
			s.log.Warn("delete stale deadline", "order_id", o.ID, "err", err)
		}
		ok = false
	}
	if !ok {
		if !fresh {
			return
		}
		deadline = now.Add(o.PrepDuration())
		if err := s.store.Set(s.ctx, o.ID, deadline); err != nil {
			s.log.Warn("persist deadline", "order_id", o.ID, "err", err)
		}
	}

	t := &task{deadline: deadline, stop: make(chan struct{})}

	s.mu.Lock()
	if prev, exists := s.tasks[o.ID]; exists {
		close(prev.stop)
		s.gauge(-1)
	}
	s.tasks[o.ID] = t
	s.mu.Unlock()

	s.gauge(1)
	s.log.Debug("countdown started", "order_id", o.ID, "deadline", deadline)
	go s.run(o.ID, t)
}

func (s *Scheduler) run(orderID int64, t *task) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if s.now().Before(t.deadline) {
				continue
			}
			s.expire(orderID, t)
			return
		}
	}
}

// expire handles the deadline passing while the order is still preparing:
// the tick stops and the persisted entry goes away, but the order's status
// is untouched. Timer expiry is informational only.
func (s *Scheduler) expire(orderID int64, t *task) {
	s.mu.Lock()
	if s.tasks[orderID] == t {
		delete(s.tasks, orderID)
		s.gauge(-1)
	}
	s.mu.Unlock()

	if err := s.store.Delete(s.ctx, orderID); err != nil {
		s.log.Warn("delete expired deadline", "order_id", orderID, "err", err)
	}
	s.log.Info("countdown expired", "order_id", orderID)
}

func (s *Scheduler) running(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[orderID]
	return ok
}

func (s *Scheduler) gauge(delta float64) {
	if s.metrics != nil {
		s.metrics.ActiveCountdowns.Add(delta)
	}
}

// FormatRemaining renders a remaining duration as mm:ss, e.g. "05:00".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
