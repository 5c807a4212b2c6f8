package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
	"github.com/foodcourt/vendor-dashboard/pkg/metrics"
)

// TransitionController executes vendor-initiated status changes with
// write-then-confirm semantics: the remote store is updated first and local
// state only mutates once the write is acknowledged.
type TransitionController struct {
	log      *slog.Logger
	store    *Store
	writer   StatusWriter
	refresh  Refresher
	notifier Notifier
	metrics  *metrics.SyncMetrics

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewTransitionController(log *slog.Logger, store *Store, writer StatusWriter, refresh Refresher, notifier Notifier) *TransitionController {
	return &TransitionController{
		log:      log,
		store:    store,
		writer:   writer,
		refresh:  refresh,
		notifier: notifier,
		inFlight: make(map[int64]struct{}),
	}
}

func (c *TransitionController) SetMetrics(m *metrics.SyncMetrics) { c.metrics = m }

// RequestTransition validates and executes one status change. Disallowed or
// redundant requests succeed as no-ops without touching the remote store. A
// second request for an order whose write is still in flight is rejected
// with ErrTransitionInFlight so two writes never race on the same order.
func (c *TransitionController) RequestTransition(ctx context.Context, orderID int64, next domain.OrderStatus) error {
	current, ok := c.store.Get(orderID)
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}

	plan, err := domain.PlanTransition(current.Status, next)
	if err != nil {
		return err
	}
	if plan == domain.TransitionNoop {
		c.log.Debug("transition is a no-op", "order_id", orderID, "from", current.Status, "to", next)
		return nil
	}

	if err := c.acquire(orderID); err != nil {
		return err
	}
	defer c.release(orderID)

	if err := c.writer.UpdateStatus(ctx, orderID, next); err != nil {
		c.count(next, "failure")
		c.notifier.Notify(NoticeWriteFailure,
			fmt.Sprintf("could not update order #%d to %s", orderID, next))
		return fmt.Errorf("update order %d status to %s: %w", orderID, next, err)
	}

	c.store.ApplyStatus(orderID, next)
	c.count(next, "success")
	c.log.Info("status transition applied", "order_id", orderID, "from", current.Status, "to", next)

	// A completed order leaves the active set; re-fetch so this view agrees
	// with every other concurrent viewer.
	if next == domain.StatusCompleted {
		c.refresh.Kick()
	}
	return nil
}

func (c *TransitionController) acquire(orderID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[orderID]; busy {
		return fmt.Errorf("order %d: %w", orderID, ErrTransitionInFlight)
	}
	c.inFlight[orderID] = struct{}{}
	return nil
}

func (c *TransitionController) release(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, orderID)
}

func (c *TransitionController) count(status domain.OrderStatus, result string) {
	if c.metrics != nil {
		c.metrics.Transitions.WithLabelValues(string(status), result).Inc()
	}
}
