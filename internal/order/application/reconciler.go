package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foodcourt/vendor-dashboard/pkg/metrics"
)

// Reconciler re-fetches the vendor's full order set and swaps it into the
// store. It is the only component allowed to call ReplaceAll.
//
// Kick coalesces: while one reconciliation is in flight, any number of
// further kicks collapse into at most one follow-up run. The one-slot signal
// channel is the pending flag.
type Reconciler struct {
	log      *slog.Logger
	store    *Store
	catalog  CatalogClient
	notifier Notifier
	vendorID uuid.UUID
	kick     chan struct{}
	metrics  *metrics.SyncMetrics
}

func NewReconciler(log *slog.Logger, store *Store, catalog CatalogClient, notifier Notifier, vendorID uuid.UUID) *Reconciler {
	return &Reconciler{
		log:      log,
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		vendorID: vendorID,
		kick:     make(chan struct{}, 1),
	}
}

func (r *Reconciler) SetMetrics(m *metrics.SyncMetrics) { r.metrics = m }

// Kick schedules a reconciliation. Never blocks; a kick arriving while one
// is already pending is absorbed.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run consumes kicks until the dashboard view is torn down.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reconciler stopping")
			return nil
		case <-r.kick:
			if err := r.Reconcile(ctx); err != nil {
				r.log.Error("reconciliation failed", "err", err)
			}
		}
	}
}

// Reconcile performs one synchronous fetch-and-swap. On failure the store is
// left untouched: a failed reconciliation never wipes a good view.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	orders, err := r.catalog.ListOrders(ctx, r.vendorID)
	if err != nil {
		r.count("failure")
		r.notifier.Notify(NoticeFetchFailure, "could not refresh orders, showing last known state")
		return fmt.Errorf("list orders for vendor %s: %w", r.vendorID, err)
	}
	if ctx.Err() != nil {
		// The view was torn down while the fetch was in flight; the
		// result must not land in a destroyed store.
		return ctx.Err()
	}
	r.store.ReplaceAll(orders)
	r.count("success")
	r.log.Debug("reconciled", "orders", len(orders))
	return nil
}

func (r *Reconciler) count(result string) {
	if r.metrics != nil {
		r.metrics.Reconciliations.WithLabelValues(result).Inc()
	}
}
