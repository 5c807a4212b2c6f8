package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

type mockCatalog struct {
	listFn func(ctx context.Context, vendorID uuid.UUID) ([]domain.Order, error)
}

func (m *mockCatalog) ListOrders(ctx context.Context, vendorID uuid.UUID) ([]domain.Order, error) {
	return m.listFn(ctx, vendorID)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcileReplacesStore(t *testing.T) {
	store := NewStore()
	want := []domain.Order{testOrder(1, domain.StatusPending, time.Now().UTC())}
	cat := &mockCatalog{listFn: func(context.Context, uuid.UUID) ([]domain.Order, error) {
		return want, nil
	}}
	rec := NewReconciler(discard(), store, cat, NewNoticeLog(discard()), uuid.New())

	require.NoError(t, rec.Reconcile(context.Background()))
	o, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestReconcileFailurePreservesLastGoodView(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]domain.Order{testOrder(1, domain.StatusPreparing, time.Now().UTC())})

	cat := &mockCatalog{listFn: func(context.Context, uuid.UUID) ([]domain.Order, error) {
		return nil, errors.New("connection refused")
	}}
	notices := NewNoticeLog(discard())
	rec := NewReconciler(discard(), store, cat, notices, uuid.New())

	err := rec.Reconcile(context.Background())
	assert.Error(t, err)

	o, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPreparing, o.Status)

	recent := notices.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, NoticeFetchFailure, recent[0].Kind)
}

func TestReconcileDiscardsResultAfterTeardown(t *testing.T) {
	store := NewStore()
	store.ReplaceAll([]domain.Order{testOrder(1, domain.StatusPending, time.Now().UTC())})

	ctx, cancel := context.WithCancel(context.Background())
	cat := &mockCatalog{listFn: func(context.Context, uuid.UUID) ([]domain.Order, error) {
		// The view is torn down while the fetch is in flight.
		cancel()
		return []domain.Order{testOrder(2, domain.StatusReady, time.Now().UTC())}, nil
	}}
	rec := NewReconciler(discard(), store, cat, NewNoticeLog(discard()), uuid.New())

	err := rec.Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := store.Get(2)
	assert.False(t, ok, "result of an in-flight fetch must not land in a torn-down store")
	_, ok = store.Get(1)
	assert.True(t, ok)
}

func TestKickCoalescesWhileInFlight(t *testing.T) {
	store := NewStore()
	calls := make(chan struct{})
	proceed := make(chan struct{})
	cat := &mockCatalog{listFn: func(context.Context, uuid.UUID) ([]domain.Order, error) {
		calls <- struct{}{}
		<-proceed
		return nil, nil
	}}
	rec := NewReconciler(discard(), store, cat, NewNoticeLog(discard()), uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = rec.Run(ctx) }()

	rec.Kick()
	<-calls // first reconciliation in flight

	// Two rapid feed events arrive while the fetch is running.
	rec.Kick()
	rec.Kick()

	proceed <- struct{}{}

	// Exactly one follow-up reconciliation starts.
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected one follow-up reconciliation")
	}
	proceed <- struct{}{}

	// And no third one.
	select {
	case <-calls:
		t.Fatal("coalescing failed: more than one pending reconciliation")
	case <-time.After(100 * time.Millisecond):
	}
}
