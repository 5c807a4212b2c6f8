package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodcourt/vendor-dashboard/internal/countdown"
	"github.com/foodcourt/vendor-dashboard/internal/order/application"
	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

type stubCatalog struct{ orders []domain.Order }

func (s *stubCatalog) ListOrders(context.Context, uuid.UUID) ([]domain.Order, error) {
	return s.orders, nil
}

type stubWriter struct{ err error }

func (s *stubWriter) UpdateStatus(context.Context, int64, domain.OrderStatus) error {
	return s.err
}

func newTestHandler(t *testing.T, orders []domain.Order, writer *stubWriter) (*Handler, *application.Store, *countdown.Scheduler) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := application.NewStore()
	scheduler := countdown.NewScheduler(context.Background(), log, countdown.NewMemoryStore())
	t.Cleanup(scheduler.StopAll)
	store.Subscribe(scheduler)

	notices := application.NewNoticeLog(log)
	reconciler := application.NewReconciler(log, store, &stubCatalog{orders: orders}, notices, uuid.New())
	controller := application.NewTransitionController(log, store, writer, reconciler, notices)

	store.ReplaceAll(orders)
	return NewHandler(log, store, controller, reconciler, scheduler, notices), store, scheduler
}

func seedOrders() []domain.Order {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Order{
		{
			ID: 1, Status: domain.StatusPending, CreatedAt: base,
			TotalPrice: decimal.RequireFromString("120.50"), PickUpTime: 10,
			Items: []domain.OrderLineItem{
				{Quantity: 2, Price: decimal.RequireFromString("60.25"), Item: domain.Item{ID: 5, Name: "Paneer Roll", IsVeg: true}},
			},
		},
		{
			ID: 2, Status: domain.StatusCompleted, CreatedAt: base.Add(time.Hour),
			TotalPrice: decimal.RequireFromString("80"),
			Items: []domain.OrderLineItem{
				{Quantity: 1, Price: decimal.RequireFromString("80"), Item: domain.Item{ID: 6, Name: "Chicken Biryani"}},
			},
		},
	}
}

func TestActiveOrdersEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var views []orderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(1), views[0].ID)
	assert.Nil(t, views[0].Countdown)
}

func TestActiveOrdersCarryCountdown(t *testing.T) {
	h, store, scheduler := newTestHandler(t, seedOrders(), &stubWriter{})
	store.ApplyStatus(1, domain.StatusPreparing)

	rem, ok := scheduler.Remaining(1)
	require.True(t, ok)
	require.Greater(t, rem, time.Duration(0))

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))

	var views []orderView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Countdown)
	assert.Regexp(t, `^\d{2}:\d{2}$`, views[0].Countdown.Remaining)
}

func TestOrderHistoryFilters(t *testing.T) {
	h, _, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/history", nil))
	var orders []domain.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, int64(2), orders[0].ID)

	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/history?q=biryani", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &orders))
	assert.Len(t, orders, 1)

	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/history?q=paneer", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &orders))
	assert.Empty(t, orders)
}

func TestUpdateStatusEndpoint(t *testing.T) {
	h, store, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/1/status", strings.NewReader(`{"status":"preparing"}`))
	h.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	o, _ := store.Get(1)
	assert.Equal(t, domain.StatusPreparing, o.Status)
}

func TestUpdateStatusRejectsBadInput(t *testing.T) {
	h, _, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/1/status", strings.NewReader(`{"status":"shipped"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/999/status", strings.NewReader(`{"status":"ready"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateStatusSurfacesWriteFailure(t *testing.T) {
	h, store, _ := newTestHandler(t, seedOrders(), &stubWriter{err: errors.New("row level security")})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/1/status", strings.NewReader(`{"status":"ready"}`)))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	o, _ := store.Get(1)
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestSummaryEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		StatusCounts     map[string]int `json:"status_counts"`
		CompletedRevenue string         `json:"completed_revenue"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.StatusCounts["pending"])
	assert.Equal(t, 1, body.StatusCounts["completed"])
	assert.Equal(t, "80", body.CompletedRevenue)
}

func TestRefreshEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t, seedOrders(), &stubWriter{})

	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}
