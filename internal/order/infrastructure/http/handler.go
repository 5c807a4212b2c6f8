package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodcourt/vendor-dashboard/internal/countdown"
	"github.com/foodcourt/vendor-dashboard/internal/order/application"
	"github.com/foodcourt/vendor-dashboard/internal/order/domain"
)

type Handler struct {
	log        *slog.Logger
	store      *application.Store
	controller *application.TransitionController
	reconciler *application.Reconciler
	scheduler  *countdown.Scheduler
	noticeLog  *application.NoticeLog
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, store *application.Store, controller *application.TransitionController,
	reconciler *application.Reconciler, scheduler *countdown.Scheduler, noticeLog *application.NoticeLog) *Handler {
	return &Handler{
		log:        log,
		store:      store,
		controller: controller,
		reconciler: reconciler,
		scheduler:  scheduler,
		noticeLog:  noticeLog,
		tracer:     otel.Tracer("dashboard-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", h.activeOrders)
	r.Get("/orders/history", h.orderHistory)
	r.Get("/summary", h.summary)
	r.Post("/orders/{id}/status", h.updateStatus)
	r.Post("/refresh", h.refresh)
	r.Get("/notices", h.notices)

	return r
}

type countdownView struct {
	RemainingMS int64  `json:"remaining_ms"`
	Remaining   string `json:"remaining"`
}

type orderView struct {
	domain.Order
	Countdown *countdownView `json:"countdown,omitempty"`
}

func (h *Handler) activeOrders(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "ActiveOrders")
	defer span.End()

	orders := h.store.ActiveOrders()
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		v := orderView{Order: o}
		if rem, ok := h.scheduler.Remaining(o.ID); ok {
			v.Countdown = &countdownView{
				RemainingMS: rem.Milliseconds(),
				Remaining:   countdown.FormatRemaining(rem),
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) orderHistory(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "OrderHistory")
	defer span.End()

	q := strings.ToLower(r.URL.Query().Get("q"))
	date := r.URL.Query().Get("date")

	orders := h.store.CompletedOrders()
	filtered := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if q != "" && !matchesItemName(o, q) {
			continue
		}
		if date != "" && o.CreatedAt.Format("2006-01-02") != date {
			continue
		}
		filtered = append(filtered, o)
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "Summary")
	defer span.End()

	counts := make(map[domain.OrderStatus]int)
	revenue := decimal.Zero
	for _, o := range h.store.All() {
		counts[o.Status]++
		if o.Status == domain.StatusCompleted {
			revenue = revenue.Add(o.TotalPrice)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status_counts":     counts,
		"completed_revenue": revenue,
	})
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateStatus")
	defer span.End()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	switch err := h.controller.RequestTransition(ctx, orderID, status); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"order_id": chi.URLParam(r, "id"), "status": req.Status})
	case errors.Is(err, application.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, application.ErrTransitionInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		// Remote write rejected; the displayed status is unchanged.
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	h.reconciler.Kick()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

func (h *Handler) notices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.noticeLog.Recent())
}

func matchesItemName(o domain.Order, q string) bool {
	for _, line := range o.Items {
		if strings.Contains(strings.ToLower(line.Item.Name), q) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
