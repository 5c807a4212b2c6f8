package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SyncMetrics struct {
	Requests         *prometheus.CounterVec
	Reconciliations  *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	FeedEvents       prometheus.Counter
	ActiveCountdowns prometheus.Gauge
}

func NewSyncMetrics(service string) *SyncMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodcourt",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodcourt",
		Subsystem: service,
		Name:      "reconciliations_total",
		Help:      "Full order re-fetches, by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "foodcourt",
		Subsystem: service,
		Name:      "status_transitions_total",
		Help:      "Vendor-initiated status transitions, by target status and result.",
	}, []string{"status", "result"})
	feedEvents := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "foodcourt",
		Subsystem: service,
		Name:      "change_feed_events_total",
		Help:      "Change feed events that kicked a reconciliation.",
	})
	activeCountdowns := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "foodcourt",
		Subsystem: service,
		Name:      "active_countdowns",
		Help:      "Countdown timers currently ticking.",
	})

	prometheus.MustRegister(requests, reconciliations, transitions, feedEvents, activeCountdowns)
	return &SyncMetrics{
		Requests:         requests,
		Reconciliations:  reconciliations,
		Transitions:      transitions,
		FeedEvents:       feedEvents,
		ActiveCountdowns: activeCountdowns,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
