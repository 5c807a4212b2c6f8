package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/foodcourt/vendor-dashboard/internal/order/application"
	"github.com/foodcourt/vendor-dashboard/pkg/metrics"
	"github.com/foodcourt/vendor-dashboard/pkg/tracing"
)

// changeEvent is the CDC envelope on the order-table topic. The feed is a
// dirty signal only; the payload beyond op and table is ignored and the
// actual data always comes from a full re-fetch.
type changeEvent struct {
	Op    string `json:"op"`
	Table string `json:"table"`
}

// Listener subscribes to the order-table change feed for the lifetime of the
// dashboard view and kicks the reconciler on every mutation event. Coalescing
// of bursts happens in the reconciler; the listener never fetches data itself.
type Listener struct {
	log     *slog.Logger
	reader  *kafka.Reader
	refresh application.Refresher
	tracer  trace.Tracer
	metrics *metrics.SyncMetrics
}

func NewListener(log *slog.Logger, brokers []string, topic, group string, refresh application.Refresher) *Listener {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Listener{
		log:     log,
		reader:  r,
		refresh: refresh,
		tracer:  otel.Tracer("change-feed"),
	}
}

func (l *Listener) SetMetrics(m *metrics.SyncMetrics) { l.metrics = m }

// Run consumes until ctx is cancelled, then closes the subscription exactly
// once. No callback fires after Run returns.
func (l *Listener) Run(ctx context.Context) error {
	defer l.reader.Close()

	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				l.log.Info("change feed stopping")
				return nil
			}
			return err
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		_, span := l.tracer.Start(msgCtx, "ConsumeChangeEvent")

		var event changeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			l.log.Error("unmarshal change event failed", "err", err)
			span.End()
			_ = l.reader.CommitMessages(ctx, msg)
			continue
		}

		if event.Table == "orders" && isMutation(event.Op) {
			if l.metrics != nil {
				l.metrics.FeedEvents.Inc()
			}
			l.log.Debug("change feed event", "op", event.Op)
			l.refresh.Kick()
		}

		span.End()
		_ = l.reader.CommitMessages(ctx, msg)
	}
}

func isMutation(op string) bool {
	switch op {
	case "insert", "update", "delete":
		return true
	}
	return false
}
