package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores the Prometheus collectors used across the bot.
type Metrics struct {
	IncomingEvents  *prometheus.CounterVec
	OutgoingSends   *prometheus.CounterVec
	EngineLatency   *prometheus.HistogramVec
	OrdersCreated   prometheus.Counter
	OrdersClaimed   prometheus.Counter
	OrdersCompleted prometheus.Counter
	Errors          *prometheus.CounterVec
}

var (
	regOnce  sync.Once
	instance *Metrics
)

// Registry builds and registers the metrics singleton with an optional
// namespace. Safe to call more than once.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		instance = &Metrics{
			IncomingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "incoming_events_total",
				Help:      "Total inbound updates processed, by kind.",
			}, []string{"kind"}),
			OutgoingSends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outgoing_sends_total",
				Help:      "Total outbound sends, by type and outcome.",
			}, []string{"type", "status"}),
			EngineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "engine_event_duration_seconds",
				Help:      "Latency distribution of engine event handling.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total orders created.",
			}),
			OrdersClaimed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_claimed_total",
				Help:      "Total successful order claims.",
			}),
			OrdersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_completed_total",
				Help:      "Total completed orders.",
			}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			instance.IncomingEvents,
			instance.OutgoingSends,
			instance.EngineLatency,
			instance.OrdersCreated,
			instance.OrdersClaimed,
			instance.OrdersCompleted,
			instance.Errors,
		)
	})
	return instance
}
