package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments on a private
// registry, so tests can create as many as they like without duplicate
// registration panics.
type Metrics struct {
	registry *prometheus.Registry

	CheckoutSessions *prometheus.CounterVec
	CartMutations    *prometheus.CounterVec
	OrderPlacement   prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CheckoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refurnish_checkout_sessions_total",
			Help: "Checkout sessions by payment mode and terminal state.",
		}, []string{"payment_mode", "state"}),
		CartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refurnish_cart_mutations_total",
			Help: "Cart line mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		OrderPlacement: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refurnish_order_placement_seconds",
			Help:    "Latency of order placement calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
