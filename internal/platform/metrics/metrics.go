// Package metrics holds the HTTP-level Prometheus instruments. Domain
// instruments live next to the registry service in
// internal/registry/metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP aggregates request-level metrics recorded by the transport
// middleware.
type HTTP struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewHTTP creates and registers the HTTP metrics.
func NewHTTP() *HTTP {
	return &HTTP{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapregistry_http_requests_total",
			Help: "HTTP requests by route, method, and status class",
		}, []string{"route", "method", "status"}),

		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wrapregistry_http_request_duration_seconds",
			Help:    "HTTP request handling duration by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
	}
}

// Observe records one handled request. Nil receivers are no-ops so
// tests can run routers without a registry.
func (m *HTTP) Observe(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, status).Inc()
	m.Latency.WithLabelValues(route).Observe(elapsed.Seconds())
}
