package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	// Mint attempts by outcome
	MintOutcome *prometheus.CounterVec

	// Full mint latency including authorization and the atomic scope
	MintLatency prometheus.Histogram

	// Admin record changes by operation
	AdminChanges *prometheus.CounterVec
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		MintOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapregistry_mints_total",
			Help: "Total mint attempts by outcome",
		}, []string{"outcome"}), // outcome: "minted", "duplicate", "unauthorized", "invalid", "error"

		MintLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wrapregistry_mint_duration_seconds",
			Help:    "Duration of full mint handling including authorization and the atomic scope",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		AdminChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrapregistry_admin_changes_total",
			Help: "Total admin record changes by operation",
		}, []string{"operation"}), // operation: "initialize", "rotate"
	}
}

// IncrementMint records one mint attempt outcome.
func (m *Metrics) IncrementMint(outcome string) {
	if m != nil {
		m.MintOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveMintLatency records the duration of a mint attempt.
func (m *Metrics) ObserveMintLatency(d time.Duration) {
	if m != nil {
		m.MintLatency.Observe(d.Seconds())
	}
}

// IncrementAdminChange records an admin record change.
func (m *Metrics) IncrementAdminChange(operation string) {
	if m != nil {
		m.AdminChanges.WithLabelValues(operation).Inc()
	}
}
