package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesTotal tracks finished executions by mode and group status.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_execution_trades_total",
			Help: "Total number of executions by terminal group status",
		},
		[]string{"mode", "status"},
	)

	// ProfitRealized tracks cumulative realized profit.
	ProfitRealized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_execution_profit_cents_total",
			Help: "Cumulative profit realized in cents (hypothetical for paper trading)",
		},
		[]string{"mode"},
	)

	// ExecutionDuration tracks execution latency.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_execution_duration_seconds",
		Help:    "Duration of order group execution",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionErrorsTotal tracks failed executions.
	ExecutionErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_errors_total",
		Help: "Total number of failed executions",
	})

	// ValidationFailuresTotal tracks opportunities rejected by the
	// pre-submission validation gate.
	ValidationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_validation_failures_total",
		Help: "Total number of opportunities stale by submission time",
	})

	// LegCancelsTotal tracks best-effort cancels of resting legs.
	LegCancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_execution_leg_cancels_total",
		Help: "Total number of resting legs canceled after partial fills",
	})

	// InFlight tracks executions currently holding a semaphore slot.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_execution_in_flight",
		Help: "Number of executions currently in flight",
	})
)
