package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CircuitBreakerState tracks the breaker's current state.
	CircuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	// CircuitBreakerTrips counts breaker trips by trigger.
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips by trigger",
	}, []string{"reason"})

	// CircuitBreakerRejections counts trade allowances denied by the breaker.
	CircuitBreakerRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_circuit_breaker_rejections_total",
		Help: "Total number of trade allowances denied while open or over the half-open limit",
	})

	// CircuitBreakerDailyLoss tracks accumulated loss for the current trading day.
	CircuitBreakerDailyLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_daily_loss_cents",
		Help: "Accumulated loss in cents for the current trading day",
	})

	// CircuitBreakerConsecutiveLosses tracks the current losing streak.
	CircuitBreakerConsecutiveLosses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_consecutive_losses",
		Help: "Current count of consecutive losing trades",
	})

	// CircuitBreakerExposure tracks the last reported total exposure.
	CircuitBreakerExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_circuit_breaker_exposure_cents",
		Help: "Last reported total market exposure in cents",
	})
)
