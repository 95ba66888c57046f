package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ChecksTotal counts pre-trade exposure checks by outcome.
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_risk_checks_total",
		Help: "Total number of pre-trade exposure checks",
	}, []string{"outcome"})

	// DenialsTotal counts denied checks by the limit that fired.
	DenialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_risk_denials_total",
		Help: "Total number of denied exposure checks by limit",
	}, []string{"limit"})

	// ExposureUtilization tracks total exposure as a percentage of the
	// limit, updated on every check.
	ExposureUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_risk_exposure_utilization_pct",
		Help: "Total exposure as a percentage of the configured limit",
	})
)
