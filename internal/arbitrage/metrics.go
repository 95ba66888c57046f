package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal counts detected opportunities by strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		},
		[]string{"strategy"},
	)

	// OpportunitiesRejectedTotal counts rejected candidates by strategy and reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected",
		},
		[]string{"strategy", "reason"},
	)

	// OpportunityNetProfitCents tracks net profit per unit quantity.
	OpportunityNetProfitCents = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_opportunity_net_profit_cents",
		Help:    "Net profit after fees per unit quantity, in cents",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	// ScanDurationSeconds tracks full detector scan latency.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_scan_duration_seconds",
		Help:    "Duration of one detector scan across all strategies",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})
)
