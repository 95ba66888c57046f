package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// AccountBalance tracks the cached account balance.
	AccountBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_balance_cents",
		Help: "Account balance in cents",
	})

	// TotalExposure tracks the summed market exposure across positions.
	TotalExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_exposure_cents",
		Help: "Total market exposure across all positions in cents",
	})

	// OpenPositions tracks the number of cached positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_open_positions",
		Help: "Number of positions in the ledger cache",
	})

	// FillsCached tracks the size of the recent-fills buffer.
	FillsCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_fills_cached",
		Help: "Number of fills in the recent-fills buffer",
	})

	// RealizedPnL tracks realized P&L from the last computation.
	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_realized_pnl_cents",
		Help: "Realized P&L from FIFO-matched fills in cents",
	})

	// FeesPaid tracks estimated fees from the last P&L computation.
	FeesPaid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_fees_cents",
		Help: "Estimated venue fees across cached fills in cents",
	})

	// SyncErrorsTotal counts failed sync calls by kind.
	SyncErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_ledger_sync_errors_total",
		Help: "Total number of failed ledger sync calls",
	}, []string{"kind"})

	// SyncDuration tracks the time taken by a full sync pass.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_ledger_sync_duration_seconds",
		Help:    "Time taken to sync balance, positions, and fills (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastSyncTimestamp tracks the Unix timestamp of the last positions sync.
	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ledger_last_sync_timestamp",
		Help: "Unix timestamp of last successful positions sync",
	})
)
