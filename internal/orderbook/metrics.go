package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal tracks stream messages handled by message type.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalshi_arb_orderbook_updates_total",
			Help: "Total number of orderbook stream messages handled",
		},
		[]string{"type"},
	)

	// SnapshotsTracked tracks the number of books held in memory.
	SnapshotsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_orderbook_books_tracked",
		Help: "Number of order books tracked in memory",
	})

	// DeltasDroppedTotal tracks deltas dropped for unknown tickers.
	DeltasDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_orderbook_deltas_dropped_total",
		Help: "Total number of deltas dropped because no snapshot was installed",
	})

	// NotificationsDroppedTotal tracks change notifications dropped on a
	// full channel.
	NotificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_orderbook_notifications_dropped_total",
		Help: "Total number of change notifications dropped",
	})

	// UpdateProcessingDuration tracks time spent handling one message.
	UpdateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_orderbook_update_processing_seconds",
		Help:    "Duration of orderbook message handling",
		Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1},
	})
)
