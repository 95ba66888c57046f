package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks whether the stream connection is up.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ws_active_connections",
		Help: "Number of active WebSocket connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_ws_reconnect_attempts_total",
		Help: "Total number of WebSocket reconnection attempts",
	})

	// ReconnectFailuresTotal tracks failed reconnection attempts.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_ws_reconnect_failures_total",
		Help: "Total number of failed WebSocket reconnection attempts",
	})

	// MessagesReceivedTotal counts decoded stream messages by type.
	MessagesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_ws_messages_received_total",
		Help: "Total number of WebSocket messages received",
	}, []string{"type"})

	// MessagesDroppedTotal counts messages dropped before delivery.
	MessagesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_ws_messages_dropped_total",
		Help: "Total number of WebSocket messages dropped",
	}, []string{"reason"})

	// SubscriptionCount tracks the number of subscribed market tickers.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kalshi_arb_ws_subscriptions",
		Help: "Number of market tickers subscribed on the stream",
	})

	// UnsubscriptionsTotal counts unsubscribe commands sent.
	UnsubscriptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_ws_unsubscriptions_total",
		Help: "Total number of unsubscribe commands sent",
	})

	// MessageLatencySeconds measures message decode and dispatch time.
	MessageLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_ws_message_latency_seconds",
		Help:    "Latency of WebSocket message processing",
		Buckets: prometheus.DefBuckets,
	})

	// ConnectionDuration measures how long connections stay up.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_ws_connection_duration_seconds",
		Help:    "Duration of WebSocket connections",
		Buckets: []float64{1, 10, 60, 300, 600, 1800, 3600, 7200},
	})
)
