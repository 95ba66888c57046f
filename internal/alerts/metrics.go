package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsSentTotal counts alerts delivered per sink.
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_alerts_sent_total",
		Help: "Total number of alerts delivered",
	}, []string{"sink"})

	// AlertSendErrorsTotal counts delivery failures per sink.
	AlertSendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_arb_alerts_send_errors_total",
		Help: "Total number of alert delivery failures",
	}, []string{"sink"})

	// AlertsSuppressedTotal counts alerts dropped by the rate limit.
	AlertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_alerts_suppressed_total",
		Help: "Total number of alerts suppressed by rate limiting",
	})
)
