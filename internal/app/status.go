package app

import (
	"time"

	"github.com/mselser95/kalshi-arb/internal/circuitbreaker"
	"github.com/mselser95/kalshi-arb/internal/execution"
	"github.com/mselser95/kalshi-arb/internal/risk"
)

// Status is the engine's externally visible condition, served on
// /status and by the CLI.
type Status struct {
	Running         bool                  `json:"running"`
	Environment     string                `json:"environment"`
	Mode            string                `json:"mode"`
	UptimeSeconds   int64                 `json:"uptime_seconds"`
	WatchedEvents   []string              `json:"watched_events"`
	TrackedBooks    int                   `json:"tracked_books"`
	StreamConnected bool                  `json:"stream_connected"`
	BalanceCents    int64                 `json:"balance_cents"`
	Scans           int64                 `json:"scans"`
	Opportunities   int64                 `json:"opportunities"`
	Trades          int64                 `json:"trades"`
	LastScan        time.Time             `json:"last_scan,omitempty"`
	Breaker         circuitbreaker.Status `json:"breaker"`
	Exposure        risk.Summary          `json:"exposure"`
	Execution       execution.Stats       `json:"execution"`
}

// Status returns a point-in-time snapshot of the engine.
func (e *Engine) Status() Status {
	status := Status{
		Running:         e.running.Load(),
		Environment:     e.cfg.Environment,
		Mode:            e.cfg.ExecutionMode,
		UptimeSeconds:   int64(time.Since(e.startTime).Seconds()),
		WatchedEvents:   e.WatchedEvents(),
		TrackedBooks:    len(e.books.Tickers()),
		StreamConnected: e.wsManager.Connected(),
		BalanceCents:    e.ledger.BalanceCents(),
		Scans:           e.scans.Load(),
		Opportunities:   e.opportunities.Load(),
		Trades:          e.trades.Load(),
		Breaker:         e.breaker.GetStatus(),
		Exposure:        e.gate.Summary(),
		Execution:       e.executor.Stats(),
	}

	if last := e.lastScanUnix.Load(); last > 0 {
		status.LastScan = time.Unix(last, 0)
	}

	return status
}

// StatusSnapshot implements httpserver.StatusSource.
func (e *Engine) StatusSnapshot() any {
	return e.Status()
}
