// Package app is the composition root: it wires the signed transport,
// book store, detector, risk envelope and executor into one engine and
// drives the scan, sync and stream loops.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/alerts"
	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/circuitbreaker"
	"github.com/mselser95/kalshi-arb/internal/execution"
	"github.com/mselser95/kalshi-arb/internal/ledger"
	"github.com/mselser95/kalshi-arb/internal/markets"
	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/internal/risk"
	"github.com/mselser95/kalshi-arb/internal/storage"
	"github.com/mselser95/kalshi-arb/pkg/cache"
	"github.com/mselser95/kalshi-arb/pkg/config"
	"github.com/mselser95/kalshi-arb/pkg/healthprobe"
	"github.com/mselser95/kalshi-arb/pkg/httpserver"
	"github.com/mselser95/kalshi-arb/pkg/kalshi"
	"github.com/mselser95/kalshi-arb/pkg/websocket"
)

// bookDepth is the ladder depth requested for REST snapshots.
const bookDepth = 10

// Engine owns the trading lifecycle: the stream loop feeding the book
// store, the scan loop running the detector, and the sync loop
// refreshing the ledger.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	client      *kalshi.Client
	wsManager   *websocket.Manager
	books       *orderbook.Store
	marketCache *cache.RistrettoCache
	catalog     *markets.Catalog
	detector    *arbitrage.Detector
	executor    *execution.Executor
	ledger      *ledger.Ledger
	gate        *risk.Gate
	breaker     *circuitbreaker.Breaker
	alerts      *alerts.Manager
	storage     storage.Storage
	health      *healthprobe.HealthChecker
	httpServer  *httpserver.Server

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	running       atomic.Bool
	scans         atomic.Int64
	opportunities atomic.Int64
	trades        atomic.Int64
	lastScanUnix  atomic.Int64
	lastSyncDay   atomic.Int32

	mu      sync.RWMutex
	watched map[string]bool
}

// Options holds engine start options.
type Options struct {
	// Events are event tickers to watch at startup, merged with the
	// configured WATCHED_EVENTS.
	Events []string
}
