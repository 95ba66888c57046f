package app

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// streamRetryMax caps the stream connect backoff.
const streamRetryMax = 60 * time.Second

// Run starts the engine and blocks until shutdown.
func (e *Engine) Run() error {
	e.logger.Info("engine-starting",
		zap.String("environment", e.cfg.Environment),
		zap.String("mode", e.cfg.ExecutionMode),
		zap.Int("min-profit-cents", e.cfg.MinProfitCents),
		zap.Strings("events", e.WatchedEvents()))

	err := e.startComponents()
	if err != nil {
		return err
	}

	e.running.Store(true)
	e.health.SetReady(true)
	e.health.SetProbe("breaker-state", true, "closed")

	e.logger.Info("engine-ready",
		zap.Int("metrics-port", e.cfg.MetricsPort),
		zap.String("ws-url", e.cfg.WebsocketURL))

	return e.waitForShutdown()
}

func (e *Engine) startComponents() error {
	e.wg.Add(1)
	go e.runHTTPServer()

	err := e.books.Start(e.ctx)
	if err != nil {
		return fmt.Errorf("start book store: %w", err)
	}

	e.wg.Add(1)
	go e.streamLoop()

	// Initial watch before the scan loop starts, so the first tick has
	// books to look at. Failures degrade (the sync loop retries) rather
	// than abort startup.
	for _, event := range e.WatchedEvents() {
		if err := e.WatchEvent(e.ctx, event); err != nil {
			e.logger.Warn("initial-watch-failed",
				zap.String("event-ticker", event),
				zap.Error(err))
		}
	}

	// Seed the ledger so the first scan's gate checks see real state.
	if err := e.ledger.SyncAll(e.ctx); err != nil {
		e.logger.Warn("initial-ledger-sync-failed", zap.Error(err))
	}

	e.wg.Add(1)
	go e.scanLoop()

	e.wg.Add(1)
	go e.syncLoop()

	return nil
}

func (e *Engine) runHTTPServer() {
	defer e.wg.Done()
	err := e.httpServer.Start()
	if err != nil {
		e.logger.Error("http-server-error", zap.Error(err))
	}
}

// streamLoop establishes the authenticated stream and then watches its
// health. The manager repairs drops itself; this loop only retries the
// initial connect and keeps the probe plus alerts current.
func (e *Engine) streamLoop() {
	defer e.wg.Done()

	delay := time.Second
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		err := e.wsManager.Start()
		if err == nil {
			break
		}

		e.logger.Warn("stream-connect-failed",
			zap.Duration("retry-in", delay),
			zap.Error(err))
		e.health.SetProbe("ws-connected", false, err.Error())
		_ = e.alerts.ConnectionIssue(e.ctx, "websocket", err.Error())

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > streamRetryMax {
			delay = streamRetryMax
		}
	}

	e.health.SetProbe("ws-connected", true, "")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	wasConnected := true
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			connected := e.wsManager.Connected()
			if connected == wasConnected {
				continue
			}
			wasConnected = connected

			if connected {
				e.logger.Info("stream-connection-restored")
				e.health.SetProbe("ws-connected", true, "")
			} else {
				e.logger.Warn("stream-connection-lost")
				e.health.SetProbe("ws-connected", false, "reconnecting")
				_ = e.alerts.ConnectionIssue(e.ctx, "websocket", "connection lost, reconnecting")
			}
		}
	}
}

// scanLoop runs the detector over the watched universe every scan
// interval.
func (e *Engine) scanLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("scan-loop-stopping")
			return
		case <-ticker.C:
			e.scanOnce()
		}
	}
}

// scanOnce assembles the watched universe, runs the detector, and hands
// ranked opportunities to the execution path. Errors are logged, never
// raised: the next tick gets a fresh try.
func (e *Engine) scanOnce() {
	start := time.Now()
	e.scans.Add(1)
	e.lastScanUnix.Store(start.Unix())
	e.health.SetProbe("last-scan-age", true, start.Format(time.RFC3339))

	universe := e.watchedMarkets()
	if len(universe) == 0 {
		return
	}

	books := e.books.All()
	opportunities := e.detector.Scan(universe, books)
	if len(opportunities) == 0 {
		return
	}

	e.opportunities.Add(int64(len(opportunities)))

	// Most profitable first; the executor semaphore provides
	// backpressure if the list is long.
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].NetProfitCents > opportunities[j].NetProfitCents
	})

	for _, opp := range opportunities {
		e.logger.Info("opportunity-detected",
			zap.String("id", opp.ID),
			zap.String("type", string(opp.Type)),
			zap.String("event-ticker", opp.EventTicker),
			zap.Int("net-profit-cents", opp.NetProfitCents),
			zap.Int("max-quantity", opp.MaxQuantity))

		if err := e.storage.StoreOpportunity(e.ctx, opp); err != nil {
			e.logger.Error("store-opportunity-failed", zap.Error(err))
		}
		_ = e.alerts.OpportunityDetected(e.ctx, string(opp.Type), opp.EventTicker, opp.NetProfitCents)

		e.handleOpportunity(opp)
	}
}

// watchedMarkets returns the cached markets of every watched event.
func (e *Engine) watchedMarkets() []*types.Market {
	var universe []*types.Market
	for _, event := range e.WatchedEvents() {
		cached := e.catalog.CachedMarketsForEvent(event)
		for i := range cached {
			universe = append(universe, &cached[i])
		}
	}
	return universe
}

// handleOpportunity gates one opportunity through the breaker and the
// exposure gate, sizes it, executes, and charges the outcome back to
// the breaker.
func (e *Engine) handleOpportunity(opp *arbitrage.Opportunity) {
	err := e.breaker.Allow()
	if err != nil {
		e.logger.Debug("opportunity-skipped-breaker-open",
			zap.String("id", opp.ID),
			zap.Error(err))
		return
	}

	check := e.gate.CheckTrade(opp, 1)
	if check.MaxAllowedQuantity <= 0 {
		e.logger.Debug("opportunity-skipped-exposure",
			zap.String("id", opp.ID),
			zap.String("reason", check.Reason))
		return
	}

	quantity := opp.MaxQuantity
	if check.MaxAllowedQuantity < quantity {
		quantity = check.MaxAllowedQuantity
	}
	if quantity <= 0 {
		return
	}

	result := e.executor.Execute(e.ctx, opp, quantity)

	if err := e.storage.StoreResult(e.ctx, result); err != nil {
		e.logger.Error("store-result-failed", zap.Error(err))
	}

	exposure := e.ledger.TotalExposureCents()
	if result.Success {
		e.trades.Add(1)
		e.breaker.RecordTradeResult(result.ProfitCents, exposure)
		_ = e.alerts.TradeExecuted(e.ctx, opp.EventTicker, result.ProfitCents, result.TotalLegs)
		return
	}

	// Worst-case charge: treat the full committed cost as lost until
	// the sync loop reconciles real positions.
	e.breaker.RecordTradeResult(-opp.TotalCostCents*quantity, exposure)
	_ = e.alerts.TradeFailed(e.ctx, opp.EventTicker, result.Error)

	if result.Status == execution.GroupStatusPartial {
		e.logger.Error("leg-risk-realized",
			zap.String("opportunity-id", opp.ID),
			zap.String("group-id", result.GroupID),
			zap.Int("filled-legs", result.FilledLegs),
			zap.Int("total-legs", result.TotalLegs))
	}
}

// syncLoop refreshes account state and repairs degraded subscriptions.
func (e *Engine) syncLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("sync-loop-stopping")
			return
		case <-ticker.C:
			e.syncOnce()
		}
	}
}

func (e *Engine) syncOnce() {
	err := e.ledger.SyncAll(e.ctx)
	if err != nil {
		e.logger.Warn("ledger-sync-failed", zap.Error(err))
		return
	}

	exposure := e.ledger.TotalExposureCents()
	e.breaker.RecordExposure(exposure)

	// Daily metrics roll over on the first sync of a new day.
	day := int32(time.Now().YearDay())
	if prev := e.lastSyncDay.Swap(day); prev != 0 && prev != day {
		e.breaker.ResetDailyMetrics()
		e.logger.Info("daily-metrics-reset")
	}

	e.ensureSubscriptions()

	e.logger.Debug("account-synced",
		zap.Int64("balance-cents", e.ledger.BalanceCents()),
		zap.Int("exposure-cents", exposure))
}

// ensureSubscriptions re-subscribes tickers that failed to register
// while the stream was down (a watch during an outage, for instance).
func (e *Engine) ensureSubscriptions() {
	if !e.wsManager.Connected() {
		return
	}

	subscribed := make(map[string]bool)
	for _, ticker := range e.wsManager.SubscribedTickers() {
		subscribed[ticker] = true
	}

	var missing []string
	for _, event := range e.WatchedEvents() {
		for _, ticker := range e.catalog.EventTickers(event) {
			if !subscribed[ticker] {
				missing = append(missing, ticker)
			}
		}
	}
	if len(missing) == 0 {
		return
	}

	err := e.wsManager.Subscribe(e.ctx, missing)
	if err != nil {
		e.logger.Warn("resubscribe-failed",
			zap.Int("tickers", len(missing)),
			zap.Error(err))
		return
	}

	// Books may be stale after an outage; reinstall REST snapshots.
	for _, ticker := range missing {
		data, err := e.client.GetOrderbook(e.ctx, ticker, bookDepth)
		if err != nil {
			e.logger.Warn("snapshot-refresh-failed",
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}
		e.books.InstallSnapshot(ticker, orderbook.NewBook(ticker, *data))
	}

	e.logger.Info("subscriptions-repaired", zap.Int("tickers", len(missing)))
}

func (e *Engine) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		e.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-e.ctx.Done():
		e.logger.Info("context-cancelled")
	}

	return e.Shutdown()
}
