package app

import (
	"context"
	"fmt"
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

const marketCacheTTL = time.Hour

// New creates an engine instance from configuration. Construction
// validates everything fatal (key parsing, limit ranges, storage
// connectivity); after New succeeds only venue and network conditions
// can degrade the engine.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*Engine, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine, err := build(ctx, cancel, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	for _, event := range cfg.WatchedEvents {
		engine.watched[event] = true
	}
	for _, event := range opts.Events {
		engine.watched[event] = true
	}

	return engine, nil
}

func build(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	signer, err := kalshi.NewSigner(cfg.APIKeyID, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	client, err := kalshi.NewClient(kalshi.ClientConfig{
		BaseURL:        cfg.BaseURL,
		Signer:         signer,
		ReadRateLimit:  cfg.ReadRateLimit,
		WriteRateLimit: cfg.WriteRateLimit,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	wsManager := websocket.New(websocket.Config{
		URL:               cfg.WebsocketURL,
		Signer:            signer,
		DialTimeout:       cfg.WSDialTimeout,
		PingInterval:      cfg.WSPingInterval,
		PongTimeout:       cfg.WSPongTimeout,
		MessageBufferSize: cfg.WSMessageBufferSize,
		Logger:            logger,
	})

	books := orderbook.New(&orderbook.Config{
		Logger:         logger,
		MessageChannel: wsManager.MessageChan(),
	})

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create market cache: %w", err)
	}

	catalog := markets.New(&markets.Config{
		Client: client,
		Cache:  marketCache,
		TTL:    marketCacheTTL,
		Logger: logger,
	})

	detector, err := setupDetector(cfg, logger)
	if err != nil {
		return nil, err
	}

	acctLedger, err := ledger.New(&ledger.Config{
		Client:  client,
		FeeRate: cfg.FeeRate,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	gate, err := risk.New(&risk.Config{
		Positions: acctLedger,
		Limits: risk.Limits{
			MaxTotalExposureCents:     cfg.MaxExposureCents,
			MaxPositionPerMarket:      cfg.MaxPositionPerMarket,
			MaxExposurePerMarketCents: cfg.MaxExposurePerMarketCents,
			MaxConcurrentPositions:    cfg.MaxConcurrentPositions,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create exposure gate: %w", err)
	}

	alertManager := alerts.New(&alerts.Config{
		SlackWebhookURL:   cfg.SlackWebhookURL,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		Logger:            logger,
	})

	health := healthprobe.New()

	engine := &Engine{
		cfg:         cfg,
		logger:      logger,
		client:      client,
		wsManager:   wsManager,
		books:       books,
		marketCache: marketCache,
		catalog:     catalog,
		detector:    detector,
		ledger:      acctLedger,
		gate:        gate,
		alerts:      alertManager,
		health:      health,
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
		watched:     make(map[string]bool),
	}

	engine.breaker, err = setupBreaker(cfg, logger, engine)
	if err != nil {
		return nil, err
	}

	engine.executor = execution.New(&execution.Config{
		Mode:        cfg.ExecutionMode,
		OrderClient: client,
		Books:       books,
		Validator:   detector,
		Fills: execution.NewFillTracker(&execution.FillTrackerConfig{
			Client: client,
			Logger: logger,
		}),
		MaxConcurrent: cfg.MaxConcurrentExecutions,
		ParallelLegs:  cfg.ParallelLegSubmission,
		Logger:        logger,
	})

	engine.storage, err = setupStorage(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	engine.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.MetricsPort,
		Logger:        logger,
		HealthChecker: health,
		Books:         books,
		Status:        engine,
	})

	return engine, nil
}

func setupDetector(cfg *config.Config, logger *zap.Logger) (*arbitrage.Detector, error) {
	var rules []arbitrage.CorrelationRule
	if cfg.CorrelationRulesPath != "" {
		var err error
		rules, err = arbitrage.LoadRules(cfg.CorrelationRulesPath)
		if err != nil {
			return nil, fmt.Errorf("load correlation rules: %w", err)
		}
		logger.Info("correlation-rules-loaded",
			zap.String("path", cfg.CorrelationRulesPath),
			zap.Int("count", len(rules)))
	}

	return arbitrage.New(arbitrage.Config{
		MinProfitCents:           cfg.MinProfitCents,
		MinPriceDiffCents:        cfg.MinPriceDiffCents,
		EquivalentThresholdCents: cfg.EquivalentThresholdCents,
		FeeRate:                  cfg.FeeRate,
		EnableMultiOutcome:       cfg.EnableMultiOutcome,
		EnableTemporal:           cfg.EnableTemporal,
		EnableCorrelated:         cfg.EnableCorrelated,
		Rules:                    rules,
		Logger:                   logger,
	}), nil
}

func setupBreaker(cfg *config.Config, logger *zap.Logger, engine *Engine) (*circuitbreaker.Breaker, error) {
	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		MaxDailyLossCents:    cfg.MaxDailyLossCents,
		MaxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		MaxExposureCents:     cfg.MaxExposureCents,
		Cooldown:             cfg.Cooldown,
		HalfOpenTestLimit:    cfg.HalfOpenTestLimit,
		OnTrip:               engine.onBreakerTrip,
		OnReset:              engine.onBreakerReset,
		Logger:               logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}
	return breaker, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// onBreakerTrip runs after the breaker's mutex is released, so reading
// the breaker back is safe.
func (e *Engine) onBreakerTrip(reason string) {
	metrics := e.breaker.GetMetrics()

	e.health.SetProbe("breaker-state", false, reason)
	e.logger.Error("circuit-breaker-tripped",
		zap.String("reason", reason),
		zap.Int("daily-loss-cents", metrics.DailyLossCents),
		zap.Int("exposure-cents", metrics.TotalExposureCents))

	_ = e.alerts.CircuitBreakerTripped(e.ctx, reason,
		int64(metrics.DailyLossCents), int64(metrics.TotalExposureCents))
}

func (e *Engine) onBreakerReset() {
	e.health.SetProbe("breaker-state", true, "closed")
	e.logger.Info("circuit-breaker-reset")
}
