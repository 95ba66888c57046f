package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultReconnectInitialDelay = time.Second
	defaultReconnectMaxDelay     = 60 * time.Second
	defaultReconnectMultiplier   = 2.0
)

// ReconnectConfig bounds the reconnect backoff schedule.
type ReconnectConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ReconnectManager retries a connect function on an exponential backoff
// schedule until it succeeds or the context ends.
type ReconnectManager struct {
	config  ReconnectConfig
	logger  *zap.Logger
	mu      sync.Mutex
	backoff *backoff.ExponentialBackOff
}

// NewReconnectManager creates a reconnection manager with the specified
// config. Zero fields fall back to a 1s..60s doubling schedule.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = defaultReconnectInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultReconnectMaxDelay
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = defaultReconnectMultiplier
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay
	b.Multiplier = cfg.Multiplier

	return &ReconnectManager{
		config:  cfg,
		logger:  logger,
		backoff: b,
	}
}

// Reconnect blocks until connectFunc succeeds, sleeping the next backoff
// interval before every attempt. The schedule resets on success.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connectFunc func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		wait := rm.next()

		rm.logger.Info("attempting-reconnection",
			zap.Duration("backoff", wait))

		ReconnectAttemptsTotal.Inc()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		err := connectFunc(ctx)
		if err == nil {
			rm.Reset()
			rm.logger.Info("reconnection-successful")
			return nil
		}

		rm.logger.Warn("reconnection-failed", zap.Error(err))
		ReconnectFailuresTotal.Inc()
	}
}

// Reset restarts the backoff schedule from the initial delay.
func (rm *ReconnectManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.backoff.Reset()
}

// next returns the next jittered backoff interval, capped at MaxDelay.
func (rm *ReconnectManager) next() time.Duration {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	wait := rm.backoff.NextBackOff()
	if wait == backoff.Stop || wait > rm.config.MaxDelay {
		wait = rm.config.MaxDelay
	}
	return wait
}
