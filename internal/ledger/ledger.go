package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/kalshi"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	defaultFeeRate    = 0.007
	defaultFillsLimit = 100

	// feeMicros is the fixed-point scale for the fee rate.
	feeMicros = 1_000_000
)

// Client is the venue surface the ledger syncs from.
type Client interface {
	GetBalance(ctx context.Context) (int64, error)
	GetPositions(ctx context.Context) ([]types.Position, error)
	GetFills(ctx context.Context, params kalshi.FillsParams) ([]types.Fill, error)
}

// Config holds ledger configuration.
type Config struct {
	Client Client

	// FeeRate is the venue fee as a fraction of potential profit.
	// Defaults to 0.007.
	FeeRate float64

	// FillsLimit caps how many recent fills each sync fetches.
	// Defaults to 100.
	FillsLimit int

	Logger *zap.Logger
}

// Ledger caches account balance, positions, and recent fills. The caches
// are replaced wholesale by the sync methods; readers always get copies,
// never views into the cache.
type Ledger struct {
	client     Client
	rateMicros int64
	fillsLimit int
	logger     *zap.Logger

	mu        sync.RWMutex
	balance   int64
	positions map[string]types.Position
	fills     []types.Fill
	lastSync  time.Time
}

// New creates a ledger from the given configuration.
func New(cfg *Config) (l *Ledger, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Client == nil {
		return nil, errors.New("client cannot be nil")
	}

	if cfg.FeeRate < 0 {
		return nil, errors.New("fee rate cannot be negative")
	}

	if cfg.FillsLimit < 0 {
		return nil, errors.New("fills limit cannot be negative")
	}

	feeRate := cfg.FeeRate
	if feeRate == 0 {
		feeRate = defaultFeeRate
	}

	fillsLimit := cfg.FillsLimit
	if fillsLimit == 0 {
		fillsLimit = defaultFillsLimit
	}

	ledger := &Ledger{
		client:     cfg.Client,
		rateMicros: int64(math.Round(feeRate * feeMicros)),
		fillsLimit: fillsLimit,
		logger:     cfg.Logger,
		positions:  make(map[string]types.Position),
	}

	return ledger, nil
}

// SyncBalance refreshes the cached account balance from the venue.
func (l *Ledger) SyncBalance(ctx context.Context) (balance int64, err error) {
	balance, err = l.client.GetBalance(ctx)
	if err != nil {
		SyncErrorsTotal.WithLabelValues("balance").Inc()
		return 0, fmt.Errorf("get balance: %w", err)
	}

	l.mu.Lock()
	l.balance = balance
	l.mu.Unlock()

	AccountBalance.Set(float64(balance))

	l.logger.Info("balance-synced", zap.Int64("balance-cents", balance))

	return balance, nil
}

// SyncPositions refreshes the positions cache from the venue and returns
// a copy keyed by ticker.
func (l *Ledger) SyncPositions(ctx context.Context) (positions map[string]types.Position, err error) {
	fetched, err := l.client.GetPositions(ctx)
	if err != nil {
		SyncErrorsTotal.WithLabelValues("positions").Inc()
		return nil, fmt.Errorf("get positions: %w", err)
	}

	byTicker := make(map[string]types.Position, len(fetched))
	for _, p := range fetched {
		byTicker[p.Ticker] = p
	}

	exposure := 0
	for _, p := range byTicker {
		exposure += p.MarketExposure
	}

	now := time.Now()

	l.mu.Lock()
	l.positions = byTicker
	l.lastSync = now
	l.mu.Unlock()

	OpenPositions.Set(float64(len(byTicker)))
	TotalExposure.Set(float64(exposure))
	LastSyncTimestamp.Set(float64(now.Unix()))

	l.logger.Info("positions-synced",
		zap.Int("count", len(byTicker)),
		zap.Int("exposure-cents", exposure))

	return copyPositions(byTicker), nil
}

// SyncFills refreshes the recent-fills buffer from the venue.
func (l *Ledger) SyncFills(ctx context.Context) (fills []types.Fill, err error) {
	fetched, err := l.client.GetFills(ctx, kalshi.FillsParams{Limit: l.fillsLimit})
	if err != nil {
		SyncErrorsTotal.WithLabelValues("fills").Inc()
		return nil, fmt.Errorf("get fills: %w", err)
	}

	l.mu.Lock()
	l.fills = fetched
	l.mu.Unlock()

	FillsCached.Set(float64(len(fetched)))

	l.logger.Debug("fills-synced", zap.Int("count", len(fetched)))

	return append([]types.Fill(nil), fetched...), nil
}

// SyncAll refreshes balance, positions, and fills in one pass.
func (l *Ledger) SyncAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		SyncDuration.Observe(time.Since(start).Seconds())
	}()

	if _, err = l.SyncBalance(ctx); err != nil {
		return err
	}

	if _, err = l.SyncPositions(ctx); err != nil {
		return err
	}

	if _, err = l.SyncFills(ctx); err != nil {
		return err
	}

	return nil
}

// BalanceCents returns the cached account balance.
func (l *Ledger) BalanceCents() (balance int64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balance
}

// Position returns the cached position for a ticker.
func (l *Ledger) Position(ticker string) (position types.Position, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	position, ok = l.positions[ticker]
	return position, ok
}

// Positions returns a copy of the positions cache keyed by ticker.
func (l *Ledger) Positions() (positions map[string]types.Position) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return copyPositions(l.positions)
}

// Fills returns a copy of the recent-fills buffer.
func (l *Ledger) Fills() (fills []types.Fill) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]types.Fill(nil), l.fills...)
}

// LastSync returns the time of the last successful positions sync.
func (l *Ledger) LastSync() (t time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lastSync
}

// TotalExposureCents returns the summed market exposure across all cached
// positions.
func (l *Ledger) TotalExposureCents() (exposure int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.positions {
		exposure += p.MarketExposure
	}
	return exposure
}

// ExposureByMarket returns per-ticker exposure in cents for every market
// with money at risk.
func (l *Ledger) ExposureByMarket() (exposure map[string]int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	exposure = make(map[string]int)
	for ticker, p := range l.positions {
		if p.MarketExposure > 0 {
			exposure[ticker] = p.MarketExposure
		}
	}
	return exposure
}

// PositionDetail is one open position inside a PositionSummary.
type PositionDetail struct {
	Contracts     int        `json:"contracts"`
	Side          types.Side `json:"side,omitempty"`
	ExposureCents int        `json:"exposure_cents"`
}

// PositionSummary aggregates open positions for status reporting. Flat
// positions are excluded.
type PositionSummary struct {
	TotalPositions     int                       `json:"total_positions"`
	TotalExposureCents int                       `json:"total_exposure_cents"`
	ByTicker           map[string]PositionDetail `json:"positions_by_ticker"`
}

// Summary returns an aggregate view of all open positions.
func (l *Ledger) Summary() (summary PositionSummary) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary.ByTicker = make(map[string]PositionDetail)
	for ticker, p := range l.positions {
		if p.Contracts() == 0 {
			continue
		}
		summary.TotalPositions++
		summary.TotalExposureCents += p.MarketExposure
		summary.ByTicker[ticker] = PositionDetail{
			Contracts:     p.Contracts(),
			Side:          p.Side(),
			ExposureCents: p.MarketExposure,
		}
	}
	return summary
}

func copyPositions(src map[string]types.Position) map[string]types.Position {
	dst := make(map[string]types.Position, len(src))
	for ticker, p := range src {
		dst[ticker] = p
	}
	return dst
}
