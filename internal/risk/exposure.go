package risk

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	defaultMaxTotalExposureCents     = 50000
	defaultMaxPositionPerMarket      = 100
	defaultMaxExposurePerMarketCents = 10000
	defaultMaxConcurrentPositions    = 5
)

// PositionSource is the position view the gate checks against. The
// ledger satisfies it.
type PositionSource interface {
	Position(ticker string) (types.Position, bool)
	TotalExposureCents() int
	ExposureByMarket() map[string]int
}

// Limits bounds how much capital the gate lets the engine put at risk.
// MaxConcurrentPositions caps the number of distinct markets holding a
// position at once.
type Limits struct {
	MaxTotalExposureCents     int `json:"max_total_exposure_cents"`
	MaxPositionPerMarket      int `json:"max_position_per_market"`
	MaxExposurePerMarketCents int `json:"max_exposure_per_market_cents"`
	MaxConcurrentPositions    int `json:"max_concurrent_positions"`
}

// Check is the result of a pre-trade exposure check.
type Check struct {
	Allowed              bool   `json:"allowed"`
	Reason               string `json:"reason,omitempty"`
	MaxAllowedQuantity   int    `json:"max_allowed_quantity"`
	CurrentExposureCents int    `json:"current_exposure_cents"`
	LimitExposureCents   int    `json:"limit_exposure_cents"`
}

// Config holds gate configuration. Zero limit fields take the package
// defaults.
type Config struct {
	Positions PositionSource
	Limits    Limits
	Logger    *zap.Logger
}

// Gate approves or denies order groups against exposure limits. It
// holds no state of its own; all position data comes from the source,
// which must be safe for concurrent use.
type Gate struct {
	positions PositionSource
	limits    Limits
	logger    *zap.Logger
}

// New creates an exposure gate from the given configuration.
func New(cfg *Config) (g *Gate, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Positions == nil {
		return nil, errors.New("position source cannot be nil")
	}

	limits := cfg.Limits
	if limits.MaxTotalExposureCents < 0 {
		return nil, errors.New("max total exposure cannot be negative")
	}
	if limits.MaxPositionPerMarket < 0 {
		return nil, errors.New("max position per market cannot be negative")
	}
	if limits.MaxExposurePerMarketCents < 0 {
		return nil, errors.New("max per-market exposure cannot be negative")
	}
	if limits.MaxConcurrentPositions < 0 {
		return nil, errors.New("max concurrent positions cannot be negative")
	}

	if limits.MaxTotalExposureCents == 0 {
		limits.MaxTotalExposureCents = defaultMaxTotalExposureCents
	}
	if limits.MaxPositionPerMarket == 0 {
		limits.MaxPositionPerMarket = defaultMaxPositionPerMarket
	}
	if limits.MaxExposurePerMarketCents == 0 {
		limits.MaxExposurePerMarketCents = defaultMaxExposurePerMarketCents
	}
	if limits.MaxConcurrentPositions == 0 {
		limits.MaxConcurrentPositions = defaultMaxConcurrentPositions
	}

	gate := &Gate{
		positions: cfg.Positions,
		limits:    limits,
		logger:    cfg.Logger,
	}

	return gate, nil
}

// Limits returns the configured limits.
func (g *Gate) Limits() (limits Limits) {
	return g.limits
}

// CheckTrade reports whether an opportunity may execute at the given
// per-leg quantity. Quantity defaults to 1 when non-positive, so a
// plain probe checks the smallest viable trade. MaxAllowedQuantity is
// always the largest quantity every limit still admits, letting the
// caller size up from a probe.
func (g *Gate) CheckTrade(opp *arbitrage.Opportunity, quantity int) (check Check) {
	if quantity <= 0 {
		quantity = 1
	}

	currentTotal := g.positions.TotalExposureCents()

	check = Check{
		MaxAllowedQuantity:   g.maxAllowedQuantity(opp, currentTotal),
		CurrentExposureCents: currentTotal,
		LimitExposureCents:   g.limits.MaxTotalExposureCents,
	}

	ExposureUtilization.Set(g.utilizationFor(currentTotal))

	projectedTotal := currentTotal + opp.TotalCostCents*quantity
	if projectedTotal > g.limits.MaxTotalExposureCents {
		check.Reason = fmt.Sprintf("Would exceed total exposure limit: $%.2f > $%.2f",
			float64(projectedTotal)/100,
			float64(g.limits.MaxTotalExposureCents)/100)
		g.deny(&check, "total_exposure", quantity)
		return check
	}

	for _, leg := range opp.Legs {
		contracts, marketExposure := g.marketState(leg.Ticker)

		if contracts+quantity > g.limits.MaxPositionPerMarket {
			check.Reason = fmt.Sprintf("Would exceed position limit for %s: %d > %d",
				leg.Ticker, contracts+quantity, g.limits.MaxPositionPerMarket)
			g.deny(&check, "position_limit", quantity)
			return check
		}

		if marketExposure+leg.Price*quantity > g.limits.MaxExposurePerMarketCents {
			check.Reason = fmt.Sprintf("Would exceed per-market exposure for %s", leg.Ticker)
			g.deny(&check, "market_exposure", quantity)
			return check
		}
	}

	if projected := g.projectedOpenMarkets(opp); projected > g.limits.MaxConcurrentPositions {
		check.Reason = fmt.Sprintf("Would exceed concurrent position limit: %d markets > %d",
			projected, g.limits.MaxConcurrentPositions)
		g.deny(&check, "concurrent_positions", quantity)
		return check
	}

	check.Allowed = true
	ChecksTotal.WithLabelValues("allowed").Inc()

	return check
}

// AdjustQuantity caps a desired per-leg quantity at what the limits
// admit. Returns 0 when no quantity fits.
func (g *Gate) AdjustQuantity(opp *arbitrage.Opportunity, desired int) (quantity int) {
	if desired <= 0 {
		return 0
	}

	check := g.CheckTrade(opp, desired)
	if check.Allowed {
		return desired
	}

	return check.MaxAllowedQuantity
}

// AvailableExposureCents returns the remaining room under the total
// exposure limit.
func (g *Gate) AvailableExposureCents() (available int) {
	available = g.limits.MaxTotalExposureCents - g.positions.TotalExposureCents()
	if available < 0 {
		return 0
	}
	return available
}

// Utilization returns total exposure as a percentage of the limit.
func (g *Gate) Utilization() (pct float64) {
	return g.utilizationFor(g.positions.TotalExposureCents())
}

// MarketLimits describes the remaining room in one market.
type MarketLimits struct {
	Ticker                 string `json:"ticker"`
	CurrentContracts       int    `json:"current_contracts"`
	MaxContracts           int    `json:"max_contracts"`
	AvailableContracts     int    `json:"available_contracts"`
	CurrentExposureCents   int    `json:"current_exposure_cents"`
	MaxExposureCents       int    `json:"max_exposure_cents"`
	AvailableExposureCents int    `json:"available_exposure_cents"`
}

// MarketLimits returns contract and exposure headroom for a ticker.
func (g *Gate) MarketLimits(ticker string) (limits MarketLimits) {
	contracts, marketExposure := g.marketState(ticker)

	limits = MarketLimits{
		Ticker:                 ticker,
		CurrentContracts:       contracts,
		MaxContracts:           g.limits.MaxPositionPerMarket,
		AvailableContracts:     clampZero(g.limits.MaxPositionPerMarket - contracts),
		CurrentExposureCents:   marketExposure,
		MaxExposureCents:       g.limits.MaxExposurePerMarketCents,
		AvailableExposureCents: clampZero(g.limits.MaxExposurePerMarketCents - marketExposure),
	}

	return limits
}

// Summary is an aggregate exposure view for status reporting.
type Summary struct {
	TotalExposureCents     int     `json:"total_exposure_cents"`
	MaxExposureCents       int     `json:"max_exposure_cents"`
	AvailableCents         int     `json:"available_cents"`
	UtilizationPct         float64 `json:"utilization_pct"`
	MarketsCount           int     `json:"markets_count"`
	MaxMarketsCount        int     `json:"max_markets_count"`
	PerMarketLimitCents    int     `json:"per_market_limit_cents"`
	PerMarketPositionLimit int     `json:"per_market_position_limit"`
}

// Summary returns the gate's aggregate exposure view.
func (g *Gate) Summary() (summary Summary) {
	currentTotal := g.positions.TotalExposureCents()

	summary = Summary{
		TotalExposureCents:     currentTotal,
		MaxExposureCents:       g.limits.MaxTotalExposureCents,
		AvailableCents:         clampZero(g.limits.MaxTotalExposureCents - currentTotal),
		UtilizationPct:         g.utilizationFor(currentTotal),
		MarketsCount:           len(g.positions.ExposureByMarket()),
		MaxMarketsCount:        g.limits.MaxConcurrentPositions,
		PerMarketLimitCents:    g.limits.MaxExposurePerMarketCents,
		PerMarketPositionLimit: g.limits.MaxPositionPerMarket,
	}

	return summary
}

// maxAllowedQuantity returns the largest quantity satisfying every
// limit at once. Each limit is monotone in quantity, so the answer is
// the minimum of the per-limit closed forms.
func (g *Gate) maxAllowedQuantity(opp *arbitrage.Opportunity, currentTotal int) int {
	bound := -1

	apply := func(q int) {
		if q < 0 {
			q = 0
		}
		if bound < 0 || q < bound {
			bound = q
		}
	}

	if opp.TotalCostCents > 0 {
		apply((g.limits.MaxTotalExposureCents - currentTotal) / opp.TotalCostCents)
	}

	// The concurrent-position cap does not scale with quantity: any
	// quantity at all opens the same set of new markets.
	if g.projectedOpenMarkets(opp) > g.limits.MaxConcurrentPositions {
		apply(0)
	}

	for _, leg := range opp.Legs {
		contracts, marketExposure := g.marketState(leg.Ticker)

		apply(g.limits.MaxPositionPerMarket - contracts)

		if leg.Price > 0 {
			apply((g.limits.MaxExposurePerMarketCents - marketExposure) / leg.Price)
		}
	}

	if bound < 0 {
		return 0
	}
	return bound
}

// projectedOpenMarkets counts the distinct markets that would hold a
// position if the opportunity executed: markets already carrying
// exposure plus every leg in a market the account is flat in.
func (g *Gate) projectedOpenMarkets(opp *arbitrage.Opportunity) int {
	open := g.positions.ExposureByMarket()
	projected := len(open)

	for _, leg := range opp.Legs {
		if _, ok := open[leg.Ticker]; ok {
			continue
		}
		if contracts, _ := g.marketState(leg.Ticker); contracts != 0 {
			continue
		}
		projected++
	}

	return projected
}

// marketState returns held contracts and exposure for a ticker, zero
// for flat markets.
func (g *Gate) marketState(ticker string) (contracts, marketExposure int) {
	position, ok := g.positions.Position(ticker)
	if !ok {
		return 0, 0
	}
	return position.Contracts(), position.MarketExposure
}

func (g *Gate) deny(check *Check, limit string, quantity int) {
	ChecksTotal.WithLabelValues("denied").Inc()
	DenialsTotal.WithLabelValues(limit).Inc()

	g.logger.Debug("exposure-check-denied",
		zap.String("reason", check.Reason),
		zap.Int("quantity", quantity),
		zap.Int("max-allowed", check.MaxAllowedQuantity))
}

func (g *Gate) utilizationFor(currentTotal int) float64 {
	if g.limits.MaxTotalExposureCents == 0 {
		return 100
	}
	return float64(currentTotal) / float64(g.limits.MaxTotalExposureCents) * 100
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
