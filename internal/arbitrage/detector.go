package arbitrage

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Strategy is a pure scan over current markets and their books.
type Strategy interface {
	Name() string
	Scan(markets []*types.Market, books map[string]*orderbook.Book) []*Opportunity
}

// Config holds detector configuration.
type Config struct {
	MinProfitCents           int
	MinPriceDiffCents        int
	EquivalentThresholdCents int
	FeeRate                  float64
	EnableMultiOutcome       bool
	EnableTemporal           bool
	EnableCorrelated         bool
	Rules                    []CorrelationRule
	Logger                   *zap.Logger
}

// Detector runs the enabled strategies over a market universe and ranks
// what they find.
type Detector struct {
	config     Config
	calc       *Calculator
	strategies []Strategy
	logger     *zap.Logger
}

// New creates a detector with the strategies enabled in cfg.
func New(cfg Config) *Detector {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calc := NewCalculator(cfg.FeeRate)

	var strategies []Strategy
	if cfg.EnableMultiOutcome {
		strategies = append(strategies, NewMultiOutcomeStrategy(calc, cfg.MinProfitCents, logger))
	}
	if cfg.EnableTemporal {
		strategies = append(strategies, NewTemporalStrategy(calc, cfg.MinProfitCents, cfg.MinPriceDiffCents, logger))
	}
	if cfg.EnableCorrelated {
		strategies = append(strategies, NewCorrelatedStrategy(calc, cfg.MinProfitCents, cfg.EquivalentThresholdCents, cfg.Rules, logger))
	}

	return &Detector{
		config:     cfg,
		calc:       calc,
		strategies: strategies,
		logger:     logger,
	}
}

// Scan runs every enabled strategy over the given markets and books and
// returns all candidates found.
func (d *Detector) Scan(markets []*types.Market, books map[string]*orderbook.Book) []*Opportunity {
	start := time.Now()

	var opps []*Opportunity
	for _, strat := range d.strategies {
		found := strat.Scan(markets, books)
		for _, opp := range found {
			OpportunitiesDetectedTotal.WithLabelValues(strat.Name()).Inc()
			OpportunityNetProfitCents.Observe(float64(opp.NetProfitCents))
			d.logger.Info("arbitrage-opportunity-detected",
				zap.String("opportunity-id", opp.ID),
				zap.String("strategy", strat.Name()),
				zap.String("event", opp.EventTicker),
				zap.Int("net-profit-cents", opp.NetProfitCents),
				zap.Int("max-quantity", opp.MaxQuantity),
				zap.Float64("confidence", opp.Confidence))
		}
		opps = append(opps, found...)
	}

	ScanDurationSeconds.Observe(time.Since(start).Seconds())
	return opps
}

// BestOf ranks profitable candidates by net profit, then confidence,
// then max quantity, and returns the winner. Returns nil when no
// candidate clears fees.
func (d *Detector) BestOf(opps []*Opportunity) *Opportunity {
	var best *Opportunity
	for _, opp := range opps {
		if !opp.IsProfitable() {
			continue
		}
		if best == nil || ranksAbove(opp, best) {
			best = opp
		}
	}
	return best
}

// ranksAbove compares opportunities on the lexicographic key
// (net profit, confidence, max quantity).
func ranksAbove(a, b *Opportunity) bool {
	if a.NetProfitCents != b.NetProfitCents {
		return a.NetProfitCents > b.NetProfitCents
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.MaxQuantity > b.MaxQuantity
}

// Validate re-reads current books and confirms the opportunity can
// still be captured at its committed prices for the intended per-leg
// quantity. It is the hard gate immediately before submission: prices
// move between detection and firing, and firing into a stale quote is
// how leg risk happens.
func (d *Detector) Validate(opp *Opportunity, quantity int, books map[string]*orderbook.Book) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if quantity > opp.MaxQuantity {
		return fmt.Errorf("quantity %d exceeds opportunity max %d", quantity, opp.MaxQuantity)
	}

	for _, leg := range opp.Legs {
		book := books[leg.Ticker]
		if book == nil {
			return fmt.Errorf("no book for %s", leg.Ticker)
		}
		required := leg.Quantity * quantity

		switch leg.Action {
		case types.ActionBuy:
			ask, ok := book.BestYesAsk()
			if !ok {
				return fmt.Errorf("no ask on %s", leg.Ticker)
			}
			if ask > leg.Price {
				return fmt.Errorf("%s ask moved to %dc above committed %dc", leg.Ticker, ask, leg.Price)
			}
			if avail := book.YesAskQuantity(); avail < required {
				return fmt.Errorf("%s has %d contracts at the ask, need %d", leg.Ticker, avail, required)
			}
		case types.ActionSell:
			bid, ok := book.BestYesBid()
			if !ok {
				return fmt.Errorf("no bid on %s", leg.Ticker)
			}
			if bid < leg.Price {
				return fmt.Errorf("%s bid moved to %dc below committed %dc", leg.Ticker, bid, leg.Price)
			}
			if avail := book.YesBidQuantity(); avail < required {
				return fmt.Errorf("%s has %d contracts at the bid, need %d", leg.Ticker, avail, required)
			}
		default:
			return fmt.Errorf("unknown action %q on %s", leg.Action, leg.Ticker)
		}
	}

	if opp.Type == TypeMultiOutcome {
		// Recompute the basket at current asks and require the edge to
		// still clear the configured minimum.
		cost := 0
		legs := make([]Leg, 0, len(opp.Legs))
		for _, leg := range opp.Legs {
			ask, _ := books[leg.Ticker].BestYesAsk()
			cost += ask
			leg.Price = ask
			legs = append(legs, leg)
		}
		net := d.calc.NetProfit(100-cost, legs)
		if net < d.config.MinProfitCents {
			return fmt.Errorf("recomputed net profit %dc below minimum %dc", net, d.config.MinProfitCents)
		}
	}

	return nil
}

// rejectOpportunity counts one rejected candidate.
func rejectOpportunity(strategy, reason string) {
	OpportunitiesRejectedTotal.WithLabelValues(strategy, reason).Inc()
}

// groupByEvent buckets markets by event ticker. Markets without one
// cannot be grouped and are dropped.
func groupByEvent(markets []*types.Market) map[string][]*types.Market {
	groups := make(map[string][]*types.Market)
	for _, m := range markets {
		if m.EventTicker == "" {
			continue
		}
		groups[m.EventTicker] = append(groups[m.EventTicker], m)
	}
	return groups
}

// sortedKeys returns map keys in stable order so scans are
// deterministic.
func sortedKeys(groups map[string][]*types.Market) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
