package arbitrage

import (
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Confidence per rule kind. All are discounted for the chance that the
// configured relation does not actually hold at resolution.
const (
	impliesConfidence    = 0.80
	excludesConfidence   = 0.85
	equivalentConfidence = 0.90
)

// CorrelatedStrategy trades market pairs related by configured logical
// rules: mispricings across an implication, a mutual exclusion, or an
// equivalence.
type CorrelatedStrategy struct {
	calc      *Calculator
	minProfit int
	threshold int
	rules     []CorrelationRule
	logger    *zap.Logger
}

// NewCorrelatedStrategy creates the strategy. threshold is the minimum
// price gap, in cents, for an EQUIVALENT pair to be worth trading.
func NewCorrelatedStrategy(calc *Calculator, minProfitCents, thresholdCents int, rules []CorrelationRule, logger *zap.Logger) *CorrelatedStrategy {
	return &CorrelatedStrategy{
		calc:      calc,
		minProfit: minProfitCents,
		threshold: thresholdCents,
		rules:     rules,
		logger:    logger,
	}
}

// Name returns the strategy name.
func (s *CorrelatedStrategy) Name() string {
	return string(TypeCorrelated)
}

// Scan checks every market pair against every rule. Pairs may span
// events; the rules decide which pairings are meaningful.
func (s *CorrelatedStrategy) Scan(markets []*types.Market, books map[string]*orderbook.Book) []*Opportunity {
	if len(s.rules) == 0 {
		return nil
	}

	var opps []*Opportunity
	for i := 0; i < len(markets); i++ {
		for j := i + 1; j < len(markets); j++ {
			for _, rule := range s.rules {
				a, b, ok := rule.orient(markets[i], markets[j])
				if !ok {
					continue
				}
				opp := s.scanRule(rule, a, b, books)
				if opp != nil {
					opps = append(opps, opp)
				}
			}
		}
	}
	return opps
}

// scanRule evaluates one oriented pair under one rule.
func (s *CorrelatedStrategy) scanRule(rule CorrelationRule, a, b *types.Market, books map[string]*orderbook.Book) *Opportunity {
	bookA := books[a.Ticker]
	bookB := books[b.Ticker]
	if bookA == nil || bookB == nil {
		rejectOpportunity(s.Name(), "missing_book")
		return nil
	}

	switch rule.Kind {
	case RuleImplies:
		return s.scanImplies(a, b, bookA, bookB)
	case RuleExcludes:
		return s.scanExcludes(a, b, bookA, bookB)
	case RuleEquivalent:
		return s.scanEquivalent(a, b, bookA, bookB)
	}
	return nil
}

// scanImplies trades a violated implication A => B: A cannot be worth
// more than the market it forces, so selling A and buying B locks in
// the difference.
func (s *CorrelatedStrategy) scanImplies(a, b *types.Market, bookA, bookB *orderbook.Book) *Opportunity {
	aBid, ok := bookA.BestYesBid()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}
	bAsk, ok := bookB.BestYesAsk()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}

	if aBid <= bAsk {
		rejectOpportunity(s.Name(), "no_edge")
		return nil
	}

	maxQty := bookA.YesBidQuantity()
	if q := bookB.YesAskQuantity(); q < maxQty {
		maxQty = q
	}
	if maxQty <= 0 {
		rejectOpportunity(s.Name(), "no_liquidity")
		return nil
	}

	legs := []Leg{
		{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: aBid, Quantity: 1},
		{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: bAsk, Quantity: 1},
	}

	gross := aBid - bAsk
	fees := s.calc.EstimatedFees(legs)
	net := gross - fees
	if net < s.minProfit {
		s.logger.Debug("opportunity-below-min-profit",
			zap.String("a", a.Ticker),
			zap.String("b", b.Ticker),
			zap.Int("net-cents", net))
		rejectOpportunity(s.Name(), "below_min_profit")
		return nil
	}

	return &Opportunity{
		ID:                    newID(),
		Type:                  TypeCorrelated,
		EventTicker:           a.Ticker + "+" + b.Ticker,
		Legs:                  legs,
		TotalCostCents:        bAsk,
		GuaranteedReturnCents: aBid,
		GrossProfitCents:      gross,
		EstimatedFeesCents:    fees,
		NetProfitCents:        net,
		MaxQuantity:           maxQty,
		DetectedAt:            time.Now(),
		Confidence:            impliesConfidence,
	}
}

// scanExcludes trades a violated exclusion: at most one of A and B can
// resolve YES, so buying both below the 100-cent payout is a two-leg
// basket in the multi-outcome shape.
func (s *CorrelatedStrategy) scanExcludes(a, b *types.Market, bookA, bookB *orderbook.Book) *Opportunity {
	aAsk, ok := bookA.BestYesAsk()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}
	bAsk, ok := bookB.BestYesAsk()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}

	totalCost := aAsk + bAsk
	if totalCost >= 100 {
		rejectOpportunity(s.Name(), "no_edge")
		return nil
	}

	maxQty := bookA.YesAskQuantity()
	if q := bookB.YesAskQuantity(); q < maxQty {
		maxQty = q
	}
	if maxQty <= 0 {
		rejectOpportunity(s.Name(), "no_liquidity")
		return nil
	}

	legs := []Leg{
		{Ticker: a.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: aAsk, Quantity: 1},
		{Ticker: b.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: bAsk, Quantity: 1},
	}

	gross := 100 - totalCost
	fees := s.calc.EstimatedFees(legs)
	net := gross - fees
	if net < s.minProfit {
		s.logger.Debug("opportunity-below-min-profit",
			zap.String("a", a.Ticker),
			zap.String("b", b.Ticker),
			zap.Int("net-cents", net))
		rejectOpportunity(s.Name(), "below_min_profit")
		return nil
	}

	return &Opportunity{
		ID:                    newID(),
		Type:                  TypeCorrelated,
		EventTicker:           a.Ticker + "+" + b.Ticker,
		Legs:                  legs,
		TotalCostCents:        totalCost,
		GuaranteedReturnCents: 100,
		GrossProfitCents:      gross,
		EstimatedFeesCents:    fees,
		NetProfitCents:        net,
		MaxQuantity:           maxQty,
		DetectedAt:            time.Now(),
		Confidence:            excludesConfidence,
	}
}

// scanEquivalent trades two markets that must resolve identically but
// price apart: sell the rich one, buy the cheap one.
func (s *CorrelatedStrategy) scanEquivalent(a, b *types.Market, bookA, bookB *orderbook.Book) *Opportunity {
	aBid, okABid := bookA.BestYesBid()
	aAsk, okAAsk := bookA.BestYesAsk()
	bBid, okBBid := bookB.BestYesBid()
	bAsk, okBAsk := bookB.BestYesAsk()
	if !okABid || !okAAsk || !okBBid || !okBAsk {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}

	var (
		sellTicker, buyTicker string
		sellBid, buyAsk       int
		sellQty, buyQty       int
	)
	switch {
	case aBid-bAsk >= s.threshold:
		sellTicker, sellBid, sellQty = a.Ticker, aBid, bookA.YesBidQuantity()
		buyTicker, buyAsk, buyQty = b.Ticker, bAsk, bookB.YesAskQuantity()
	case bBid-aAsk >= s.threshold:
		sellTicker, sellBid, sellQty = b.Ticker, bBid, bookB.YesBidQuantity()
		buyTicker, buyAsk, buyQty = a.Ticker, aAsk, bookA.YesAskQuantity()
	default:
		rejectOpportunity(s.Name(), "no_edge")
		return nil
	}

	maxQty := sellQty
	if buyQty < maxQty {
		maxQty = buyQty
	}
	if maxQty <= 0 {
		rejectOpportunity(s.Name(), "no_liquidity")
		return nil
	}

	legs := []Leg{
		{Ticker: sellTicker, Side: types.SideYes, Action: types.ActionSell, Price: sellBid, Quantity: 1},
		{Ticker: buyTicker, Side: types.SideYes, Action: types.ActionBuy, Price: buyAsk, Quantity: 1},
	}

	gross := sellBid - buyAsk
	fees := s.calc.EstimatedFees(legs)
	net := gross - fees
	if net < s.minProfit {
		s.logger.Debug("opportunity-below-min-profit",
			zap.String("a", a.Ticker),
			zap.String("b", b.Ticker),
			zap.Int("net-cents", net))
		rejectOpportunity(s.Name(), "below_min_profit")
		return nil
	}

	return &Opportunity{
		ID:                    newID(),
		Type:                  TypeCorrelated,
		EventTicker:           a.Ticker + "=" + b.Ticker,
		Legs:                  legs,
		TotalCostCents:        buyAsk,
		GuaranteedReturnCents: sellBid,
		GrossProfitCents:      gross,
		EstimatedFeesCents:    fees,
		NetProfitCents:        net,
		MaxQuantity:           maxQty,
		DetectedAt:            time.Now(),
		Confidence:            equivalentConfidence,
	}
}
