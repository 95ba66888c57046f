package arbitrage

import (
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Outcome-count bounds for an event set. Below two there is nothing to
// sum; above ten the leg risk outweighs the edge.
const (
	minOutcomeMarkets = 2
	maxOutcomeMarkets = 10
)

// MultiOutcomeStrategy buys YES on every market of a mutually exclusive
// event set when the implied asks sum below the 100-cent payout. Exactly
// one market resolves to 100, so the payout is certain no matter which.
type MultiOutcomeStrategy struct {
	calc      *Calculator
	minProfit int
	logger    *zap.Logger
}

// NewMultiOutcomeStrategy creates the strategy.
func NewMultiOutcomeStrategy(calc *Calculator, minProfitCents int, logger *zap.Logger) *MultiOutcomeStrategy {
	return &MultiOutcomeStrategy{
		calc:      calc,
		minProfit: minProfitCents,
		logger:    logger,
	}
}

// Name returns the strategy name.
func (s *MultiOutcomeStrategy) Name() string {
	return string(TypeMultiOutcome)
}

// Scan groups markets by event and checks each complete set.
func (s *MultiOutcomeStrategy) Scan(markets []*types.Market, books map[string]*orderbook.Book) []*Opportunity {
	groups := groupByEvent(markets)

	var opps []*Opportunity
	for _, event := range sortedKeys(groups) {
		opp := s.scanEvent(event, groups[event], books)
		if opp != nil {
			opps = append(opps, opp)
		}
	}
	return opps
}

// scanEvent checks one event's market set. Every market must carry a
// book with a priced, non-empty implied ask or the set is skipped; a
// partial basket would leave an uncovered outcome.
func (s *MultiOutcomeStrategy) scanEvent(event string, markets []*types.Market, books map[string]*orderbook.Book) *Opportunity {
	n := len(markets)
	if n < minOutcomeMarkets || n > maxOutcomeMarkets {
		return nil
	}

	totalCost := 0
	sumQty := 0
	minQty := 0
	legs := make([]Leg, 0, n)

	for _, m := range markets {
		book := books[m.Ticker]
		if book == nil {
			s.logger.Debug("book-missing-for-market",
				zap.String("event", event),
				zap.String("ticker", m.Ticker))
			rejectOpportunity(s.Name(), "missing_book")
			return nil
		}

		ask, ok := book.BestYesAsk()
		if !ok {
			rejectOpportunity(s.Name(), "missing_price")
			return nil
		}

		qty := book.YesAskQuantity()
		if qty <= 0 {
			rejectOpportunity(s.Name(), "no_liquidity")
			return nil
		}

		totalCost += ask
		sumQty += qty
		if minQty == 0 || qty < minQty {
			minQty = qty
		}
		legs = append(legs, Leg{
			Ticker:   m.Ticker,
			Side:     types.SideYes,
			Action:   types.ActionBuy,
			Price:    ask,
			Quantity: 1,
		})
	}

	if totalCost >= 100 {
		rejectOpportunity(s.Name(), "no_edge")
		return nil
	}

	gross := 100 - totalCost
	fees := s.calc.EstimatedFees(legs)
	net := gross - fees
	if net < s.minProfit {
		s.logger.Debug("opportunity-below-min-profit",
			zap.String("event", event),
			zap.Int("gross-cents", gross),
			zap.Int("fees-cents", fees),
			zap.Int("net-cents", net))
		rejectOpportunity(s.Name(), "below_min_profit")
		return nil
	}

	// Every market carried a book to get this far, so coverage is full;
	// the depth term discounts thin ladders.
	coverage := 1.0
	depth := float64(sumQty) / float64(n) / 100
	if depth > 1 {
		depth = 1
	}

	return &Opportunity{
		ID:                    newID(),
		Type:                  TypeMultiOutcome,
		EventTicker:           event,
		Legs:                  legs,
		TotalCostCents:        totalCost,
		GuaranteedReturnCents: 100,
		GrossProfitCents:      gross,
		EstimatedFeesCents:    fees,
		NetProfitCents:        net,
		MaxQuantity:           minQty,
		DetectedAt:            time.Now(),
		Confidence:            0.5*coverage + 0.5*depth,
	}
}
