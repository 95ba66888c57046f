package arbitrage

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// temporalConfidence reflects the residual risk that the early and late
// contracts are not actually nested.
const temporalConfidence = 0.9

// TemporalStrategy trades pairs of markets on the same underlying with
// ordered expirations. If the earlier market resolves YES the later one
// must as well, so when the early bid trades above the late ask the
// strategy sells early and buys late: the later position covers the
// payout owed on the earlier one and the spread is kept.
type TemporalStrategy struct {
	calc         *Calculator
	minProfit    int
	minPriceDiff int
	logger       *zap.Logger
}

// NewTemporalStrategy creates the strategy.
func NewTemporalStrategy(calc *Calculator, minProfitCents, minPriceDiffCents int, logger *zap.Logger) *TemporalStrategy {
	return &TemporalStrategy{
		calc:         calc,
		minProfit:    minProfitCents,
		minPriceDiff: minPriceDiffCents,
		logger:       logger,
	}
}

// Name returns the strategy name.
func (s *TemporalStrategy) Name() string {
	return string(TypeTemporal)
}

// Scan groups dated markets by event, orders each group by expiration
// and checks consecutive pairs.
func (s *TemporalStrategy) Scan(markets []*types.Market, books map[string]*orderbook.Book) []*Opportunity {
	dated := make([]*types.Market, 0, len(markets))
	for _, m := range markets {
		if m.ExpirationTime != nil {
			dated = append(dated, m)
		}
	}

	groups := groupByEvent(dated)

	var opps []*Opportunity
	for _, event := range sortedKeys(groups) {
		group := groups[event]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ExpirationTime.Before(*group[j].ExpirationTime)
		})

		for i := 0; i+1 < len(group); i++ {
			early, late := group[i], group[i+1]
			if !early.ExpirationTime.Before(*late.ExpirationTime) {
				// Equal expirations carry no early/late ordering.
				continue
			}
			opp := s.scanPair(event, early, late, books)
			if opp != nil {
				opps = append(opps, opp)
			}
		}
	}
	return opps
}

// scanPair checks one ordered pair for a sellable spread.
func (s *TemporalStrategy) scanPair(event string, early, late *types.Market, books map[string]*orderbook.Book) *Opportunity {
	earlyBook := books[early.Ticker]
	lateBook := books[late.Ticker]
	if earlyBook == nil || lateBook == nil {
		rejectOpportunity(s.Name(), "missing_book")
		return nil
	}

	bid, ok := earlyBook.BestYesBid()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}
	ask, ok := lateBook.BestYesAsk()
	if !ok {
		rejectOpportunity(s.Name(), "missing_price")
		return nil
	}

	diff := bid - ask
	if diff < s.minPriceDiff {
		rejectOpportunity(s.Name(), "no_edge")
		return nil
	}

	maxQty := earlyBook.YesBidQuantity()
	if lateQty := lateBook.YesAskQuantity(); lateQty < maxQty {
		maxQty = lateQty
	}
	if maxQty <= 0 {
		rejectOpportunity(s.Name(), "no_liquidity")
		return nil
	}

	legs := []Leg{
		{Ticker: early.Ticker, Side: types.SideYes, Action: types.ActionSell, Price: bid, Quantity: 1},
		{Ticker: late.Ticker, Side: types.SideYes, Action: types.ActionBuy, Price: ask, Quantity: 1},
	}

	// The sell credit covers the buy, so a profitable pair needs no cash
	// up front.
	totalCost := ask - bid
	if totalCost < 0 {
		totalCost = 0
	}

	gross := diff
	fees := s.calc.EstimatedFees(legs)
	net := gross - fees
	if net < s.minProfit {
		s.logger.Debug("opportunity-below-min-profit",
			zap.String("event", event),
			zap.String("early", early.Ticker),
			zap.String("late", late.Ticker),
			zap.Int("gross-cents", gross),
			zap.Int("net-cents", net))
		rejectOpportunity(s.Name(), "below_min_profit")
		return nil
	}

	return &Opportunity{
		ID:                    newID(),
		Type:                  TypeTemporal,
		EventTicker:           event,
		Legs:                  legs,
		TotalCostCents:        totalCost,
		GuaranteedReturnCents: gross + totalCost,
		GrossProfitCents:      gross,
		EstimatedFeesCents:    fees,
		NetProfitCents:        net,
		MaxQuantity:           maxQty,
		DetectedAt:            time.Now(),
		Confidence:            temporalConfidence,
	}
}
