package arbitrage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Type identifies the strategy that produced an opportunity.
type Type string

const (
	TypeMultiOutcome Type = "multi_outcome"
	TypeTemporal     Type = "time_based"
	TypeCorrelated   Type = "correlated"
)

// Leg is one order the executor must place to capture an opportunity.
// Price is the limit price in cents; legs are sized at quantity 1 and
// scaled uniformly by the executor.
type Leg struct {
	Ticker   string
	Side     types.Side
	Action   types.Action
	Price    int
	Quantity int
}

// Opportunity is a detected arbitrage. All monetary fields are cents per
// unit quantity. net = guaranteed_return - total_cost - estimated_fees.
type Opportunity struct {
	ID                    string
	Type                  Type
	EventTicker           string
	Legs                  []Leg
	TotalCostCents        int
	GuaranteedReturnCents int
	GrossProfitCents      int
	EstimatedFeesCents    int
	NetProfitCents        int
	MaxQuantity           int
	DetectedAt            time.Time
	Confidence            float64
}

// newID returns a fresh opportunity identifier.
func newID() string {
	return uuid.New().String()
}

// IsProfitable reports whether the opportunity clears fees.
func (o *Opportunity) IsProfitable() bool {
	return o.NetProfitCents > 0
}

// Tickers returns the market tickers touched by the legs, in leg order.
func (o *Opportunity) Tickers() []string {
	tickers := make([]string, len(o.Legs))
	for i, leg := range o.Legs {
		tickers[i] = leg.Ticker
	}
	return tickers
}

// BuyLegs returns the subset of legs that take liquidity with a BUY.
func (o *Opportunity) BuyLegs() []Leg {
	legs := make([]Leg, 0, len(o.Legs))
	for _, leg := range o.Legs {
		if leg.Action == types.ActionBuy {
			legs = append(legs, leg)
		}
	}
	return legs
}

// String returns a human-readable representation of the opportunity.
func (o *Opportunity) String() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf(
		"Opportunity[%s] type=%s event=%s legs=%d cost=%dc gross=%dc fees=%dc net=%dc qty=%d conf=%.2f",
		id,
		o.Type,
		o.EventTicker,
		len(o.Legs),
		o.TotalCostCents,
		o.GrossProfitCents,
		o.EstimatedFeesCents,
		o.NetProfitCents,
		o.MaxQuantity,
		o.Confidence,
	)
}
