package arbitrage

import (
	"time"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// CreateTestOpportunity creates a two-market multi-outcome opportunity
// with fixed numbers for tests. This is a test helper kept in the
// package to avoid import cycles with consumers.
func CreateTestOpportunity(eventTicker string) *Opportunity {
	legs := []Leg{
		{
			Ticker:   eventTicker + "-A",
			Side:     types.SideYes,
			Action:   types.ActionBuy,
			Price:    45,
			Quantity: 1,
		},
		{
			Ticker:   eventTicker + "-B",
			Side:     types.SideYes,
			Action:   types.ActionBuy,
			Price:    50,
			Quantity: 1,
		},
	}

	return &Opportunity{
		ID:                    "test-opp-" + eventTicker,
		Type:                  TypeMultiOutcome,
		EventTicker:           eventTicker,
		Legs:                  legs,
		TotalCostCents:        95,
		GuaranteedReturnCents: 100,
		GrossProfitCents:      5,
		EstimatedFeesCents:    1,
		NetProfitCents:        4,
		MaxQuantity:           100,
		DetectedAt:            time.Now(),
		Confidence:            0.9,
	}
}
