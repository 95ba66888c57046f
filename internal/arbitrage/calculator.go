package arbitrage

import (
	"math"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// micros is the fixed-point scale for the fee rate.
const micros = 1_000_000

// Calculator prices venue fees for opportunity legs. The venue charges a
// fraction of potential profit on the winning leg only; losing legs pay
// nothing. The estimate here is conservative: every BUY leg is priced as
// if it wins, and the maximum across legs is charged.
type Calculator struct {
	rateMicros int64
}

// NewCalculator creates a fee calculator for the given fractional rate
// (0.007 = 0.7%). The rate is held in integer micro-units so that
// ceilings stay exact for quantities where the float product would land
// a hair above the true value.
func NewCalculator(feeRate float64) *Calculator {
	return &Calculator{rateMicros: int64(math.Round(feeRate * micros))}
}

// LegFee returns the fee in cents for a BUY leg that wins: the potential
// profit per contract is 100 - price, and the fee is
// ceil(rate * (100 - price) * quantity). Rounding is always against the
// bot.
func (c *Calculator) LegFee(price, quantity int) int {
	if quantity <= 0 {
		return 0
	}
	potential := int64(100 - price)
	if potential <= 0 {
		return 0
	}
	n := potential * int64(quantity) * c.rateMicros
	return int((n + micros - 1) / micros)
}

// EstimatedFees returns the conservative fee estimate for a set of legs:
// the maximum LegFee across BUY legs. In a multi-outcome set exactly one
// leg wins, so the true fee never exceeds this. SELL legs are charged
// nothing.
func (c *Calculator) EstimatedFees(legs []Leg) int {
	maxFee := 0
	for _, leg := range legs {
		if leg.Action != types.ActionBuy {
			continue
		}
		if fee := c.LegFee(leg.Price, leg.Quantity); fee > maxFee {
			maxFee = fee
		}
	}
	return maxFee
}

// NetProfit applies the fee estimate to a gross profit figure.
func (c *Calculator) NetProfit(grossCents int, legs []Leg) int {
	return grossCents - c.EstimatedFees(legs)
}
