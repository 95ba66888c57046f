package arbitrage

import (
	"testing"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

func TestLegFee(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)

	tests := []struct {
		name     string
		price    int
		quantity int
		want     int
	}{
		{name: "rounds up from under a cent", price: 40, quantity: 1, want: 1},
		{name: "cheap contract single", price: 25, quantity: 1, want: 1},
		{name: "exact product stays exact", price: 75, quantity: 200, want: 35},
		{name: "large quantity", price: 40, quantity: 100, want: 42},
		{name: "zero quantity", price: 40, quantity: 0, want: 0},
		{name: "negative quantity", price: 40, quantity: -5, want: 0},
		{name: "no potential profit", price: 100, quantity: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.LegFee(tt.price, tt.quantity)
			if got != tt.want {
				t.Errorf("LegFee(%d, %d) = %d, want %d", tt.price, tt.quantity, got, tt.want)
			}
		})
	}
}

// 0.007 * 25 * 200 is exactly 35, but the float64 product lands a hair
// above it and a naive ceiling would charge 36.
func TestLegFeeNoFloatInflation(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)
	if got := calc.LegFee(75, 200); got != 35 {
		t.Errorf("LegFee(75, 200) = %d, want 35", got)
	}
	if got := calc.LegFee(75, 2000); got != 350 {
		t.Errorf("LegFee(75, 2000) = %d, want 350", got)
	}
}

func TestLegFeeMonotonicInQuantity(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)
	prev := 0
	for qty := 1; qty <= 500; qty++ {
		fee := calc.LegFee(40, qty)
		if fee < prev {
			t.Fatalf("fee decreased at quantity %d: %d -> %d", qty, prev, fee)
		}
		prev = fee
	}
}

func TestEstimatedFeesMaxOverBuyLegs(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)

	legs := []Leg{
		{Ticker: "A", Side: types.SideYes, Action: types.ActionBuy, Price: 40, Quantity: 1},
		{Ticker: "B", Side: types.SideYes, Action: types.ActionBuy, Price: 30, Quantity: 1},
		{Ticker: "C", Side: types.SideYes, Action: types.ActionBuy, Price: 25, Quantity: 1},
	}

	// Only one leg wins, so the estimate is the worst single leg, not
	// the sum.
	if got := calc.EstimatedFees(legs); got != 1 {
		t.Errorf("EstimatedFees = %d, want 1", got)
	}
}

func TestEstimatedFeesIgnoresSellLegs(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)

	legs := []Leg{
		{Ticker: "EARLY", Side: types.SideYes, Action: types.ActionSell, Price: 60, Quantity: 1},
		{Ticker: "LATE", Side: types.SideYes, Action: types.ActionBuy, Price: 55, Quantity: 1},
	}

	want := calc.LegFee(55, 1)
	if got := calc.EstimatedFees(legs); got != want {
		t.Errorf("EstimatedFees = %d, want %d", got, want)
	}

	onlySells := []Leg{
		{Ticker: "EARLY", Side: types.SideYes, Action: types.ActionSell, Price: 60, Quantity: 1},
	}
	if got := calc.EstimatedFees(onlySells); got != 0 {
		t.Errorf("EstimatedFees with no buy legs = %d, want 0", got)
	}
}

func TestNetProfit(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0.007)
	legs := []Leg{
		{Ticker: "A", Side: types.SideYes, Action: types.ActionBuy, Price: 40, Quantity: 1},
	}
	if got := calc.NetProfit(5, legs); got != 4 {
		t.Errorf("NetProfit = %d, want 4", got)
	}
}

func TestZeroRateChargesNothing(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(0)
	if got := calc.LegFee(40, 100); got != 0 {
		t.Errorf("LegFee with zero rate = %d, want 0", got)
	}
}
