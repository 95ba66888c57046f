package risk

import (
	"math"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// fakePositions implements PositionSource over a fixed position set.
type fakePositions struct {
	positions map[string]types.Position
}

func newFakePositions(positions ...types.Position) *fakePositions {
	byTicker := make(map[string]types.Position, len(positions))
	for _, p := range positions {
		byTicker[p.Ticker] = p
	}
	return &fakePositions{positions: byTicker}
}

func (f *fakePositions) Position(ticker string) (types.Position, bool) {
	p, ok := f.positions[ticker]
	return p, ok
}

func (f *fakePositions) TotalExposureCents() int {
	total := 0
	for _, p := range f.positions {
		total += p.MarketExposure
	}
	return total
}

func (f *fakePositions) ExposureByMarket() map[string]int {
	out := make(map[string]int)
	for ticker, p := range f.positions {
		if p.MarketExposure > 0 {
			out[ticker] = p.MarketExposure
		}
	}
	return out
}

func testGate(t *testing.T, source PositionSource) *Gate {
	t.Helper()

	g, err := New(&Config{
		Positions: source,
		Logger:    zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return g
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	source := newFakePositions()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid-config-defaults",
			config: &Config{
				Positions: source,
				Logger:    logger,
			},
			wantErr: false,
		},
		{
			name:    "nil-config",
			config:  nil,
			wantErr: true,
			errMsg:  "config cannot be nil",
		},
		{
			name: "nil-logger",
			config: &Config{
				Positions: source,
			},
			wantErr: true,
			errMsg:  "logger cannot be nil",
		},
		{
			name: "nil-position-source",
			config: &Config{
				Logger: logger,
			},
			wantErr: true,
			errMsg:  "position source cannot be nil",
		},
		{
			name: "negative-total-exposure",
			config: &Config{
				Positions: source,
				Logger:    logger,
				Limits:    Limits{MaxTotalExposureCents: -1},
			},
			wantErr: true,
			errMsg:  "max total exposure cannot be negative",
		},
		{
			name: "negative-position-limit",
			config: &Config{
				Positions: source,
				Logger:    logger,
				Limits:    Limits{MaxPositionPerMarket: -1},
			},
			wantErr: true,
			errMsg:  "max position per market cannot be negative",
		},
		{
			name: "negative-market-exposure",
			config: &Config{
				Positions: source,
				Logger:    logger,
				Limits:    Limits{MaxExposurePerMarketCents: -1},
			},
			wantErr: true,
			errMsg:  "max per-market exposure cannot be negative",
		},
		{
			name: "negative-concurrent-positions",
			config: &Config{
				Positions: source,
				Logger:    logger,
				Limits:    Limits{MaxConcurrentPositions: -1},
			},
			wantErr: true,
			errMsg:  "max concurrent positions cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if err.Error() != tt.errMsg {
					t.Errorf("New() error = %q, want %q", err.Error(), tt.errMsg)
				}
				return
			}

			limits := g.Limits()
			if limits.MaxTotalExposureCents != defaultMaxTotalExposureCents {
				t.Errorf("MaxTotalExposureCents = %d, want %d",
					limits.MaxTotalExposureCents, defaultMaxTotalExposureCents)
			}
			if limits.MaxPositionPerMarket != defaultMaxPositionPerMarket {
				t.Errorf("MaxPositionPerMarket = %d, want %d",
					limits.MaxPositionPerMarket, defaultMaxPositionPerMarket)
			}
			if limits.MaxExposurePerMarketCents != defaultMaxExposurePerMarketCents {
				t.Errorf("MaxExposurePerMarketCents = %d, want %d",
					limits.MaxExposurePerMarketCents, defaultMaxExposurePerMarketCents)
			}
		})
	}
}

func TestNewCustomLimits(t *testing.T) {
	t.Parallel()

	g, err := New(&Config{
		Positions: newFakePositions(),
		Logger:    zaptest.NewLogger(t),
		Limits: Limits{
			MaxTotalExposureCents:     1000,
			MaxPositionPerMarket:      10,
			MaxExposurePerMarketCents: 500,
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	limits := g.Limits()
	if limits.MaxTotalExposureCents != 1000 || limits.MaxPositionPerMarket != 10 ||
		limits.MaxExposurePerMarketCents != 500 {
		t.Errorf("Limits() = %+v, want custom values preserved", limits)
	}
}

func TestCheckTradeAllowed(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions())
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 1)

	if !check.Allowed {
		t.Fatalf("CheckTrade() denied: %s", check.Reason)
	}
	if check.Reason != "" {
		t.Errorf("Reason = %q, want empty", check.Reason)
	}
	if check.CurrentExposureCents != 0 {
		t.Errorf("CurrentExposureCents = %d, want 0", check.CurrentExposureCents)
	}
	if check.LimitExposureCents != defaultMaxTotalExposureCents {
		t.Errorf("LimitExposureCents = %d, want %d",
			check.LimitExposureCents, defaultMaxTotalExposureCents)
	}
	// Binding limit is the 100-contract position cap: total allows
	// 50000/95 = 526, per-market exposure allows 10000/45 = 222.
	if check.MaxAllowedQuantity != 100 {
		t.Errorf("MaxAllowedQuantity = %d, want 100", check.MaxAllowedQuantity)
	}
}

func TestCheckTradeDefaultsQuantityToOne(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions())
	opp := arbitrage.CreateTestOpportunity("EVT")

	if check := g.CheckTrade(opp, 0); !check.Allowed {
		t.Errorf("CheckTrade(0) denied: %s", check.Reason)
	}
	if check := g.CheckTrade(opp, -5); !check.Allowed {
		t.Errorf("CheckTrade(-5) denied: %s", check.Reason)
	}
}

func TestCheckTradeDeniesTotalExposure(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "OTHER", Position: 50, MarketExposure: 49950},
	))
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 1)

	if check.Allowed {
		t.Fatal("CheckTrade() allowed over the total exposure limit")
	}
	want := "Would exceed total exposure limit: $500.45 > $500.00"
	if check.Reason != want {
		t.Errorf("Reason = %q, want %q", check.Reason, want)
	}
	if check.CurrentExposureCents != 49950 {
		t.Errorf("CurrentExposureCents = %d, want 49950", check.CurrentExposureCents)
	}
	// Only 50 cents of room left; a 95-cent basket does not fit even once.
	if check.MaxAllowedQuantity != 0 {
		t.Errorf("MaxAllowedQuantity = %d, want 0", check.MaxAllowedQuantity)
	}
}

func TestCheckTradeDeniesPositionLimit(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "EVT-A", Position: 98, MarketExposure: 500},
	))
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 5)

	if check.Allowed {
		t.Fatal("CheckTrade() allowed over the position limit")
	}
	want := "Would exceed position limit for EVT-A: 103 > 100"
	if check.Reason != want {
		t.Errorf("Reason = %q, want %q", check.Reason, want)
	}
	// Two more contracts fit in EVT-A; every other limit is looser.
	if check.MaxAllowedQuantity != 2 {
		t.Errorf("MaxAllowedQuantity = %d, want 2", check.MaxAllowedQuantity)
	}
}

func TestCheckTradeDeniesMarketExposure(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "EVT-A", Position: 10, MarketExposure: 9990},
	))
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 1)

	if check.Allowed {
		t.Fatal("CheckTrade() allowed over the per-market exposure limit")
	}
	want := "Would exceed per-market exposure for EVT-A"
	if check.Reason != want {
		t.Errorf("Reason = %q, want %q", check.Reason, want)
	}
	// 10 cents of room at a 45-cent leg price.
	if check.MaxAllowedQuantity != 0 {
		t.Errorf("MaxAllowedQuantity = %d, want 0", check.MaxAllowedQuantity)
	}
}

func TestCheckTradeDeniesConcurrentPositions(t *testing.T) {
	t.Parallel()

	g, err := New(&Config{
		Positions: newFakePositions(
			types.Position{Ticker: "OTHER-1", Position: 1, MarketExposure: 50},
			types.Position{Ticker: "OTHER-2", Position: 1, MarketExposure: 50},
		),
		Logger: zaptest.NewLogger(t),
		Limits: Limits{MaxConcurrentPositions: 3},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	opp := arbitrage.CreateTestOpportunity("EVT")

	// Two markets are already open; the two EVT legs would make four.
	check := g.CheckTrade(opp, 1)

	if check.Allowed {
		t.Fatal("CheckTrade() allowed over the concurrent position limit")
	}
	want := "Would exceed concurrent position limit: 4 markets > 3"
	if check.Reason != want {
		t.Errorf("Reason = %q, want %q", check.Reason, want)
	}
	// No quantity fits; every contract opens the same new markets.
	if check.MaxAllowedQuantity != 0 {
		t.Errorf("MaxAllowedQuantity = %d, want 0", check.MaxAllowedQuantity)
	}
}

func TestCheckTradeOpenMarketsNotDoubleCounted(t *testing.T) {
	t.Parallel()

	g, err := New(&Config{
		Positions: newFakePositions(
			types.Position{Ticker: "EVT-A", Position: 1, MarketExposure: 45},
			types.Position{Ticker: "EVT-B", Position: 1, MarketExposure: 50},
		),
		Logger: zaptest.NewLogger(t),
		Limits: Limits{MaxConcurrentPositions: 2},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	opp := arbitrage.CreateTestOpportunity("EVT")

	// Both legs add to markets already holding positions, so the trade
	// opens nothing new.
	check := g.CheckTrade(opp, 1)

	if !check.Allowed {
		t.Fatalf("CheckTrade() denied: %s", check.Reason)
	}
}

func TestCheckTradeFirstViolationReported(t *testing.T) {
	t.Parallel()

	// Both the total limit and EVT-A's position limit fail at q=10;
	// the total check runs first and owns the reason.
	g := testGate(t, newFakePositions(
		types.Position{Ticker: "EVT-A", Position: 95, MarketExposure: 49500},
	))
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 10)

	if check.Allowed {
		t.Fatal("CheckTrade() allowed with two violated limits")
	}
	want := "Would exceed total exposure limit: $504.50 > $500.00"
	if check.Reason != want {
		t.Errorf("Reason = %q, want %q", check.Reason, want)
	}
}

func TestMaxAllowedCoversAllLimitsOnApproval(t *testing.T) {
	t.Parallel()

	// A probe at quantity 1 passes, but the per-market exposure cap in
	// EVT-A only admits 4 more contracts at 45 cents. MaxAllowed must
	// reflect that bound even though the check itself succeeded.
	g := testGate(t, newFakePositions(
		types.Position{Ticker: "EVT-A", Position: 0, MarketExposure: 9800},
	))
	opp := arbitrage.CreateTestOpportunity("EVT")

	check := g.CheckTrade(opp, 1)

	if !check.Allowed {
		t.Fatalf("CheckTrade() denied: %s", check.Reason)
	}
	if check.MaxAllowedQuantity != 4 {
		t.Errorf("MaxAllowedQuantity = %d, want 4", check.MaxAllowedQuantity)
	}
}

func TestAdjustQuantity(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions())
	opp := arbitrage.CreateTestOpportunity("EVT")

	if got := g.AdjustQuantity(opp, 50); got != 50 {
		t.Errorf("AdjustQuantity(50) = %d, want 50", got)
	}
	// 150 trips the 100-contract position cap; the closed form caps it.
	if got := g.AdjustQuantity(opp, 150); got != 100 {
		t.Errorf("AdjustQuantity(150) = %d, want 100", got)
	}
	if got := g.AdjustQuantity(opp, 0); got != 0 {
		t.Errorf("AdjustQuantity(0) = %d, want 0", got)
	}
	if got := g.AdjustQuantity(opp, -3); got != 0 {
		t.Errorf("AdjustQuantity(-3) = %d, want 0", got)
	}
}

func TestAvailableExposure(t *testing.T) {
	t.Parallel()

	empty := testGate(t, newFakePositions())
	if got := empty.AvailableExposureCents(); got != defaultMaxTotalExposureCents {
		t.Errorf("AvailableExposureCents() = %d, want %d", got, defaultMaxTotalExposureCents)
	}

	nearly := testGate(t, newFakePositions(
		types.Position{Ticker: "A", Position: 10, MarketExposure: 49950},
	))
	if got := nearly.AvailableExposureCents(); got != 50 {
		t.Errorf("AvailableExposureCents() = %d, want 50", got)
	}

	over := testGate(t, newFakePositions(
		types.Position{Ticker: "A", Position: 10, MarketExposure: 60000},
	))
	if got := over.AvailableExposureCents(); got != 0 {
		t.Errorf("AvailableExposureCents() = %d, want 0", got)
	}
}

func TestUtilization(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "A", Position: 10, MarketExposure: 25000},
	))

	if got := g.Utilization(); got != 50.0 {
		t.Errorf("Utilization() = %f, want 50.0", got)
	}
}

func TestMarketLimits(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "EVT-A", Position: 98, MarketExposure: 9990},
	))

	limits := g.MarketLimits("EVT-A")
	if limits.CurrentContracts != 98 {
		t.Errorf("CurrentContracts = %d, want 98", limits.CurrentContracts)
	}
	if limits.AvailableContracts != 2 {
		t.Errorf("AvailableContracts = %d, want 2", limits.AvailableContracts)
	}
	if limits.AvailableExposureCents != 10 {
		t.Errorf("AvailableExposureCents = %d, want 10", limits.AvailableExposureCents)
	}

	unknown := g.MarketLimits("UNKNOWN")
	if unknown.CurrentContracts != 0 {
		t.Errorf("unknown CurrentContracts = %d, want 0", unknown.CurrentContracts)
	}
	if unknown.AvailableContracts != defaultMaxPositionPerMarket {
		t.Errorf("unknown AvailableContracts = %d, want %d",
			unknown.AvailableContracts, defaultMaxPositionPerMarket)
	}
	if unknown.AvailableExposureCents != defaultMaxExposurePerMarketCents {
		t.Errorf("unknown AvailableExposureCents = %d, want %d",
			unknown.AvailableExposureCents, defaultMaxExposurePerMarketCents)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	g := testGate(t, newFakePositions(
		types.Position{Ticker: "A", Position: 10, MarketExposure: 450},
		types.Position{Ticker: "B", Position: -5, MarketExposure: 275},
		types.Position{Ticker: "FLAT", Position: 0, MarketExposure: 0},
	))

	summary := g.Summary()

	if summary.TotalExposureCents != 725 {
		t.Errorf("TotalExposureCents = %d, want 725", summary.TotalExposureCents)
	}
	if summary.AvailableCents != 49275 {
		t.Errorf("AvailableCents = %d, want 49275", summary.AvailableCents)
	}
	if math.Abs(summary.UtilizationPct-1.45) > 1e-9 {
		t.Errorf("UtilizationPct = %f, want 1.45", summary.UtilizationPct)
	}
	if summary.MarketsCount != 2 {
		t.Errorf("MarketsCount = %d, want 2", summary.MarketsCount)
	}
	if summary.MaxMarketsCount != defaultMaxConcurrentPositions {
		t.Errorf("MaxMarketsCount = %d, want %d",
			summary.MaxMarketsCount, defaultMaxConcurrentPositions)
	}
	if summary.PerMarketLimitCents != defaultMaxExposurePerMarketCents {
		t.Errorf("PerMarketLimitCents = %d, want %d",
			summary.PerMarketLimitCents, defaultMaxExposurePerMarketCents)
	}
	if summary.PerMarketPositionLimit != defaultMaxPositionPerMarket {
		t.Errorf("PerMarketPositionLimit = %d, want %d",
			summary.PerMarketPositionLimit, defaultMaxPositionPerMarket)
	}
}
