package arbitrage

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		MinProfitCents:           2,
		MinPriceDiffCents:        3,
		EquivalentThresholdCents: 5,
		FeeRate:                  0.007,
		EnableMultiOutcome:       true,
		EnableTemporal:           true,
		EnableCorrelated:         true,
		Logger:                   zaptest.NewLogger(t),
	}
}

func TestNewEnablesConfiguredStrategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mod  func(*Config)
		want int
	}{
		{name: "all", mod: func(*Config) {}, want: 3},
		{name: "multi outcome only", mod: func(c *Config) {
			c.EnableTemporal = false
			c.EnableCorrelated = false
		}, want: 1},
		{name: "none", mod: func(c *Config) {
			c.EnableMultiOutcome = false
			c.EnableTemporal = false
			c.EnableCorrelated = false
		}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig(t)
			tt.mod(&cfg)
			d := New(cfg)
			if len(d.strategies) != tt.want {
				t.Errorf("got %d strategies, want %d", len(d.strategies), tt.want)
			}
		})
	}
}

func TestScanRunsAllStrategies(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Rules = []CorrelationRule{{
		PatternA: "CHAMP-*",
		PatternB: "PLAYOFF-*",
		Kind:     RuleImplies,
	}}
	d := New(cfg)

	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	markets := []*types.Market{
		// Multi-outcome basket under an event.
		market("ELEC-A", "ELEC"),
		market("ELEC-B", "ELEC"),
		// Temporal pair on one underlying.
		datedMarket("BTC-MAR01", "BTC", t1),
		datedMarket("BTC-MAR02", "BTC", t2),
		// Correlated pair across events.
		market("CHAMP-KC", "CHAMP"),
		market("PLAYOFF-KC", "PLAYOFF"),
	}
	books := map[string]*orderbook.Book{
		"ELEC-A":     askBook("ELEC-A", 40, 100),
		"ELEC-B":     askBook("ELEC-B", 50, 100),
		"BTC-MAR01":  bookWith("BTC-MAR01", []types.Level{{Price: 60, Quantity: 20}}, nil),
		"BTC-MAR02":  askBook("BTC-MAR02", 55, 30),
		"CHAMP-KC":   bookWith("CHAMP-KC", []types.Level{{Price: 50, Quantity: 10}}, nil),
		"PLAYOFF-KC": askBook("PLAYOFF-KC", 40, 15),
	}

	opps := d.Scan(markets, books)
	if len(opps) != 3 {
		t.Fatalf("got %d opportunities, want 3", len(opps))
	}

	byType := make(map[Type]int)
	for _, opp := range opps {
		byType[opp.Type]++
	}
	for _, typ := range []Type{TypeMultiOutcome, TypeTemporal, TypeCorrelated} {
		if byType[typ] != 1 {
			t.Errorf("got %d %s opportunities, want 1", byType[typ], typ)
		}
	}
}

func TestScanDisabledStrategyStaysQuiet(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.EnableMultiOutcome = false
	d := New(cfg)

	markets := []*types.Market{
		market("ELEC-A", "ELEC"),
		market("ELEC-B", "ELEC"),
	}
	books := map[string]*orderbook.Book{
		"ELEC-A": askBook("ELEC-A", 40, 100),
		"ELEC-B": askBook("ELEC-B", 50, 100),
	}

	if opps := d.Scan(markets, books); len(opps) != 0 {
		t.Errorf("got %d opportunities, want 0", len(opps))
	}
}

func TestBestOfLexicographicRanking(t *testing.T) {
	t.Parallel()

	d := New(testConfig(t))

	base := func(net int, conf float64, maxq int) *Opportunity {
		return &Opportunity{
			ID:             newID(),
			Type:           TypeMultiOutcome,
			NetProfitCents: net,
			Confidence:     conf,
			MaxQuantity:    maxq,
		}
	}

	tests := []struct {
		name string
		opps []*Opportunity
		want int // index into opps
	}{
		{
			name: "higher net wins",
			opps: []*Opportunity{base(3, 0.9, 100), base(7, 0.5, 10)},
			want: 1,
		},
		{
			name: "confidence breaks net tie",
			opps: []*Opportunity{base(5, 0.6, 100), base(5, 0.9, 10)},
			want: 1,
		},
		{
			name: "quantity breaks full tie",
			opps: []*Opportunity{base(5, 0.9, 10), base(5, 0.9, 40)},
			want: 1,
		},
		{
			name: "unprofitable skipped",
			opps: []*Opportunity{base(0, 1.0, 1000), base(2, 0.5, 10)},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := d.BestOf(tt.opps)
			if got != tt.opps[tt.want] {
				t.Errorf("BestOf picked %+v, want %+v", got, tt.opps[tt.want])
			}
		})
	}
}

func TestBestOfNoneProfitable(t *testing.T) {
	t.Parallel()

	d := New(testConfig(t))

	opps := []*Opportunity{
		{ID: "a", NetProfitCents: 0},
		{ID: "b", NetProfitCents: -3},
	}
	if got := d.BestOf(opps); got != nil {
		t.Errorf("BestOf = %+v, want nil", got)
	}
	if got := d.BestOf(nil); got != nil {
		t.Errorf("BestOf(nil) = %+v, want nil", got)
	}
}

func validateFixture() (*Opportunity, map[string]*orderbook.Book) {
	opp := &Opportunity{
		ID:          "opp-1",
		Type:        TypeTemporal,
		EventTicker: "EVT",
		Legs: []Leg{
			{Ticker: "EVT-EARLY", Side: types.SideYes, Action: types.ActionSell, Price: 60, Quantity: 1},
			{Ticker: "EVT-LATE", Side: types.SideYes, Action: types.ActionBuy, Price: 55, Quantity: 1},
		},
		GrossProfitCents: 5,
		NetProfitCents:   4,
		MaxQuantity:      20,
	}
	books := map[string]*orderbook.Book{
		"EVT-EARLY": bookWith("EVT-EARLY", []types.Level{{Price: 60, Quantity: 20}}, nil),
		"EVT-LATE":  askBook("EVT-LATE", 55, 30),
	}
	return opp, books
}

func TestValidateAcceptsUnchangedBooks(t *testing.T) {
	t.Parallel()

	d := New(testConfig(t))
	opp, books := validateFixture()

	if err := d.Validate(opp, 20, books); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejectsStaleQuotes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(map[string]*orderbook.Book)
		qty     int
		wantErr string
	}{
		{
			name: "buy ask moved up",
			mutate: func(books map[string]*orderbook.Book) {
				books["EVT-LATE"] = askBook("EVT-LATE", 58, 30)
			},
			qty:     10,
			wantErr: "ask moved",
		},
		{
			name: "sell bid moved down",
			mutate: func(books map[string]*orderbook.Book) {
				books["EVT-EARLY"] = bookWith("EVT-EARLY", []types.Level{{Price: 57, Quantity: 20}}, nil)
			},
			qty:     10,
			wantErr: "bid moved",
		},
		{
			name: "ask liquidity drained",
			mutate: func(books map[string]*orderbook.Book) {
				books["EVT-LATE"] = askBook("EVT-LATE", 55, 5)
			},
			qty:     10,
			wantErr: "at the ask",
		},
		{
			name: "bid liquidity drained",
			mutate: func(books map[string]*orderbook.Book) {
				books["EVT-EARLY"] = bookWith("EVT-EARLY", []types.Level{{Price: 60, Quantity: 3}}, nil)
			},
			qty:     10,
			wantErr: "at the bid",
		},
		{
			name: "book disappeared",
			mutate: func(books map[string]*orderbook.Book) {
				delete(books, "EVT-LATE")
			},
			qty:     10,
			wantErr: "no book",
		},
		{
			name: "ask side emptied",
			mutate: func(books map[string]*orderbook.Book) {
				books["EVT-LATE"] = bookWith("EVT-LATE", nil, nil)
			},
			qty:     10,
			wantErr: "no ask",
		},
		{
			name:    "quantity above opportunity max",
			mutate:  func(map[string]*orderbook.Book) {},
			qty:     21,
			wantErr: "exceeds opportunity max",
		},
		{
			name:    "zero quantity",
			mutate:  func(map[string]*orderbook.Book) {},
			qty:     0,
			wantErr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := New(testConfig(t))
			opp, books := validateFixture()
			tt.mutate(books)

			err := d.Validate(opp, tt.qty, books)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsImprovedPrices(t *testing.T) {
	t.Parallel()

	d := New(testConfig(t))
	opp, books := validateFixture()

	// Ask dropped and bid rose since detection; the trade only got
	// better.
	books["EVT-LATE"] = askBook("EVT-LATE", 50, 30)
	books["EVT-EARLY"] = bookWith("EVT-EARLY", []types.Level{{Price: 65, Quantity: 25}}, nil)

	if err := d.Validate(opp, 20, books); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateMultiOutcomeRechecksEdge(t *testing.T) {
	t.Parallel()

	d := New(testConfig(t))

	opp := &Opportunity{
		ID:          "opp-2",
		Type:        TypeMultiOutcome,
		EventTicker: "EVT",
		Legs: []Leg{
			{Ticker: "EVT-A", Side: types.SideYes, Action: types.ActionBuy, Price: 45, Quantity: 1},
			{Ticker: "EVT-B", Side: types.SideYes, Action: types.ActionBuy, Price: 50, Quantity: 1},
		},
		GrossProfitCents: 5,
		NetProfitCents:   4,
		MaxQuantity:      50,
	}
	books := map[string]*orderbook.Book{
		"EVT-A": askBook("EVT-A", 45, 50),
		"EVT-B": askBook("EVT-B", 50, 50),
	}

	if err := d.Validate(opp, 10, books); err != nil {
		t.Errorf("Validate: %v", err)
	}

	// One ask moving up past its committed price must fail the per-leg
	// check before any recompute.
	books["EVT-A"] = askBook("EVT-A", 48, 50)
	err := d.Validate(opp, 10, books)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ask moved") {
		t.Errorf("error %q does not mention the moved ask", err)
	}
}
