package types

import (
	"encoding/json"
	"time"
)

// Side is the contract side of an order or position.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Action is the order direction.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// OrderType is the venue order type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Market represents a Kalshi market from the trade API.
//
// Summary prices are integer cents in [1, 99]; a zero value means the side
// is unquoted. Out-of-range prices from the wire are dropped to zero.
type Market struct {
	Ticker         string     `json:"ticker"`
	EventTicker    string     `json:"event_ticker"`
	Title          string     `json:"title"`
	Subtitle       string     `json:"subtitle"`
	Status         string     `json:"status"`
	YesBid         int        `json:"yes_bid,omitempty"`
	YesAsk         int        `json:"yes_ask,omitempty"`
	NoBid          int        `json:"no_bid,omitempty"`
	NoAsk          int        `json:"no_ask,omitempty"`
	Volume         int64      `json:"volume,omitempty"`
	OpenInterest   int64      `json:"open_interest,omitempty"`
	CloseTime      *time.Time `json:"close_time,omitempty"`
	ExpirationTime *time.Time `json:"expiration_time,omitempty"`
}

// UnmarshalJSON drops out-of-range summary prices instead of failing.
// The venue occasionally reports 0 or 100 on one side of a settled market.
func (m *Market) UnmarshalJSON(data []byte) error {
	type Alias Market
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.YesBid = clampQuote(m.YesBid)
	m.YesAsk = clampQuote(m.YesAsk)
	m.NoBid = clampQuote(m.NoBid)
	m.NoAsk = clampQuote(m.NoAsk)

	return nil
}

func clampQuote(p int) int {
	if p < 1 || p > 99 {
		return 0
	}
	return p
}

// MidPrice returns the YES mid price in cents, or 0 when either side is unquoted.
func (m *Market) MidPrice() float64 {
	if m.YesBid == 0 || m.YesAsk == 0 {
		return 0
	}
	return float64(m.YesBid+m.YesAsk) / 2
}

// Spread returns the YES bid/ask spread in cents, or 0 when either side is unquoted.
func (m *Market) Spread() int {
	if m.YesBid == 0 || m.YesAsk == 0 {
		return 0
	}
	return m.YesAsk - m.YesBid
}

// IsOpen reports whether the market accepts orders.
func (m *Market) IsOpen() bool {
	return m.Status == "open" || m.Status == "active"
}

// Event represents a Kalshi event grouping related markets.
type Event struct {
	EventTicker       string `json:"event_ticker"`
	SeriesTicker      string `json:"series_ticker,omitempty"`
	Title             string `json:"title"`
	MutuallyExclusive bool   `json:"mutually_exclusive"`
}

// MarketsResponse is the paginated response from GET /markets.
type MarketsResponse struct {
	Markets []Market `json:"markets"`
	Cursor  string   `json:"cursor,omitempty"`
}

// MarketResponse is the response from GET /markets/{ticker}.
type MarketResponse struct {
	Market Market `json:"market"`
}

// EventResponse is the response from GET /events/{event_ticker}.
type EventResponse struct {
	Event   Event    `json:"event"`
	Markets []Market `json:"markets,omitempty"`
}
