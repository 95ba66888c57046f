package types

import (
	"encoding/json"
	"fmt"
)

// Level is a single orderbook price level. The venue encodes levels as
// two-element integer arrays [price, quantity].
type Level struct {
	Price    int
	Quantity int
}

// UnmarshalJSON decodes the [price, quantity] wire pair.
func (l *Level) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode orderbook level: %w", err)
	}
	l.Price = pair[0]
	l.Quantity = pair[1]
	return nil
}

// MarshalJSON encodes the level back to the [price, quantity] wire pair.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{l.Price, l.Quantity})
}

// OrderbookData is the ladder payload shared by the REST orderbook endpoint
// and the stream snapshot message. Both sides are bid ladders; asks are
// implied (see internal/orderbook).
type OrderbookData struct {
	Yes []Level `json:"yes"`
	No  []Level `json:"no"`
}

// OrderbookResponse is the response from GET /markets/{ticker}/orderbook.
type OrderbookResponse struct {
	Orderbook OrderbookData `json:"orderbook"`
}

// Stream message types carried in the envelope's "type" field.
const (
	MsgTypeOrderbookSnapshot = "orderbook_snapshot"
	MsgTypeOrderbookDelta    = "orderbook_delta"
	MsgTypeTrade             = "trade"
	MsgTypeSubscribed        = "subscribed"
	MsgTypeUnsubscribed      = "unsubscribed"
	MsgTypeError             = "error"
)

// StreamEnvelope is the outer frame of every venue stream message.
type StreamEnvelope struct {
	Type string          `json:"type"`
	ID   int             `json:"id,omitempty"`
	SID  int             `json:"sid,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

// OrderbookSnapshotMsg replaces the full book for one market.
type OrderbookSnapshotMsg struct {
	MarketTicker string  `json:"market_ticker"`
	Yes          []Level `json:"yes"`
	No           []Level `json:"no"`
}

// OrderbookDeltaMsg updates a single price level. Delta carries the new
// absolute quantity at the level; zero removes it.
type OrderbookDeltaMsg struct {
	MarketTicker string `json:"market_ticker"`
	Price        int    `json:"price"`
	Delta        int    `json:"delta"`
	Side         Side   `json:"side"`
}

// TradeMsg reports a public trade on a subscribed market.
type TradeMsg struct {
	MarketTicker string `json:"market_ticker"`
	YesPrice     int    `json:"yes_price"`
	NoPrice      int    `json:"no_price"`
	Count        int    `json:"count"`
	TakerSide    Side   `json:"taker_side"`
	Ts           int64  `json:"ts"`
}

// SubscribedMsg acknowledges a subscribe command.
type SubscribedMsg struct {
	Channel string `json:"channel"`
	SID     int    `json:"sid"`
}

// StreamErrorMsg reports a protocol-level error from the venue.
type StreamErrorMsg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// StreamMessage is a decoded stream frame. Exactly one payload field is
// non-nil, selected by Type. The websocket manager produces these; the
// book store consumes them.
type StreamMessage struct {
	Type       string
	Seq        int64
	Snapshot   *OrderbookSnapshotMsg
	Delta      *OrderbookDeltaMsg
	Trade      *TradeMsg
	Subscribed *SubscribedMsg
	Err        *StreamErrorMsg
}

// StreamCommand is the subscribe/unsubscribe request frame.
type StreamCommand struct {
	ID     int                 `json:"id"`
	Cmd    string              `json:"cmd"`
	Params StreamCommandParams `json:"params"`
}

// StreamCommandParams selects channels and markets for a stream command.
type StreamCommandParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
	SIDs          []int    `json:"sids,omitempty"`
}
