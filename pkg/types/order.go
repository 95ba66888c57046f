package types

import (
	"encoding/json"
	"time"
)

// OrderStatus is the venue-reported lifecycle state of an order.
// Executed and canceled are terminal and never transition.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusResting  OrderStatus = "resting"
	OrderStatusExecuted OrderStatus = "executed"
	OrderStatusPartial  OrderStatus = "partial"
	OrderStatusCanceled OrderStatus = "canceled"
)

// IsTerminal reports whether the status can no longer transition.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCanceled
}

// Order represents a venue order. Price is normalized to the order's own
// side from the wire's yes_price/no_price pair.
type Order struct {
	OrderID        string      `json:"order_id"`
	ClientOrderID  string      `json:"client_order_id,omitempty"`
	Ticker         string      `json:"ticker"`
	Side           Side        `json:"side"`
	Action         Action      `json:"action"`
	Type           OrderType   `json:"type"`
	Status         OrderStatus `json:"status"`
	Price          int         `json:"-"`
	Count          int         `json:"count"`
	RemainingCount int         `json:"remaining_count"`
	CreatedTime    *time.Time  `json:"created_time,omitempty"`
}

// UnmarshalJSON normalizes yes_price/no_price into Price by side.
func (o *Order) UnmarshalJSON(data []byte) error {
	type Alias Order
	aux := &struct {
		YesPrice int `json:"yes_price"`
		NoPrice  int `json:"no_price"`
		*Alias
	}{
		Alias: (*Alias)(o),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if o.Side == SideNo {
		o.Price = aux.NoPrice
	} else {
		o.Price = aux.YesPrice
	}

	return nil
}

// FilledCount returns the number of contracts already filled.
func (o *Order) FilledCount() int {
	return o.Count - o.RemainingCount
}

// CreateOrderRequest is the body of POST /portfolio/orders. Exactly one of
// YesPrice/NoPrice is set, matching Side.
type CreateOrderRequest struct {
	Ticker        string    `json:"ticker"`
	ClientOrderID string    `json:"client_order_id"`
	Side          Side      `json:"side"`
	Action        Action    `json:"action"`
	Count         int       `json:"count"`
	Type          OrderType `json:"type"`
	YesPrice      int       `json:"yes_price,omitempty"`
	NoPrice       int       `json:"no_price,omitempty"`
	ExpirationTs  int64     `json:"expiration_ts,omitempty"`
}

// OrderResponse wraps a single order object.
type OrderResponse struct {
	Order Order `json:"order"`
}

// OrdersResponse is the paginated response from GET /portfolio/orders.
type OrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor,omitempty"`
}

// Fill is one trade execution against an order.
type Fill struct {
	FillID      string    `json:"trade_id"`
	OrderID     string    `json:"order_id"`
	Ticker      string    `json:"ticker"`
	Side        Side      `json:"side"`
	Action      Action    `json:"action"`
	Price       int       `json:"-"`
	Count       int       `json:"count"`
	CreatedTime time.Time `json:"created_time"`
	IsTaker     bool      `json:"is_taker"`
}

// UnmarshalJSON normalizes yes_price/no_price into Price by side.
func (f *Fill) UnmarshalJSON(data []byte) error {
	type Alias Fill
	aux := &struct {
		YesPrice int `json:"yes_price"`
		NoPrice  int `json:"no_price"`
		*Alias
	}{
		Alias: (*Alias)(f),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if f.Side == SideNo {
		f.Price = aux.NoPrice
	} else {
		f.Price = aux.YesPrice
	}

	return nil
}

// TotalCents returns the cost or proceeds of the fill in cents.
func (f *Fill) TotalCents() int {
	return f.Price * f.Count
}

// FillsResponse is the paginated response from GET /portfolio/fills.
type FillsResponse struct {
	Fills  []Fill `json:"fills"`
	Cursor string `json:"cursor,omitempty"`
}

// Position is a portfolio position in one market. Position is signed net
// contracts: positive = long YES, negative = long NO.
type Position struct {
	Ticker             string `json:"ticker"`
	Position           int    `json:"position"`
	MarketExposure     int    `json:"market_exposure"`
	RestingOrdersCount int    `json:"resting_orders_count"`
	TotalTraded        int    `json:"total_traded"`
}

// Side returns the side held, or "" for a flat position.
func (p *Position) Side() Side {
	switch {
	case p.Position > 0:
		return SideYes
	case p.Position < 0:
		return SideNo
	default:
		return ""
	}
}

// Contracts returns the absolute number of contracts held.
func (p *Position) Contracts() int {
	if p.Position < 0 {
		return -p.Position
	}
	return p.Position
}

// PositionsResponse is the response from GET /portfolio/positions.
type PositionsResponse struct {
	MarketPositions []Position `json:"market_positions"`
	Cursor          string     `json:"cursor,omitempty"`
}

// BalanceResponse is the response from GET /portfolio/balance. Balance is
// in cents.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// CancelOrderResponse is the response from DELETE /portfolio/orders/{id}.
type CancelOrderResponse struct {
	Order         Order `json:"order"`
	ReducedBy     int   `json:"reduced_by,omitempty"`
	CanceledCount int   `json:"canceled_count,omitempty"`
}
