package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// GetBalance returns the available account balance in cents.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var resp types.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/balance", nil, nil, &resp); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return resp.Balance, nil
}

// MarketsParams filters GET /markets.
type MarketsParams struct {
	EventTicker string
	Status      string // defaults to "open"
	Limit       int    // defaults to 100
	Cursor      string
}

// GetMarkets lists markets matching the given filters, one page at a
// time. Callers follow Cursor in the response for subsequent pages.
func (c *Client) GetMarkets(ctx context.Context, params MarketsParams) (*types.MarketsResponse, error) {
	if params.Status == "" {
		params.Status = "open"
	}
	if params.Limit <= 0 {
		params.Limit = 100
	}

	q := url.Values{}
	q.Set("status", params.Status)
	q.Set("limit", strconv.Itoa(params.Limit))
	if params.EventTicker != "" {
		q.Set("event_ticker", params.EventTicker)
	}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}

	var resp types.MarketsResponse
	if err := c.do(ctx, http.MethodGet, "/markets", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	return &resp, nil
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*types.Market, error) {
	var resp types.MarketResponse
	if err := c.do(ctx, http.MethodGet, "/markets/"+url.PathEscape(ticker), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	return &resp.Market, nil
}

// GetOrderbook fetches the bid ladders for a market. Depth limits levels
// per side; zero or negative uses the venue default of 10.
func (c *Client) GetOrderbook(ctx context.Context, ticker string, depth int) (*types.OrderbookData, error) {
	if depth <= 0 {
		depth = 10
	}
	q := url.Values{}
	q.Set("depth", strconv.Itoa(depth))

	var resp types.OrderbookResponse
	if err := c.do(ctx, http.MethodGet, "/markets/"+url.PathEscape(ticker)+"/orderbook", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("get orderbook %s: %w", ticker, err)
	}
	return &resp.Orderbook, nil
}

// GetEvent fetches an event and its member markets.
func (c *Client) GetEvent(ctx context.Context, eventTicker string) (*types.EventResponse, error) {
	var resp types.EventResponse
	if err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventTicker), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventTicker, err)
	}
	return &resp, nil
}

// CreateOrder submits an order and returns the venue's view of it,
// including the assigned order ID and initial status.
func (c *Client) CreateOrder(ctx context.Context, req *types.CreateOrderRequest) (*types.Order, error) {
	var resp types.OrderResponse
	if err := c.do(ctx, http.MethodPost, "/portfolio/orders", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("create order %s: %w", req.Ticker, err)
	}
	return &resp.Order, nil
}

// CancelOrder cancels a resting order by venue order ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*types.Order, error) {
	var resp types.CancelOrderResponse
	if err := c.do(ctx, http.MethodDelete, "/portfolio/orders/"+url.PathEscape(orderID), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}

// GetOrder fetches a single order by venue order ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*types.Order, error) {
	var resp types.OrderResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/orders/"+url.PathEscape(orderID), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &resp.Order, nil
}

// OrdersParams filters GET /portfolio/orders.
type OrdersParams struct {
	Ticker string
	Status string // defaults to "resting"
}

// GetOrders lists account orders.
func (c *Client) GetOrders(ctx context.Context, params OrdersParams) ([]types.Order, error) {
	if params.Status == "" {
		params.Status = "resting"
	}
	q := url.Values{}
	q.Set("status", params.Status)
	if params.Ticker != "" {
		q.Set("ticker", params.Ticker)
	}

	var resp types.OrdersResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/orders", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("get orders: %w", err)
	}
	return resp.Orders, nil
}

// GetPositions lists current market positions.
func (c *Client) GetPositions(ctx context.Context) ([]types.Position, error) {
	var resp types.PositionsResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/positions", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return resp.MarketPositions, nil
}

// FillsParams filters GET /portfolio/fills.
type FillsParams struct {
	Ticker string
	Limit  int // defaults to 100
}

// GetFills lists recent fills, newest first.
func (c *Client) GetFills(ctx context.Context, params FillsParams) ([]types.Fill, error) {
	if params.Limit <= 0 {
		params.Limit = 100
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(params.Limit))
	if params.Ticker != "" {
		q.Set("ticker", params.Ticker)
	}

	var resp types.FillsResponse
	if err := c.do(ctx, http.MethodGet, "/portfolio/fills", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("get fills: %w", err)
	}
	return resp.Fills, nil
}
