package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// MockVenue is an httptest server speaking enough of the venue REST API
// to drive the engine: markets by event, orderbook snapshots, portfolio
// state, and order placement.
type MockVenue struct {
	*httptest.Server

	mu             sync.Mutex
	markets        map[string][]types.Market // keyed by event ticker
	books          map[string]types.OrderbookData
	balance        int64
	positions      []types.Position
	fills          []types.Fill
	orderStatus    types.OrderStatus
	createdOrders  []types.CreateOrderRequest
	canceledOrders []string
	orderSeq       int
}

// NewMockVenue creates a mock venue with no markets and an executed-fill
// order behavior.
func NewMockVenue() *MockVenue {
	venue := &MockVenue{
		markets:     make(map[string][]types.Market),
		books:       make(map[string]types.OrderbookData),
		balance:     100000,
		orderStatus: types.OrderStatusExecuted,
	}
	venue.Server = httptest.NewServer(http.HandlerFunc(venue.handle))
	return venue
}

// SetMarkets replaces the market list for one event.
func (v *MockVenue) SetMarkets(eventTicker string, markets ...*types.Market) {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := make([]types.Market, 0, len(markets))
	for _, m := range markets {
		list = append(list, *m)
	}
	v.markets[eventTicker] = list
}

// SetBook replaces the orderbook snapshot served for one ticker.
func (v *MockVenue) SetBook(ticker string, data types.OrderbookData) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.books[ticker] = data
}

// SetBalance sets the served account balance in cents.
func (v *MockVenue) SetBalance(cents int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance = cents
}

// SetPositions replaces the served portfolio positions.
func (v *MockVenue) SetPositions(positions ...types.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.positions = append([]types.Position(nil), positions...)
}

// SetOrderStatus selects the terminal status returned for created
// orders (executed by default; resting exercises leg-risk paths).
func (v *MockVenue) SetOrderStatus(status types.OrderStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.orderStatus = status
}

// CreatedOrders returns every order placement the venue received.
func (v *MockVenue) CreatedOrders() []types.CreateOrderRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]types.CreateOrderRequest(nil), v.createdOrders...)
}

// CanceledOrders returns the venue order IDs canceled so far.
func (v *MockVenue) CanceledOrders() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.canceledOrders...)
}

func (v *MockVenue) handle(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/markets" && r.Method == http.MethodGet:
		event := r.URL.Query().Get("event_ticker")
		writeJSON(w, types.MarketsResponse{Markets: v.markets[event]})

	case strings.HasPrefix(path, "/markets/") && strings.HasSuffix(path, "/orderbook"):
		ticker := strings.TrimSuffix(strings.TrimPrefix(path, "/markets/"), "/orderbook")
		data, ok := v.books[ticker]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, types.OrderbookResponse{Orderbook: data})

	case strings.HasPrefix(path, "/markets/") && r.Method == http.MethodGet:
		ticker := strings.TrimPrefix(path, "/markets/")
		for _, list := range v.markets {
			for _, m := range list {
				if m.Ticker == ticker {
					writeJSON(w, types.MarketResponse{Market: m})
					return
				}
			}
		}
		http.NotFound(w, r)

	case path == "/portfolio/balance":
		writeJSON(w, types.BalanceResponse{Balance: v.balance})

	case path == "/portfolio/positions":
		writeJSON(w, types.PositionsResponse{MarketPositions: v.positions})

	case path == "/portfolio/fills":
		writeJSON(w, types.FillsResponse{Fills: v.fills})

	case path == "/portfolio/orders" && r.Method == http.MethodPost:
		var req types.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v.createdOrders = append(v.createdOrders, req)
		v.orderSeq++

		remaining := 0
		if v.orderStatus == types.OrderStatusResting {
			remaining = req.Count
		}
		writeJSON(w, map[string]any{"order": map[string]any{
			"order_id":        fmt.Sprintf("venue-order-%d", v.orderSeq),
			"client_order_id": req.ClientOrderID,
			"ticker":          req.Ticker,
			"side":            req.Side,
			"action":          req.Action,
			"type":            req.Type,
			"status":          v.orderStatus,
			"yes_price":       req.YesPrice,
			"no_price":        req.NoPrice,
			"count":           req.Count,
			"remaining_count": remaining,
		}})

	case strings.HasPrefix(path, "/portfolio/orders/") && r.Method == http.MethodDelete:
		orderID := strings.TrimPrefix(path, "/portfolio/orders/")
		v.canceledOrders = append(v.canceledOrders, orderID)
		writeJSON(w, map[string]any{"order": map[string]any{
			"order_id": orderID,
			"status":   types.OrderStatusCanceled,
		}})

	case strings.HasPrefix(path, "/portfolio/orders/") && r.Method == http.MethodGet:
		orderID := strings.TrimPrefix(path, "/portfolio/orders/")
		writeJSON(w, map[string]any{"order": map[string]any{
			"order_id": orderID,
			"status":   v.orderStatus,
		}})

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// MockStorage is an in-memory Storage implementation for tests.
type MockStorage struct {
	mu            sync.Mutex
	opportunities []*arbitrage.Opportunity
	results       []*execution.Result
}

// NewMockStorage creates a new mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// StoreOpportunity records an opportunity in memory.
func (m *MockStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oppCopy := *opp
	m.opportunities = append(m.opportunities, &oppCopy)
	return nil
}

// StoreResult records an execution result in memory.
func (m *MockStorage) StoreResult(ctx context.Context, result *execution.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resultCopy := *result
	m.results = append(m.results, &resultCopy)
	return nil
}

// Close is a no-op for mock storage.
func (m *MockStorage) Close() error {
	return nil
}

// Opportunities returns all stored opportunities.
func (m *MockStorage) Opportunities() []*arbitrage.Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*arbitrage.Opportunity(nil), m.opportunities...)
}

// Results returns all stored execution results.
func (m *MockStorage) Results() []*execution.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*execution.Result(nil), m.results...)
}
