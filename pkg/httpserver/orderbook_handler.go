package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// OrderbookHandler serves order-book state from the book store.
type OrderbookHandler struct {
	books  *orderbook.Store
	logger *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(books *orderbook.Store, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{
		books:  books,
		logger: logger,
	}
}

// SideQuote is one side's best bid plus the implied ask derived from
// the opposite bid ladder.
type SideQuote struct {
	BestBid       int `json:"best_bid,omitempty"`
	ImpliedAsk    int `json:"implied_ask,omitempty"`
	QuantityAtAsk int `json:"quantity_at_ask,omitempty"`
	QuantityAtBid int `json:"quantity_at_bid,omitempty"`
}

// OrderbookResponse is the HTTP response for one market's book.
type OrderbookResponse struct {
	Ticker    string        `json:"ticker"`
	Yes       SideQuote     `json:"yes"`
	No        SideQuote     `json:"no"`
	YesLevels []types.Level `json:"yes_levels"`
	NoLevels  []types.Level `json:"no_levels"`
	AgeMS     int64         `json:"age_ms"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /orderbook/{ticker} requests.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		h.writeError(w, "missing ticker", http.StatusBadRequest)
		return
	}

	h.logger.Debug("orderbook-request-received", zap.String("ticker", ticker))

	book, ok := h.books.Get(ticker)
	if !ok {
		h.writeError(w, "orderbook not found or not subscribed", http.StatusNotFound)
		return
	}

	response := OrderbookResponse{
		Ticker:    ticker,
		YesLevels: book.YesBids,
		NoLevels:  book.NoBids,
		AgeMS:     book.Age().Milliseconds(),
	}

	if bid, ok := book.BestYesBid(); ok {
		response.Yes.BestBid = bid
		response.Yes.QuantityAtBid = book.YesBidQuantity()
	}
	if ask, ok := book.BestYesAsk(); ok {
		response.Yes.ImpliedAsk = ask
		response.Yes.QuantityAtAsk = book.YesAskQuantity()
	}
	if bid, ok := book.BestNoBid(); ok {
		response.No.BestBid = bid
	}
	if ask, ok := book.BestNoAsk(); ok {
		response.No.ImpliedAsk = ask
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(ErrorResponse{Error: message})
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
