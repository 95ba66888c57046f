package arbitrage

import (
	"time"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

// bookWith builds a book from raw bid ladders. Asks are implied: the
// best YES ask is 100 minus the best NO bid.
func bookWith(ticker string, yesBids, noBids []types.Level) *orderbook.Book {
	return orderbook.NewBook(ticker, types.OrderbookData{Yes: yesBids, No: noBids})
}

// askBook builds a book whose implied YES ask is price with quantity
// qty and no YES bids.
func askBook(ticker string, price, qty int) *orderbook.Book {
	return bookWith(ticker, nil, []types.Level{{Price: 100 - price, Quantity: qty}})
}

func market(ticker, event string) *types.Market {
	return &types.Market{
		Ticker:      ticker,
		EventTicker: event,
		Status:      "open",
	}
}

func datedMarket(ticker, event string, expiration time.Time) *types.Market {
	m := market(ticker, event)
	m.ExpirationTime = &expiration
	return m
}
