package orderbook

import (
	"sort"
	"time"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// Book is the live order book for one market. Kalshi publishes only bids:
// YesBids and NoBids are price-descending ladders, and asks are implied
// across sides. Buying YES at price p lifts a NO bid at 100-p, so the
// best YES ask is 100 minus the best NO bid.
type Book struct {
	Ticker    string
	YesBids   []types.Level
	NoBids    []types.Level
	UpdatedAt time.Time
}

// NewBook builds a book from ladder data, normalizing both sides to
// price-descending order.
func NewBook(ticker string, data types.OrderbookData) *Book {
	b := &Book{
		Ticker:    ticker,
		YesBids:   append([]types.Level(nil), data.Yes...),
		NoBids:    append([]types.Level(nil), data.No...),
		UpdatedAt: time.Now(),
	}
	sortDescending(b.YesBids)
	sortDescending(b.NoBids)
	return b
}

// BestYesBid returns the highest YES bid, if any.
func (b *Book) BestYesBid() (int, bool) {
	return bestPrice(b.YesBids)
}

// BestNoBid returns the highest NO bid, if any.
func (b *Book) BestNoBid() (int, bool) {
	return bestPrice(b.NoBids)
}

// BestYesAsk returns the lowest implied YES ask, if any.
func (b *Book) BestYesAsk() (int, bool) {
	noBid, ok := b.BestNoBid()
	if !ok {
		return 0, false
	}
	return 100 - noBid, true
}

// BestNoAsk returns the lowest implied NO ask, if any.
func (b *Book) BestNoAsk() (int, bool) {
	yesBid, ok := b.BestYesBid()
	if !ok {
		return 0, false
	}
	return 100 - yesBid, true
}

// YesAskQuantity returns the quantity available at the best implied YES
// ask, aggregated across NO bids at the best price.
func (b *Book) YesAskQuantity() int {
	return quantityAtBest(b.NoBids)
}

// YesBidQuantity returns the quantity available at the best YES bid.
func (b *Book) YesBidQuantity() int {
	return quantityAtBest(b.YesBids)
}

// AcquisitionCost returns the cost in cents to buy quantity contracts of
// the given side at the best implied ask. The second result is false when
// no ask is available.
func (b *Book) AcquisitionCost(side types.Side, quantity int) (int, bool) {
	var ask int
	var ok bool
	if side == types.SideNo {
		ask, ok = b.BestNoAsk()
	} else {
		ask, ok = b.BestYesAsk()
	}
	if !ok {
		return 0, false
	}
	return ask * quantity, true
}

// BestPrices is the four-way quote for a market. Zero means no level on
// that side.
type BestPrices struct {
	YesBid int
	YesAsk int
	NoBid  int
	NoAsk  int
}

// BestPrices returns all four best prices at once.
func (b *Book) BestPrices() BestPrices {
	var p BestPrices
	p.YesBid, _ = b.BestYesBid()
	p.NoBid, _ = b.BestNoBid()
	p.YesAsk, _ = b.BestYesAsk()
	p.NoAsk, _ = b.BestNoAsk()
	return p
}

// Age returns how long ago the book last changed.
func (b *Book) Age() time.Duration {
	return time.Since(b.UpdatedAt)
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (b *Book) Clone() *Book {
	return &Book{
		Ticker:    b.Ticker,
		YesBids:   append([]types.Level(nil), b.YesBids...),
		NoBids:    append([]types.Level(nil), b.NoBids...),
		UpdatedAt: b.UpdatedAt,
	}
}

// applyDelta sets the absolute quantity at a price level on one side.
// Zero removes the level; new levels keep the ladder price-descending.
func (b *Book) applyDelta(side types.Side, price, quantity int) {
	if side == types.SideNo {
		b.NoBids = updateLevels(b.NoBids, price, quantity)
	} else {
		b.YesBids = updateLevels(b.YesBids, price, quantity)
	}
	b.UpdatedAt = time.Now()
}

func updateLevels(levels []types.Level, price, quantity int) []types.Level {
	for i, level := range levels {
		if level.Price == price {
			if quantity == 0 {
				return append(levels[:i], levels[i+1:]...)
			}
			levels[i].Quantity = quantity
			return levels
		}
	}
	if quantity <= 0 {
		return levels
	}

	// Insert keeping descending price order.
	i := 0
	for i < len(levels) && levels[i].Price > price {
		i++
	}
	levels = append(levels, types.Level{})
	copy(levels[i+1:], levels[i:])
	levels[i] = types.Level{Price: price, Quantity: quantity}
	return levels
}

func bestPrice(levels []types.Level) (int, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	best := levels[0].Price
	for _, level := range levels[1:] {
		if level.Price > best {
			best = level.Price
		}
	}
	return best, true
}

func quantityAtBest(levels []types.Level) int {
	best, ok := bestPrice(levels)
	if !ok {
		return 0
	}
	total := 0
	for _, level := range levels {
		if level.Price == best {
			total += level.Quantity
		}
	}
	return total
}

func sortDescending(levels []types.Level) {
	sort.Slice(levels, func(i, j int) bool { return levels[i].Price > levels[j].Price })
}
