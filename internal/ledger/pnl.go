package ledger

import (
	"sort"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// PnLSummary reports trading results computed from the fills cache.
// Unrealized P&L needs mark prices the ledger does not hold and stays
// zero.
type PnLSummary struct {
	RealizedPnLCents   int `json:"realized_pnl_cents"`
	UnrealizedPnLCents int `json:"unrealized_pnl_cents"`
	TotalFeesCents     int `json:"total_fees_cents"`
	TotalTrades        int `json:"total_trades"`
	WinningTrades      int `json:"winning_trades"`
	LosingTrades       int `json:"losing_trades"`
}

// TotalPnLCents returns realized plus unrealized P&L.
func (s PnLSummary) TotalPnLCents() int {
	return s.RealizedPnLCents + s.UnrealizedPnLCents
}

// WinRate returns the fraction of closed lots that made money, or 0 when
// no lots have closed.
func (s PnLSummary) WinRate() float64 {
	closed := s.WinningTrades + s.LosingTrades
	if closed == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(closed)
}

// lot is an unmatched run of contracts at one price.
type lot struct {
	price int
	count int
}

// CalculatePnL computes realized P&L from the cached fills. Fills are
// grouped by ticker and matched FIFO within each: the oldest open buy
// closes against the oldest open sell, realizing
// (sell_price - buy_price) x matched contracts. Fees are charged per
// fill on the fill's potential profit.
func (l *Ledger) CalculatePnL() (summary PnLSummary) {
	fills := l.Fills()

	byTicker := make(map[string][]types.Fill)
	for _, f := range fills {
		byTicker[f.Ticker] = append(byTicker[f.Ticker], f)
	}

	for _, group := range byTicker {
		realized, fees, wins, losses := l.tickerPnL(group)
		summary.RealizedPnLCents += realized
		summary.TotalFeesCents += fees
		summary.TotalTrades += len(group)
		summary.WinningTrades += wins
		summary.LosingTrades += losses
	}

	RealizedPnL.Set(float64(summary.RealizedPnLCents))
	FeesPaid.Set(float64(summary.TotalFeesCents))

	return summary
}

// tickerPnL matches one ticker's fills FIFO in time order.
func (l *Ledger) tickerPnL(fills []types.Fill) (realized, fees, wins, losses int) {
	sorted := append([]types.Fill(nil), fills...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedTime.Before(sorted[j].CreatedTime)
	})

	var buys, sells []lot
	for i := range sorted {
		f := &sorted[i]

		// The winning side's potential profit: a buy wins 100 - price
		// per contract, a sell keeps the premium.
		potential := f.Price
		if f.Action == types.ActionBuy {
			potential = 100 - f.Price
			buys = append(buys, lot{price: f.Price, count: f.Count})
		} else {
			sells = append(sells, lot{price: f.Price, count: f.Count})
		}

		fees += l.feeCents(potential, f.Count)
	}

	for len(buys) > 0 && len(sells) > 0 {
		matched := buys[0].count
		if sells[0].count < matched {
			matched = sells[0].count
		}

		pnl := (sells[0].price - buys[0].price) * matched
		realized += pnl

		switch {
		case pnl > 0:
			wins++
		case pnl < 0:
			losses++
		}

		buys[0].count -= matched
		if buys[0].count == 0 {
			buys = buys[1:]
		}
		sells[0].count -= matched
		if sells[0].count == 0 {
			sells = sells[1:]
		}
	}

	return realized, fees, wins, losses
}

// feeCents returns ceil(rate x potential x count) in cents. The products
// stay in integer micro-units so exact multiples never round up.
func (l *Ledger) feeCents(potentialCents, count int) int {
	if potentialCents <= 0 || count <= 0 {
		return 0
	}
	n := int64(potentialCents) * int64(count) * l.rateMicros
	return int((n + feeMicros - 1) / feeMicros)
}
