package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/orderbook"
)

// WatchEvent brings one event under management: fetch its markets,
// subscribe their tickers on the stream, seed the book store with REST
// snapshots, and add it to the watched set. A failed stream subscribe
// degrades the watch (REST snapshots still land; the sync loop repairs
// the subscription) instead of failing it.
func (e *Engine) WatchEvent(ctx context.Context, eventTicker string) error {
	eventMarkets, err := e.catalog.MarketsForEvent(ctx, eventTicker)
	if err != nil {
		return fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
	}
	if len(eventMarkets) == 0 {
		return fmt.Errorf("event %s has no open markets", eventTicker)
	}

	tickers := make([]string, 0, len(eventMarkets))
	for _, m := range eventMarkets {
		tickers = append(tickers, m.Ticker)
	}

	err = e.wsManager.Subscribe(ctx, tickers)
	if err != nil {
		e.logger.Warn("stream-subscribe-failed",
			zap.String("event-ticker", eventTicker),
			zap.Error(err))
	}

	snapshots, err := e.catalog.BooksForEvent(ctx, eventTicker, bookDepth)
	if err != nil {
		return fmt.Errorf("fetch orderbooks for %s: %w", eventTicker, err)
	}
	for ticker, data := range snapshots {
		e.books.InstallSnapshot(ticker, orderbook.NewBook(ticker, *data))
	}

	e.mu.Lock()
	e.watched[eventTicker] = true
	e.mu.Unlock()

	e.logger.Info("event-watched",
		zap.String("event-ticker", eventTicker),
		zap.Int("markets", len(eventMarkets)),
		zap.Int("books", len(snapshots)))

	return nil
}

// UnwatchEvent removes an event from management: unsubscribe its
// tickers, drop its books, and forget its catalog entries.
func (e *Engine) UnwatchEvent(ctx context.Context, eventTicker string) error {
	e.mu.Lock()
	watched := e.watched[eventTicker]
	delete(e.watched, eventTicker)
	e.mu.Unlock()

	if !watched {
		return fmt.Errorf("event %s is not watched", eventTicker)
	}

	tickers := e.catalog.EventTickers(eventTicker)

	err := e.wsManager.Unsubscribe(ctx, tickers)
	if err != nil {
		e.logger.Warn("stream-unsubscribe-failed",
			zap.String("event-ticker", eventTicker),
			zap.Error(err))
	}

	for _, ticker := range tickers {
		e.books.Remove(ticker)
	}
	e.catalog.Forget(eventTicker)

	e.logger.Info("event-unwatched",
		zap.String("event-ticker", eventTicker),
		zap.Int("markets", len(tickers)))

	return nil
}

// WatchedEvents returns the watched event tickers, sorted.
func (e *Engine) WatchedEvents() []string {
	e.mu.RLock()
	events := make([]string, 0, len(e.watched))
	for event := range e.watched {
		events = append(events, event)
	}
	e.mu.RUnlock()

	sort.Strings(events)
	return events
}
