package markets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/cache"
	"github.com/mselser95/kalshi-arb/pkg/kalshi"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	defaultMetadataTTL = time.Hour
	defaultBookDepth   = 10

	marketKeyPrefix = "market:"
)

// Client is the venue surface the catalog needs.
type Client interface {
	GetMarkets(ctx context.Context, params kalshi.MarketsParams) (*types.MarketsResponse, error)
	GetMarket(ctx context.Context, ticker string) (*types.Market, error)
	GetOrderbook(ctx context.Context, ticker string, depth int) (*types.OrderbookData, error)
}

// Catalog fetches market metadata per event and caches it. The
// event-to-ticker index is authoritative; individual markets live in
// the TTL cache and are refetched on a miss.
type Catalog struct {
	client Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger

	mu           sync.RWMutex
	eventMarkets map[string][]string
}

// Config holds catalog configuration.
type Config struct {
	Client Client
	Cache  cache.Cache // optional; nil disables caching
	TTL    time.Duration
	Logger *zap.Logger
}

// New creates a market catalog.
func New(cfg *Config) *Catalog {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}

	return &Catalog{
		client:       cfg.Client,
		cache:        cfg.Cache,
		ttl:          ttl,
		logger:       cfg.Logger,
		eventMarkets: make(map[string][]string),
	}
}

// MarketsForEvent fetches every open market under an event, following
// the venue cursor until exhausted, and refreshes the event index.
func (c *Catalog) MarketsForEvent(ctx context.Context, eventTicker string) ([]types.Market, error) {
	start := time.Now()

	var markets []types.Market
	cursor := ""

	for {
		resp, err := c.client.GetMarkets(ctx, kalshi.MarketsParams{
			EventTicker: eventTicker,
			Cursor:      cursor,
		})
		if err != nil {
			FetchErrorsTotal.Inc()
			return nil, fmt.Errorf("fetch markets for %s: %w", eventTicker, err)
		}

		markets = append(markets, resp.Markets...)
		for i := range resp.Markets {
			c.cacheMarket(&resp.Markets[i])
		}

		// An unchanged cursor would page forever.
		if resp.Cursor == "" || resp.Cursor == cursor || len(resp.Markets) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	tickers := make([]string, len(markets))
	for i := range markets {
		tickers[i] = markets[i].Ticker
	}

	c.mu.Lock()
	c.eventMarkets[eventTicker] = tickers
	c.mu.Unlock()

	MarketsFetchedTotal.Add(float64(len(markets)))
	FetchDurationSeconds.Observe(time.Since(start).Seconds())

	c.logger.Info("fetched-event-markets",
		zap.String("event-ticker", eventTicker),
		zap.Int("market-count", len(markets)))

	return markets, nil
}

// Market returns one market, from cache when fresh.
func (c *Catalog) Market(ctx context.Context, ticker string) (*types.Market, error) {
	if m := c.cachedMarket(ticker); m != nil {
		CatalogCacheHitsTotal.Inc()
		return m, nil
	}
	CatalogCacheMissesTotal.Inc()

	market, err := c.client.GetMarket(ctx, ticker)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch market %s: %w", ticker, err)
	}

	c.cacheMarket(market)
	return market, nil
}

// BooksForEvent fetches REST orderbook snapshots for every market in an
// event. A failed book is logged and skipped so one halted market does
// not block the rest.
func (c *Catalog) BooksForEvent(ctx context.Context, eventTicker string, depth int) (map[string]*types.OrderbookData, error) {
	tickers := c.EventTickers(eventTicker)
	if len(tickers) == 0 {
		if _, err := c.MarketsForEvent(ctx, eventTicker); err != nil {
			return nil, err
		}
		tickers = c.EventTickers(eventTicker)
	}

	if depth <= 0 {
		depth = defaultBookDepth
	}

	books := make(map[string]*types.OrderbookData, len(tickers))
	for _, ticker := range tickers {
		book, err := c.client.GetOrderbook(ctx, ticker, depth)
		if err != nil {
			FetchErrorsTotal.Inc()
			c.logger.Warn("orderbook-fetch-failed",
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}
		books[ticker] = book
	}

	return books, nil
}

// EventTickers returns the indexed ticker list for an event.
func (c *Catalog) EventTickers(eventTicker string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.eventMarkets[eventTicker]...)
}

// CachedMarketsForEvent returns the cached markets for an event,
// skipping any the cache evicted.
func (c *Catalog) CachedMarketsForEvent(eventTicker string) []types.Market {
	tickers := c.EventTickers(eventTicker)

	markets := make([]types.Market, 0, len(tickers))
	for _, ticker := range tickers {
		if m := c.cachedMarket(ticker); m != nil {
			markets = append(markets, *m)
		}
	}
	return markets
}

// Forget drops an event's index entry and its cached markets.
func (c *Catalog) Forget(eventTicker string) {
	c.mu.Lock()
	tickers := c.eventMarkets[eventTicker]
	delete(c.eventMarkets, eventTicker)
	c.mu.Unlock()

	if c.cache == nil {
		return
	}
	for _, ticker := range tickers {
		c.cache.Delete(marketKeyPrefix + ticker)
	}
}

// ClearCache drops the event index and all cached markets.
func (c *Catalog) ClearCache() {
	c.mu.Lock()
	c.eventMarkets = make(map[string][]string)
	c.mu.Unlock()

	if c.cache != nil {
		c.cache.Clear()
	}
	c.logger.Info("market-cache-cleared")
}

func (c *Catalog) cachedMarket(ticker string) *types.Market {
	if c.cache == nil {
		return nil
	}

	value, found := c.cache.Get(marketKeyPrefix + ticker)
	if !found {
		return nil
	}

	market, ok := value.(*types.Market)
	if !ok {
		c.logger.Warn("invalid-market-type-in-cache", zap.String("ticker", ticker))
		return nil
	}
	return market
}

func (c *Catalog) cacheMarket(market *types.Market) {
	if c.cache == nil {
		return
	}
	if !c.cache.Set(marketKeyPrefix+market.Ticker, market, c.ttl) {
		c.logger.Debug("market-not-cached", zap.String("ticker", market.Ticker))
	}
}
