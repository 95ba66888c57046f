package markets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsFetchedTotal counts markets fetched from the venue.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_markets_fetched_total",
		Help: "Total number of markets fetched from the venue",
	})

	// FetchErrorsTotal counts failed catalog fetches.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_markets_fetch_errors_total",
		Help: "Total number of catalog fetch errors",
	})

	// FetchDurationSeconds tracks event market fetch latency, all pages.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kalshi_arb_markets_fetch_duration_seconds",
		Help:    "Duration of event market fetches including pagination",
		Buckets: prometheus.DefBuckets,
	})

	// CatalogCacheHitsTotal counts market lookups served from cache.
	CatalogCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_markets_cache_hits_total",
		Help: "Total number of market cache hits",
	})

	// CatalogCacheMissesTotal counts market lookups that hit the venue.
	CatalogCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_arb_markets_cache_misses_total",
		Help: "Total number of market cache misses",
	})
)
