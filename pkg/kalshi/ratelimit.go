package kalshi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces the venue's per-second request budgets. Reads and
// writes draw from independent token buckets, so a burst of order
// submissions cannot starve market data polling. Bucket capacity equals
// the sustained rate: after an idle second a full second of requests can
// drain at once, then callers block for fractional refill.
type RateLimiter struct {
	read  *rate.Limiter
	write *rate.Limiter
}

// NewRateLimiter builds a limiter with the given sustained per-second
// rates for read (GET/HEAD/OPTIONS) and write (everything else) requests.
func NewRateLimiter(readPerSec, writePerSec int) *RateLimiter {
	return &RateLimiter{
		read:  rate.NewLimiter(rate.Limit(readPerSec), readPerSec),
		write: rate.NewLimiter(rate.Limit(writePerSec), writePerSec),
	}
}

// Acquire blocks until a token is available for the given HTTP method or
// the context is canceled.
func (l *RateLimiter) Acquire(ctx context.Context, method string) error {
	start := time.Now()
	if err := l.limiterFor(method).Wait(ctx); err != nil {
		return err
	}
	RateLimitWaitSeconds.WithLabelValues(bucketName(method)).Observe(time.Since(start).Seconds())
	return nil
}

func (l *RateLimiter) limiterFor(method string) *rate.Limiter {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return l.read
	default:
		return l.write
	}
}

func bucketName(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	default:
		return "write"
	}
}
