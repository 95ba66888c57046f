package execution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

const (
	defaultFillInitialBackoff = 200 * time.Millisecond
	defaultFillMaxBackoff     = 2 * time.Second

	// defaultFillTimeout is slightly past the IOC expiration so an
	// unfilled leg is observed as canceled rather than resting.
	defaultFillTimeout = 5 * time.Second
)

// FillStatus is the verified state of one order group leg.
type FillStatus struct {
	OrderID       string            `json:"order_id"`
	Ticker        string            `json:"ticker"`
	Status        types.OrderStatus `json:"status"`
	FilledCount   int               `json:"filled_count"`
	ExpectedCount int               `json:"expected_count"`
	FullyFilled   bool              `json:"fully_filled"`
	VerifiedAt    time.Time         `json:"verified_at"`
	Err           string            `json:"error,omitempty"`
}

// FillTrackerConfig holds fill verification configuration.
type FillTrackerConfig struct {
	Client         OrderClient
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	FillTimeout    time.Duration
	Logger         *zap.Logger
}

// FillTracker polls order status until every leg of a group reaches a
// terminal state, backing off exponentially between attempts.
type FillTracker struct {
	client         OrderClient
	initialBackoff time.Duration
	maxBackoff     time.Duration
	fillTimeout    time.Duration
	logger         *zap.Logger
}

// NewFillTracker creates a new fill tracker.
func NewFillTracker(cfg *FillTrackerConfig) *FillTracker {
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = defaultFillInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultFillMaxBackoff
	}
	fillTimeout := cfg.FillTimeout
	if fillTimeout <= 0 {
		fillTimeout = defaultFillTimeout
	}

	return &FillTracker{
		client:         cfg.Client,
		initialBackoff: initial,
		maxBackoff:     maxBackoff,
		fillTimeout:    fillTimeout,
		logger:         cfg.Logger,
	}
}

// VerifyGroup polls the venue until every order in the group is
// terminal or the fill timeout elapses. Refreshed orders are written
// back into group.Orders. Legs still open at timeout carry an error in
// their status; the returned slice is ordered by ticker.
func (ft *FillTracker) VerifyGroup(ctx context.Context, group *Group) ([]FillStatus, error) {
	tickers := make([]string, 0, len(group.Orders))
	for ticker := range group.Orders {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	statuses := make([]FillStatus, len(tickers))
	for i, ticker := range tickers {
		order := group.Orders[ticker]
		statuses[i] = FillStatus{
			OrderID:       order.OrderID,
			Ticker:        ticker,
			Status:        order.Status,
			FilledCount:   order.FilledCount(),
			ExpectedCount: order.Count,
			FullyFilled:   order.Status == types.OrderStatusExecuted,
			VerifiedAt:    time.Now(),
		}
	}

	start := time.Now()
	timeout := time.NewTimer(ft.fillTimeout)
	defer timeout.Stop()

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.InitialInterval = ft.initialBackoff
	backoffCfg.MaxInterval = ft.maxBackoff

	attempt := 1
	for {
		settled := true
		for i := range statuses {
			if statuses[i].Status.IsTerminal() {
				continue
			}

			order, err := ft.client.GetOrder(ctx, statuses[i].OrderID)
			if err != nil {
				ft.logger.Warn("order-query-failed-retrying",
					zap.String("order-id", statuses[i].OrderID),
					zap.Int("attempt", attempt),
					zap.Error(err))
				settled = false
				continue
			}

			statuses[i].Status = order.Status
			statuses[i].FilledCount = order.FilledCount()
			statuses[i].FullyFilled = order.Status == types.OrderStatusExecuted
			statuses[i].VerifiedAt = time.Now()
			group.Orders[statuses[i].Ticker] = order

			if order.Status.IsTerminal() {
				ft.logger.Info("order-settled",
					zap.String("order-id", order.OrderID),
					zap.String("ticker", statuses[i].Ticker),
					zap.String("status", string(order.Status)),
					zap.Int("filled-count", statuses[i].FilledCount),
					zap.Duration("duration", time.Since(start)))
			} else {
				settled = false
				ft.logger.Debug("order-not-yet-filled",
					zap.String("order-id", order.OrderID),
					zap.String("ticker", statuses[i].Ticker),
					zap.String("status", string(order.Status)),
					zap.Int("filled-count", statuses[i].FilledCount),
					zap.Int("expected-count", statuses[i].ExpectedCount))
			}
		}

		if settled {
			ft.logger.Info("fill-verification-complete",
				zap.String("group-id", group.ID),
				zap.Int("order-count", len(statuses)),
				zap.Int("attempts", attempt),
				zap.Duration("duration", time.Since(start)))
			return statuses, nil
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = ft.maxBackoff
		}

		select {
		case <-timeout.C:
			ft.logger.Warn("fill-verification-timeout",
				zap.String("group-id", group.ID),
				zap.Duration("timeout", ft.fillTimeout),
				zap.Int("attempts", attempt))
			for i := range statuses {
				if !statuses[i].Status.IsTerminal() {
					statuses[i].Err = fmt.Sprintf("fill verification timeout after %s", ft.fillTimeout)
				}
			}
			return statuses, nil

		case <-ctx.Done():
			ft.logger.Warn("fill-verification-canceled",
				zap.String("group-id", group.ID),
				zap.Int("attempts", attempt),
				zap.Error(ctx.Err()))
			return statuses, ctx.Err()

		case <-time.After(sleep):
			attempt++
		}
	}
}
