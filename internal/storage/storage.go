package storage

import (
	"context"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
)

// Storage records detected opportunities and execution outcomes.
type Storage interface {
	// StoreOpportunity records a detected arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreResult records the outcome of one execution attempt.
	StoreResult(ctx context.Context, result *execution.Result) error

	// Close closes the storage connection.
	Close() error
}
