package circuitbreaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State identifies the breaker's position in its trading-halt state machine.
type State string

const (
	// StateClosed allows trading normally.
	StateClosed State = "closed"
	// StateOpen halts all trading until the cooldown passes.
	StateOpen State = "open"
	// StateHalfOpen admits a limited number of test trades after the cooldown.
	StateHalfOpen State = "half_open"
)

// OpenError is returned by Allow while trading is halted.
type OpenError struct {
	Reason            string
	CooldownRemaining time.Duration
}

func (e *OpenError) Error() string {
	if e.CooldownRemaining > 0 {
		return fmt.Sprintf("circuit breaker open: %s (cooldown %s remaining)", e.Reason, e.CooldownRemaining.Round(time.Second))
	}
	return fmt.Sprintf("circuit breaker open: %s", e.Reason)
}

// Metrics is a snapshot of the counters the breaker trips on.
type Metrics struct {
	DailyLossCents     int       `json:"daily_loss_cents"`
	ConsecutiveLosses  int       `json:"consecutive_losses"`
	TotalExposureCents int       `json:"total_exposure_cents"`
	LastLossTime       time.Time `json:"last_loss_time"`
	TripCount          int       `json:"trip_count"`
	LastTripTime       time.Time `json:"last_trip_time"`
}

// Limits reports the configured trip thresholds.
type Limits struct {
	MaxDailyLossCents    int `json:"max_daily_loss_cents"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`
	MaxExposureCents     int `json:"max_exposure_cents"`
}

// Status holds the breaker's externally visible condition for debugging
// and HTTP endpoints.
type Status struct {
	State                    State   `json:"state"`
	TripReason               string  `json:"trip_reason,omitempty"`
	CooldownRemainingSeconds float64 `json:"cooldown_remaining_seconds"`
	Metrics                  Metrics `json:"metrics"`
	Limits                   Limits  `json:"limits"`
}

// Config holds circuit breaker configuration. OnTrip and OnReset are
// invoked outside the breaker's lock and must not block.
type Config struct {
	MaxDailyLossCents    int
	MaxConsecutiveLosses int
	MaxExposureCents     int
	Cooldown             time.Duration
	HalfOpenTestLimit    int
	OnTrip               func(reason string)
	OnReset              func()
	Logger               *zap.Logger
}

// Breaker halts trading when accumulated losses or total exposure breach
// configured limits. Once tripped it stays open for the cooldown, then
// admits a limited number of test trades: the first winning one restores
// normal operation, any losing one re-trips immediately.
type Breaker struct {
	open atomic.Bool // Atomic for lock-free reads

	// Configuration
	maxDailyLossCents    int
	maxConsecutiveLosses int
	maxExposureCents     int
	cooldown             time.Duration
	halfOpenTestLimit    int
	onTrip               func(string)
	onReset              func()
	logger               *zap.Logger

	// Protected by mutex
	mu             sync.Mutex
	state          State
	metrics        Metrics
	tripReason     string
	tripTime       time.Time
	halfOpenTrades int
}

// New creates a new circuit breaker in the CLOSED state.
func New(cfg *Config) (breaker *Breaker, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MaxDailyLossCents <= 0 {
		return nil, fmt.Errorf("max daily loss must be positive")
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		return nil, fmt.Errorf("max consecutive losses must be positive")
	}
	if cfg.MaxExposureCents <= 0 {
		return nil, fmt.Errorf("max exposure must be positive")
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("cooldown must be positive")
	}
	if cfg.HalfOpenTestLimit <= 0 {
		return nil, fmt.Errorf("half-open test limit must be positive")
	}

	breaker = &Breaker{
		maxDailyLossCents:    cfg.MaxDailyLossCents,
		maxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		maxExposureCents:     cfg.MaxExposureCents,
		cooldown:             cfg.Cooldown,
		halfOpenTestLimit:    cfg.HalfOpenTestLimit,
		onTrip:               cfg.OnTrip,
		onReset:              cfg.OnReset,
		logger:               cfg.Logger,
		state:                StateClosed,
	}

	// Initialize metrics
	CircuitBreakerState.Set(stateValue(StateClosed))
	CircuitBreakerDailyLoss.Set(0)
	CircuitBreakerConsecutiveLosses.Set(0)
	CircuitBreakerExposure.Set(0)

	return breaker, nil
}

// IsOpen returns true while the breaker is fully open (not half-open).
// This is lock-free and safe to call from hot paths.
func (b *Breaker) IsOpen() (open bool) {
	return b.open.Load()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a trade may proceed. An open breaker whose
// cooldown has passed advances to HALF_OPEN, and each HALF_OPEN call
// consumes one of the limited test allowances. Denials return an
// OpenError carrying the remaining cooldown.
func (b *Breaker) Allow() (err error) {
	var halfOpened bool

	b.mu.Lock()
	if b.state == StateOpen {
		remaining := b.cooldownRemainingLocked()
		if remaining > 0 {
			reason := b.tripReason
			b.mu.Unlock()
			CircuitBreakerRejections.Inc()
			return &OpenError{Reason: reason, CooldownRemaining: remaining}
		}
		b.state = StateHalfOpen
		b.halfOpenTrades = 0
		b.open.Store(false)
		CircuitBreakerState.Set(stateValue(StateHalfOpen))
		halfOpened = true
	}

	if b.state == StateHalfOpen {
		if b.halfOpenTrades >= b.halfOpenTestLimit {
			b.mu.Unlock()
			CircuitBreakerRejections.Inc()
			return &OpenError{Reason: "half-open trade limit reached"}
		}
		b.halfOpenTrades++
	}
	b.mu.Unlock()

	if halfOpened {
		b.logger.Info("breaker-half-open")
	}
	return nil
}

// RecordTradeResult feeds a completed trade into the breaker. A loss
// (negative profit) accumulates toward the daily and consecutive limits
// and re-trips a half-open breaker immediately; a win (positive profit)
// clears the consecutive count and closes a half-open breaker. A
// zero-profit trade only refreshes the exposure reading.
func (b *Breaker) RecordTradeResult(profitCents, exposureCents int) {
	var tripReason string
	var closed bool

	b.mu.Lock()
	b.metrics.TotalExposureCents = exposureCents
	CircuitBreakerExposure.Set(float64(exposureCents))

	switch {
	case profitCents < 0:
		b.metrics.DailyLossCents += -profitCents
		b.metrics.ConsecutiveLosses++
		b.metrics.LastLossTime = time.Now()
		CircuitBreakerDailyLoss.Set(float64(b.metrics.DailyLossCents))
		CircuitBreakerConsecutiveLosses.Set(float64(b.metrics.ConsecutiveLosses))

		tripReason = b.checkTripLocked()
		if tripReason == "" && b.state == StateHalfOpen {
			// Any loss during the half-open test re-trips, limits or not.
			tripReason = "Loss during half-open test"
			b.tripLocked("half_open_loss", tripReason)
		}
	case profitCents > 0:
		b.metrics.ConsecutiveLosses = 0
		CircuitBreakerConsecutiveLosses.Set(0)
		if b.state == StateHalfOpen {
			b.closeLocked()
			closed = true
		}
	}
	b.mu.Unlock()

	if tripReason != "" && b.onTrip != nil {
		b.onTrip(tripReason)
	}
	if closed && b.onReset != nil {
		b.onReset()
	}
}

// RecordExposure updates the total exposure reading from the periodic
// ledger sync and trips if it breaches the limit.
func (b *Breaker) RecordExposure(exposureCents int) {
	b.mu.Lock()
	b.metrics.TotalExposureCents = exposureCents
	CircuitBreakerExposure.Set(float64(exposureCents))
	tripReason := b.checkTripLocked()
	b.mu.Unlock()

	if tripReason != "" && b.onTrip != nil {
		b.onTrip(tripReason)
	}
}

// ResetDailyMetrics zeros the daily loss counter at the start of a new
// trading day without changing state.
func (b *Breaker) ResetDailyMetrics() {
	b.mu.Lock()
	b.metrics.DailyLossCents = 0
	CircuitBreakerDailyLoss.Set(0)
	b.mu.Unlock()

	b.logger.Info("breaker-daily-metrics-reset")
}

// ForceOpen trips the breaker manually. An empty reason defaults to
// "Manual trigger".
func (b *Breaker) ForceOpen(reason string) {
	if reason == "" {
		reason = "Manual trigger"
	}

	b.mu.Lock()
	b.tripLocked("manual", reason)
	b.mu.Unlock()

	if b.onTrip != nil {
		b.onTrip(reason)
	}
}

// ForceClose restores normal operation manually.
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	b.closeLocked()
	b.mu.Unlock()

	if b.onReset != nil {
		b.onReset()
	}
}

// GetMetrics returns a snapshot of the breaker's counters.
func (b *Breaker) GetMetrics() (m Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

// GetStatus returns current breaker status for debugging and HTTP endpoints.
func (b *Breaker) GetStatus() (status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var remaining float64
	if b.state == StateOpen {
		remaining = b.cooldownRemainingLocked().Seconds()
	}

	status = Status{
		State:                    b.state,
		TripReason:               b.tripReason,
		CooldownRemainingSeconds: remaining,
		Metrics:                  b.metrics,
		Limits: Limits{
			MaxDailyLossCents:    b.maxDailyLossCents,
			MaxConsecutiveLosses: b.maxConsecutiveLosses,
			MaxExposureCents:     b.maxExposureCents,
		},
	}

	return status
}

// checkTripLocked evaluates trip conditions in priority order and trips
// on the first one met. It returns the trip reason for the caller to
// hand to OnTrip after unlocking, or empty when nothing tripped. An
// already-open breaker is left alone.
func (b *Breaker) checkTripLocked() string {
	if b.state == StateOpen {
		return ""
	}

	var kind, reason string
	switch {
	case b.metrics.DailyLossCents >= b.maxDailyLossCents:
		kind = "daily_loss"
		reason = fmt.Sprintf("Daily loss limit: $%.2f", float64(b.metrics.DailyLossCents)/100)
	case b.metrics.ConsecutiveLosses >= b.maxConsecutiveLosses:
		kind = "consecutive_losses"
		reason = fmt.Sprintf("Consecutive losses: %d", b.metrics.ConsecutiveLosses)
	case b.metrics.TotalExposureCents >= b.maxExposureCents:
		kind = "exposure"
		reason = fmt.Sprintf("Exposure limit: $%.2f", float64(b.metrics.TotalExposureCents)/100)
	default:
		return ""
	}

	b.tripLocked(kind, reason)
	return reason
}

func (b *Breaker) tripLocked(kind, reason string) {
	b.state = StateOpen
	b.tripReason = reason
	b.tripTime = time.Now()
	b.metrics.TripCount++
	b.metrics.LastTripTime = b.tripTime
	b.halfOpenTrades = 0
	b.open.Store(true)

	CircuitBreakerState.Set(stateValue(StateOpen))
	CircuitBreakerTrips.WithLabelValues(kind).Inc()

	b.logger.Warn("breaker-tripped",
		zap.String("reason", reason),
		zap.Int("daily-loss-cents", b.metrics.DailyLossCents),
		zap.Int("consecutive-losses", b.metrics.ConsecutiveLosses),
		zap.Int("exposure-cents", b.metrics.TotalExposureCents),
		zap.Int("trip-count", b.metrics.TripCount))
}

func (b *Breaker) closeLocked() {
	b.state = StateClosed
	b.tripReason = ""
	b.tripTime = time.Time{}
	b.halfOpenTrades = 0
	b.open.Store(false)

	CircuitBreakerState.Set(stateValue(StateClosed))
	b.logger.Info("breaker-closed")
}

func (b *Breaker) cooldownRemainingLocked() time.Duration {
	if b.tripTime.IsZero() {
		return 0
	}
	remaining := b.cooldown - time.Since(b.tripTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func stateValue(s State) float64 {
	switch s {
	case StateOpen:
		return 1
	case StateHalfOpen:
		return 2
	default:
		return 0
	}
}
