package circuitbreaker

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		MaxDailyLossCents:    1000,
		MaxConsecutiveLosses: 3,
		MaxExposureCents:     50000,
		Cooldown:             50 * time.Millisecond,
		HalfOpenTestLimit:    1,
		Logger:               zaptest.NewLogger(t),
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid-config",
			config: &Config{
				MaxDailyLossCents:    1000,
				MaxConsecutiveLosses: 5,
				MaxExposureCents:     50000,
				Cooldown:             time.Minute,
				HalfOpenTestLimit:    1,
				Logger:               logger,
			},
			wantErr: false,
		},
		{
			name:    "nil-config",
			config:  nil,
			wantErr: true,
			errMsg:  "config cannot be nil",
		},
		{
			name: "nil-logger",
			config: &Config{
				MaxDailyLossCents:    1000,
				MaxConsecutiveLosses: 5,
				MaxExposureCents:     50000,
				Cooldown:             time.Minute,
				HalfOpenTestLimit:    1,
			},
			wantErr: true,
			errMsg:  "logger cannot be nil",
		},
		{
			name: "zero-max-daily-loss",
			config: &Config{
				MaxConsecutiveLosses: 5,
				MaxExposureCents:     50000,
				Cooldown:             time.Minute,
				HalfOpenTestLimit:    1,
				Logger:               logger,
			},
			wantErr: true,
			errMsg:  "max daily loss must be positive",
		},
		{
			name: "zero-max-consecutive-losses",
			config: &Config{
				MaxDailyLossCents: 1000,
				MaxExposureCents:  50000,
				Cooldown:          time.Minute,
				HalfOpenTestLimit: 1,
				Logger:            logger,
			},
			wantErr: true,
			errMsg:  "max consecutive losses must be positive",
		},
		{
			name: "zero-max-exposure",
			config: &Config{
				MaxDailyLossCents:    1000,
				MaxConsecutiveLosses: 5,
				Cooldown:             time.Minute,
				HalfOpenTestLimit:    1,
				Logger:               logger,
			},
			wantErr: true,
			errMsg:  "max exposure must be positive",
		},
		{
			name: "zero-cooldown",
			config: &Config{
				MaxDailyLossCents:    1000,
				MaxConsecutiveLosses: 5,
				MaxExposureCents:     50000,
				HalfOpenTestLimit:    1,
				Logger:               logger,
			},
			wantErr: true,
			errMsg:  "cooldown must be positive",
		},
		{
			name: "zero-half-open-test-limit",
			config: &Config{
				MaxDailyLossCents:    1000,
				MaxConsecutiveLosses: 5,
				MaxExposureCents:     50000,
				Cooldown:             time.Minute,
				Logger:               logger,
			},
			wantErr: true,
			errMsg:  "half-open test limit must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker, err := New(tt.config)

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error %q, got nil", tt.errMsg)
					return
				}
				if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if breaker == nil {
				t.Error("expected breaker, got nil")
				return
			}

			if breaker.State() != StateClosed {
				t.Errorf("expected initial state %q, got %q", StateClosed, breaker.State())
			}
			if breaker.IsOpen() {
				t.Error("expected new breaker to not be open")
			}

			status := breaker.GetStatus()
			if status.Limits.MaxDailyLossCents != tt.config.MaxDailyLossCents {
				t.Errorf("expected max daily loss %d, got %d", tt.config.MaxDailyLossCents, status.Limits.MaxDailyLossCents)
			}
			if status.TripReason != "" {
				t.Errorf("expected no trip reason, got %q", status.TripReason)
			}
		})
	}
}

func TestTripsOnDailyLoss(t *testing.T) {
	t.Parallel()

	breaker, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-500, 0)

	if breaker.State() != StateClosed {
		t.Errorf("expected state %q after first loss, got %q", StateClosed, breaker.State())
	}
	if got := breaker.GetMetrics().DailyLossCents; got != 500 {
		t.Errorf("expected daily loss 500, got %d", got)
	}

	breaker.RecordTradeResult(-500, 0)

	if breaker.State() != StateOpen {
		t.Errorf("expected state %q after second loss, got %q", StateOpen, breaker.State())
	}
	if !breaker.IsOpen() {
		t.Error("expected IsOpen after trip")
	}

	status := breaker.GetStatus()
	if !strings.Contains(status.TripReason, "Daily loss") {
		t.Errorf("expected trip reason containing %q, got %q", "Daily loss", status.TripReason)
	}
	if status.TripReason != "Daily loss limit: $10.00" {
		t.Errorf("expected trip reason %q, got %q", "Daily loss limit: $10.00", status.TripReason)
	}
	if status.Metrics.TripCount != 1 {
		t.Errorf("expected trip count 1, got %d", status.Metrics.TripCount)
	}
}

func TestTripsOnConsecutiveLosses(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxDailyLossCents = 100000
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-10, 0)
	breaker.RecordTradeResult(-10, 0)
	if breaker.State() != StateClosed {
		t.Fatalf("expected state %q after two losses, got %q", StateClosed, breaker.State())
	}

	breaker.RecordTradeResult(-10, 0)
	if breaker.State() != StateOpen {
		t.Errorf("expected state %q after third loss, got %q", StateOpen, breaker.State())
	}
	if got := breaker.GetStatus().TripReason; got != "Consecutive losses: 3" {
		t.Errorf("expected trip reason %q, got %q", "Consecutive losses: 3", got)
	}
}

func TestTripsOnExposure(t *testing.T) {
	t.Parallel()

	breaker, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordExposure(49999)
	if breaker.State() != StateClosed {
		t.Fatalf("expected state %q below the limit, got %q", StateClosed, breaker.State())
	}

	breaker.RecordExposure(50000)
	if breaker.State() != StateOpen {
		t.Errorf("expected state %q at the limit, got %q", StateOpen, breaker.State())
	}
	if got := breaker.GetStatus().TripReason; got != "Exposure limit: $500.00" {
		t.Errorf("expected trip reason %q, got %q", "Exposure limit: $500.00", got)
	}
}

// When several limits are breached at once the daily-loss reason wins.
func TestTripReasonPriority(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxDailyLossCents = 100
	cfg.MaxConsecutiveLosses = 1
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-100, 0)

	if got := breaker.GetStatus().TripReason; got != "Daily loss limit: $1.00" {
		t.Errorf("expected trip reason %q, got %q", "Daily loss limit: $1.00", got)
	}
	if got := breaker.GetStatus().Metrics.TripCount; got != 1 {
		t.Errorf("expected a single trip, got %d", got)
	}
}

func TestAllowWhileOpen(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Cooldown = time.Hour
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected closed breaker to allow, got %v", err)
	}

	breaker.ForceOpen("venue outage")

	err = breaker.Allow()
	if err == nil {
		t.Fatal("expected open breaker to deny, got nil")
	}

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenError, got %T", err)
	}
	if openErr.Reason != "venue outage" {
		t.Errorf("expected reason %q, got %q", "venue outage", openErr.Reason)
	}
	if openErr.CooldownRemaining <= 0 || openErr.CooldownRemaining > time.Hour {
		t.Errorf("expected cooldown remaining in (0, 1h], got %v", openErr.CooldownRemaining)
	}
	if !strings.Contains(err.Error(), "circuit breaker open") {
		t.Errorf("unexpected error text %q", err.Error())
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	var resetCalled bool
	cfg := testConfig(t)
	cfg.MaxConsecutiveLosses = 1
	cfg.OnReset = func() { resetCalled = true }
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-100, 0)
	if breaker.State() != StateOpen {
		t.Fatalf("expected state %q after trip, got %q", StateOpen, breaker.State())
	}

	// Let the cooldown elapse, then the next allowance enters half-open.
	time.Sleep(cfg.Cooldown + 20*time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected allowance after cooldown, got %v", err)
	}
	if breaker.State() != StateHalfOpen {
		t.Fatalf("expected state %q, got %q", StateHalfOpen, breaker.State())
	}
	if breaker.IsOpen() {
		t.Error("expected half-open breaker to not report open")
	}

	breaker.RecordTradeResult(10, 0)

	if breaker.State() != StateClosed {
		t.Errorf("expected state %q after winning test trade, got %q", StateClosed, breaker.State())
	}
	if !resetCalled {
		t.Error("expected reset callback to fire")
	}
	if got := breaker.GetStatus().TripReason; got != "" {
		t.Errorf("expected trip reason cleared, got %q", got)
	}
	if got := breaker.GetMetrics().ConsecutiveLosses; got != 0 {
		t.Errorf("expected consecutive losses cleared, got %d", got)
	}
}

func TestHalfOpenTradeLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.HalfOpenTestLimit = 2
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.ForceOpen("")
	time.Sleep(cfg.Cooldown + 20*time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected first test allowance, got %v", err)
	}
	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected second test allowance, got %v", err)
	}

	err = breaker.Allow()
	if err == nil {
		t.Fatal("expected third allowance to be denied")
	}
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected OpenError, got %T", err)
	}
	if openErr.Reason != "half-open trade limit reached" {
		t.Errorf("expected reason %q, got %q", "half-open trade limit reached", openErr.Reason)
	}
	if openErr.CooldownRemaining != 0 {
		t.Errorf("expected no cooldown on half-open denial, got %v", openErr.CooldownRemaining)
	}
}

// A loss during the half-open test re-trips even when no limit is breached.
func TestHalfOpenLossRetrips(t *testing.T) {
	t.Parallel()

	var tripReasons []string
	cfg := testConfig(t)
	cfg.MaxDailyLossCents = 100000
	cfg.MaxConsecutiveLosses = 100
	cfg.OnTrip = func(reason string) { tripReasons = append(tripReasons, reason) }
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.ForceOpen("manual halt")
	time.Sleep(cfg.Cooldown + 20*time.Millisecond)

	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected test allowance, got %v", err)
	}
	if breaker.State() != StateHalfOpen {
		t.Fatalf("expected state %q, got %q", StateHalfOpen, breaker.State())
	}

	breaker.RecordTradeResult(-1, 0)

	if breaker.State() != StateOpen {
		t.Errorf("expected state %q after half-open loss, got %q", StateOpen, breaker.State())
	}
	if got := breaker.GetStatus().TripReason; got != "Loss during half-open test" {
		t.Errorf("expected trip reason %q, got %q", "Loss during half-open test", got)
	}
	if got := breaker.GetMetrics().TripCount; got != 2 {
		t.Errorf("expected trip count 2, got %d", got)
	}
	if len(tripReasons) != 2 || tripReasons[1] != "Loss during half-open test" {
		t.Errorf("unexpected trip callback reasons %v", tripReasons)
	}
}

func TestWinResetsConsecutiveLosses(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxDailyLossCents = 100000
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-10, 0)
	breaker.RecordTradeResult(-10, 0)
	if got := breaker.GetMetrics().ConsecutiveLosses; got != 2 {
		t.Fatalf("expected 2 consecutive losses, got %d", got)
	}

	breaker.RecordTradeResult(5, 0)
	if got := breaker.GetMetrics().ConsecutiveLosses; got != 0 {
		t.Errorf("expected consecutive losses reset, got %d", got)
	}

	// A fresh streak counts from zero again.
	breaker.RecordTradeResult(-10, 0)
	breaker.RecordTradeResult(-10, 0)
	if breaker.State() != StateClosed {
		t.Errorf("expected state %q, got %q", StateClosed, breaker.State())
	}
}

func TestZeroProfitIsNeutral(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxConsecutiveLosses = 5
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-10, 0)
	breaker.RecordTradeResult(0, 0)
	if got := breaker.GetMetrics().ConsecutiveLosses; got != 1 {
		t.Errorf("expected consecutive losses untouched at 1, got %d", got)
	}

	breaker.ForceOpen("")
	time.Sleep(cfg.Cooldown + 20*time.Millisecond)
	if err := breaker.Allow(); err != nil {
		t.Fatalf("expected test allowance, got %v", err)
	}

	breaker.RecordTradeResult(0, 0)
	if breaker.State() != StateHalfOpen {
		t.Errorf("expected zero-profit trade to leave state %q, got %q", StateHalfOpen, breaker.State())
	}
}

func TestForceOpenAndForceClose(t *testing.T) {
	t.Parallel()

	var tripReason string
	var resetCalled bool
	cfg := testConfig(t)
	cfg.OnTrip = func(reason string) { tripReason = reason }
	cfg.OnReset = func() { resetCalled = true }
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.ForceOpen("")
	if breaker.State() != StateOpen {
		t.Errorf("expected state %q, got %q", StateOpen, breaker.State())
	}
	if tripReason != "Manual trigger" {
		t.Errorf("expected default reason %q, got %q", "Manual trigger", tripReason)
	}

	breaker.ForceClose()
	if breaker.State() != StateClosed {
		t.Errorf("expected state %q, got %q", StateClosed, breaker.State())
	}
	if !resetCalled {
		t.Error("expected reset callback to fire")
	}

	breaker.ForceOpen("scheduled maintenance")
	if tripReason != "scheduled maintenance" {
		t.Errorf("expected reason %q, got %q", "scheduled maintenance", tripReason)
	}
	if got := breaker.GetMetrics().TripCount; got != 2 {
		t.Errorf("expected trip count 2, got %d", got)
	}
}

func TestResetDailyMetrics(t *testing.T) {
	t.Parallel()

	breaker, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(-500, 0)
	breaker.ResetDailyMetrics()

	m := breaker.GetMetrics()
	if m.DailyLossCents != 0 {
		t.Errorf("expected daily loss reset, got %d", m.DailyLossCents)
	}
	if m.ConsecutiveLosses != 1 {
		t.Errorf("expected consecutive losses untouched at 1, got %d", m.ConsecutiveLosses)
	}

	// Resetting the day counter never closes a tripped breaker.
	breaker.ForceOpen("")
	breaker.ResetDailyMetrics()
	if breaker.State() != StateOpen {
		t.Errorf("expected state %q, got %q", StateOpen, breaker.State())
	}
}

func TestGetStatusCooldownRemaining(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Cooldown = time.Hour
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	if got := breaker.GetStatus().CooldownRemainingSeconds; got != 0 {
		t.Errorf("expected no cooldown while closed, got %f", got)
	}

	breaker.ForceOpen("")
	status := breaker.GetStatus()
	if status.CooldownRemainingSeconds <= 0 || status.CooldownRemainingSeconds > 3600 {
		t.Errorf("expected cooldown remaining in (0, 3600], got %f", status.CooldownRemainingSeconds)
	}
}

func TestExposureRecordedOnEveryTrade(t *testing.T) {
	t.Parallel()

	breaker, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	breaker.RecordTradeResult(5, 12345)
	if got := breaker.GetMetrics().TotalExposureCents; got != 12345 {
		t.Errorf("expected exposure 12345, got %d", got)
	}

	breaker.RecordTradeResult(-5, 222)
	if got := breaker.GetMetrics().TotalExposureCents; got != 222 {
		t.Errorf("expected exposure 222, got %d", got)
	}
}

// Test concurrent access (race detector)
func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.MaxDailyLossCents = 1 << 30
	cfg.MaxConsecutiveLosses = 1 << 30
	cfg.MaxExposureCents = 1 << 30
	breaker, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create breaker: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = breaker.Allow()
				if j%2 == 0 {
					breaker.RecordTradeResult(1, j)
				} else {
					breaker.RecordTradeResult(-1, j)
				}
				_ = breaker.GetStatus()
				_ = breaker.IsOpen()
			}
		}(i)
	}
	wg.Wait()
}

// Benchmark IsOpen (hot path)
func BenchmarkIsOpen(b *testing.B) {
	breaker, err := New(&Config{
		MaxDailyLossCents:    1000,
		MaxConsecutiveLosses: 5,
		MaxExposureCents:     50000,
		Cooldown:             time.Minute,
		HalfOpenTestLimit:    1,
		Logger:               zaptest.NewLogger(b),
	})
	if err != nil {
		b.Fatalf("failed to create breaker: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = breaker.IsOpen()
	}
}

// Benchmark Allow on a closed breaker
func BenchmarkAllow(b *testing.B) {
	breaker, err := New(&Config{
		MaxDailyLossCents:    1000,
		MaxConsecutiveLosses: 5,
		MaxExposureCents:     50000,
		Cooldown:             time.Minute,
		HalfOpenTestLimit:    1,
		Logger:               zaptest.NewLogger(b),
	})
	if err != nil {
		b.Fatalf("failed to create breaker: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = breaker.Allow()
	}
}
