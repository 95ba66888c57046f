package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of an alert.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

const defaultRateLimit = time.Minute

// rank orders levels for the minimum-level gate. Unknown levels rank
// lowest so they are only delivered when everything is.
func (l Level) rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	case LevelCritical:
		return 4
	default:
		return 0
	}
}

// Alert is one notification. Details render as short fields on the
// webhook message, sorted by name.
type Alert struct {
	Level     Level
	Title     string
	Message   string
	Timestamp time.Time
	Details   map[string]string
}

// Sink delivers alerts somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// Manager fans alerts out to the configured sinks, dropping anything
// below the minimum level and suppressing repeats of the same
// level+title inside the rate-limit window.
type Manager struct {
	sinks     []Sink
	minLevel  Level
	rateLimit time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int
}

// Config holds alert manager configuration.
type Config struct {
	SlackWebhookURL   string
	DiscordWebhookURL string
	// Sinks overrides webhook construction; when set the URLs above are
	// ignored.
	Sinks     []Sink
	MinLevel  Level
	RateLimit time.Duration
	Timeout   time.Duration
	Logger    *zap.Logger
}

// New creates an alert manager. With no webhook configured it still
// works as a suppression-aware no-op so callers never nil-check.
func New(cfg *Config) *Manager {
	sinks := cfg.Sinks
	if sinks == nil {
		if cfg.SlackWebhookURL != "" {
			sinks = append(sinks, NewSlackSink(cfg.SlackWebhookURL, cfg.Timeout, cfg.Logger))
		}
		if cfg.DiscordWebhookURL != "" {
			sinks = append(sinks, NewDiscordSink(cfg.DiscordWebhookURL, cfg.Timeout, cfg.Logger))
		}
	}

	minLevel := cfg.MinLevel
	if minLevel == "" {
		minLevel = LevelInfo
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	cfg.Logger.Info("alert-manager-initialized",
		zap.Int("sinks", len(sinks)),
		zap.String("min-level", string(minLevel)))

	return &Manager{
		sinks:      sinks,
		minLevel:   minLevel,
		rateLimit:  rateLimit,
		logger:     cfg.Logger,
		now:        time.Now,
		lastSent:   make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

// Send delivers an alert to every sink. Suppressed and filtered alerts
// return nil; delivery failures are joined per sink.
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Level.rank() < m.minLevel.rank() {
		return nil
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = m.now()
	}

	repeats, ok := m.admit(alert)
	if !ok {
		m.logger.Debug("alert-rate-limited", zap.String("title", alert.Title))
		AlertsSuppressedTotal.Inc()
		return nil
	}
	if repeats > 0 {
		alert.Message = fmt.Sprintf("%s (%d suppressed since last)", alert.Message, repeats)
	}

	if len(m.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, sink := range m.sinks {
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			if err := sink.Send(ctx, alert); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sink.Name(), err)
				AlertSendErrorsTotal.WithLabelValues(sink.Name()).Inc()
				m.logger.Error("alert-send-failed",
					zap.String("sink", sink.Name()),
					zap.String("title", alert.Title),
					zap.Error(err))
				return
			}
			AlertsSentTotal.WithLabelValues(sink.Name()).Inc()
		}(i, sink)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// admit applies the per-title rate limit and reports how many repeats
// were suppressed since the last delivery.
func (m *Manager) admit(alert Alert) (int, bool) {
	key := string(alert.Level) + ":" + alert.Title

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastSent[key]; ok && m.now().Sub(last) < m.rateLimit {
		m.suppressed[key]++
		return 0, false
	}

	repeats := m.suppressed[key]
	m.lastSent[key] = m.now()
	m.suppressed[key] = 0
	return repeats, true
}

// OpportunityDetected notifies that a detected opportunity passed the
// profitability gate.
func (m *Manager) OpportunityDetected(ctx context.Context, arbType, eventTicker string, profitCents int) error {
	return m.Send(ctx, Alert{
		Level:   LevelInfo,
		Title:   "Arbitrage Opportunity Detected",
		Message: fmt.Sprintf("Found %s arbitrage in %s", arbType, eventTicker),
		Details: map[string]string{
			"Type":   arbType,
			"Event":  eventTicker,
			"Profit": dollars(profitCents),
		},
	})
}

// TradeExecuted notifies a completed order group.
func (m *Manager) TradeExecuted(ctx context.Context, eventTicker string, profitCents, legs int) error {
	return m.Send(ctx, Alert{
		Level:   LevelInfo,
		Title:   "Trade Executed",
		Message: fmt.Sprintf("Successfully executed %d-leg arbitrage", legs),
		Details: map[string]string{
			"Event":  eventTicker,
			"Profit": dollars(profitCents),
			"Legs":   fmt.Sprintf("%d", legs),
		},
	})
}

// TradeFailed notifies a failed order group.
func (m *Manager) TradeFailed(ctx context.Context, eventTicker, reason string) error {
	return m.Send(ctx, Alert{
		Level:   LevelError,
		Title:   "Trade Failed",
		Message: fmt.Sprintf("Failed to execute arbitrage: %s", reason),
		Details: map[string]string{
			"Event": eventTicker,
			"Error": reason,
		},
	})
}

// CircuitBreakerTripped notifies that trading halted.
func (m *Manager) CircuitBreakerTripped(ctx context.Context, reason string, dailyLossCents, exposureCents int64) error {
	return m.Send(ctx, Alert{
		Level:   LevelCritical,
		Title:   "Circuit Breaker Tripped",
		Message: fmt.Sprintf("Trading halted: %s", reason),
		Details: map[string]string{
			"Reason":     reason,
			"Daily Loss": dollars64(dailyLossCents),
			"Exposure":   dollars64(exposureCents),
		},
	})
}

// ConnectionIssue notifies stream or REST connectivity problems.
func (m *Manager) ConnectionIssue(ctx context.Context, component, reason string) error {
	return m.Send(ctx, Alert{
		Level:   LevelWarning,
		Title:   "Connection Issue",
		Message: fmt.Sprintf("%s connection problem", component),
		Details: map[string]string{
			"Component": component,
			"Error":     reason,
		},
	})
}

// LargeLoss notifies a significant realized loss on one market.
func (m *Manager) LargeLoss(ctx context.Context, market string, lossCents int64) error {
	return m.Send(ctx, Alert{
		Level:   LevelError,
		Title:   "Large Loss Detected",
		Message: fmt.Sprintf("Significant loss on %s", market),
		Details: map[string]string{
			"Loss":   dollars64(lossCents),
			"Market": market,
		},
	})
}

func dollars(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func dollars64(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
