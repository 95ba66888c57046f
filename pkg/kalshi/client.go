package kalshi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/kalshi-arb/pkg/types"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultReadLimit  = 20
	defaultWriteLimit = 10
	maxRetries        = 3
	maxBackoff        = 60 * time.Second
)

// Client is the authenticated REST client for the Kalshi trade API.
// Every request passes through the rate limiter and is signed fresh on
// each attempt, so retried requests never reuse a stale timestamp.
type Client struct {
	baseURL string
	signer  *Signer
	limiter *RateLimiter
	http    *http.Client
	logger  *zap.Logger
}

// ClientConfig holds REST client configuration.
type ClientConfig struct {
	BaseURL        string
	Signer         *Signer
	ReadRateLimit  int
	WriteRateLimit int
	Timeout        time.Duration
	Logger         *zap.Logger
	HTTPClient     *http.Client // optional, used by tests
}

// NewClient creates a new REST client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.ReadRateLimit <= 0 {
		cfg.ReadRateLimit = defaultReadLimit
	}
	if cfg.WriteRateLimit <= 0 {
		cfg.WriteRateLimit = defaultWriteLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		signer:  cfg.Signer,
		limiter: NewRateLimiter(cfg.ReadRateLimit, cfg.WriteRateLimit),
		http:    httpClient,
		logger:  cfg.Logger,
	}, nil
}

// venueErrorBody is the error envelope Kalshi returns on non-2xx responses.
type venueErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do executes one API call with rate limiting, signing and retries.
// Rate-limit responses and network failures are retried up to maxRetries
// attempts with exponential backoff capped at maxBackoff; every other
// venue error returns immediately.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("build URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var done bool
		done, lastErr = c.attempt(ctx, method, u, payload, out)
		if done {
			RequestDurationSeconds.WithLabelValues(bucketName(method)).Observe(time.Since(start).Seconds())
			return lastErr
		}

		if attempt == maxRetries-1 {
			break
		}
		RequestRetriesTotal.Inc()
		if err := sleepCtx(ctx, retryDelay(attempt, lastErr)); err != nil {
			return err
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// attempt performs a single signed request. The bool result is true when
// the outcome is final (success or a non-retryable error) and false when
// the caller should back off and retry.
func (c *Client) attempt(ctx context.Context, method string, u *url.URL, payload []byte, out any) (bool, error) {
	if err := c.limiter.Acquire(ctx, method); err != nil {
		return true, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return true, fmt.Errorf("create request: %w", err)
	}

	headers, err := c.signer.Headers(method, u.Path)
	if err != nil {
		return true, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		c.logger.Warn("request-failed",
			zap.String("method", method),
			zap.String("path", u.Path),
			zap.Error(err))
		RequestErrorsTotal.WithLabelValues("network").Inc()
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		RequestErrorsTotal.WithLabelValues("network").Inc()
		return false, fmt.Errorf("read response: %w", err)
	}

	RequestsTotal.WithLabelValues(bucketName(method), strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return true, nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return true, fmt.Errorf("parse response: %w", err)
		}
		return true, nil
	}

	venueErr := c.classifyError(resp, u.Path, raw)
	if types.IsRetryable(venueErr) {
		c.logger.Warn("rate-limited",
			zap.String("method", method),
			zap.String("path", u.Path))
		RequestErrorsTotal.WithLabelValues("rate_limit").Inc()
		return false, venueErr
	}
	RequestErrorsTotal.WithLabelValues("venue").Inc()
	return true, venueErr
}

// classifyError maps a non-2xx response onto the venue error taxonomy.
func (c *Client) classifyError(resp *http.Response, path string, raw []byte) error {
	msg := extractErrorMessage(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &types.AuthenticationError{StatusCode: resp.StatusCode, Message: msg}
	case http.StatusTooManyRequests:
		return &types.RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Message: msg}
	case http.StatusBadRequest:
		if strings.Contains(strings.ToLower(msg), "insufficient") {
			return &types.InsufficientFundsError{Message: msg}
		}
		var body venueErrorBody
		_ = json.Unmarshal(raw, &body)
		return &types.OrderError{Code: body.Error.Code, Message: msg}
	case http.StatusNotFound:
		return &types.NotFoundError{Path: path, Message: msg}
	default:
		return &types.VenueError{StatusCode: resp.StatusCode, Message: msg}
	}
}

// extractErrorMessage pulls the message out of the venue's error envelope,
// falling back to the raw body when the envelope is absent or malformed.
func extractErrorMessage(raw []byte) string {
	var body venueErrorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// retryDelay picks the backoff before the next attempt. A venue-supplied
// Retry-After wins; otherwise exponential starting at one second.
func retryDelay(attempt int, err error) time.Duration {
	var rl *types.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
