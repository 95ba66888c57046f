package types

import (
	"errors"
	"fmt"
	"time"
)

// Venue error taxonomy. The transport maps HTTP status codes onto these
// types; callers branch with errors.As.
//
//	401/403 -> AuthenticationError  never retried
//	429     -> RateLimitError       retried with Retry-After or backoff
//	400     -> OrderError, or InsufficientFundsError when the venue
//	           message mentions insufficient funds
//	404     -> NotFoundError
//	other   -> VenueError           never retried

// AuthenticationError indicates rejected credentials or signature.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (%d): %s", e.StatusCode, e.Message)
}

// RateLimitError indicates a 429. RetryAfter is zero when the venue did
// not send a Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s: %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// OrderError indicates the venue rejected an order request.
type OrderError struct {
	Code    string
	Message string
	Ticker  string
}

func (e *OrderError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("order rejected on %s: %s (%s)", e.Ticker, e.Message, e.Code)
	}
	return fmt.Sprintf("order rejected: %s (%s)", e.Message, e.Code)
}

// InsufficientFundsError is the balance-exhausted special case of a
// rejected order. It feeds the circuit breaker.
type InsufficientFundsError struct {
	Message string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %s", e.Message)
}

// NotFoundError indicates a 404 for the given path.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %s", e.Path, e.Message)
}

// VenueError is any other non-2xx venue response.
type VenueError struct {
	StatusCode int
	Message    string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("venue error (%d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the transport may retry the request that
// produced err. Only rate-limit errors qualify at this layer; network
// errors are classified by the transport itself.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsInsufficientFunds reports whether err is the funds-exhausted order
// rejection.
func IsInsufficientFunds(err error) bool {
	var ife *InsufficientFundsError
	return errors.As(err, &ife)
}
