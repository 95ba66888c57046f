package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOrderPriceNormalizedBySide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   string
		wantPrice int
	}{
		{
			name:      "yes-side-takes-yes-price",
			payload:   `{"order_id":"o1","ticker":"KXBTC-A","side":"yes","action":"buy","type":"limit","status":"executed","yes_price":40,"no_price":60,"count":10,"remaining_count":0}`,
			wantPrice: 40,
		},
		{
			name:      "no-side-takes-no-price",
			payload:   `{"order_id":"o2","ticker":"KXBTC-A","side":"no","action":"buy","type":"limit","status":"resting","yes_price":40,"no_price":60,"count":10,"remaining_count":10}`,
			wantPrice: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Order
			if err := json.Unmarshal([]byte(tt.payload), &o); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if o.Price != tt.wantPrice {
				t.Errorf("price = %d, want %d", o.Price, tt.wantPrice)
			}
		})
	}
}

func TestOrderFilledCount(t *testing.T) {
	t.Parallel()

	o := Order{Count: 10, RemainingCount: 3}
	if got := o.FilledCount(); got != 7 {
		t.Errorf("filled = %d, want 7", got)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status OrderStatus
		want   bool
	}{
		{OrderStatusExecuted, true},
		{OrderStatusCanceled, true},
		{OrderStatusResting, false},
		{OrderStatusPending, false},
		{OrderStatusPartial, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestPositionSideAndContracts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		position      int
		wantSide      Side
		wantContracts int
	}{
		{"long-yes", 25, SideYes, 25},
		{"long-no", -40, SideNo, 40},
		{"flat", 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Position{Ticker: "KXBTC-A", Position: tt.position}
			if got := p.Side(); got != tt.wantSide {
				t.Errorf("side = %q, want %q", got, tt.wantSide)
			}
			if got := p.Contracts(); got != tt.wantContracts {
				t.Errorf("contracts = %d, want %d", got, tt.wantContracts)
			}
		})
	}
}

func TestFillPriceAndTotal(t *testing.T) {
	t.Parallel()

	payload := `{"trade_id":"f1","order_id":"o1","ticker":"KXBTC-A","side":"no","action":"sell","yes_price":42,"no_price":58,"count":5,"created_time":"2026-03-01T15:04:05Z","is_taker":true}`

	var f Fill
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if f.Price != 58 {
		t.Errorf("price = %d, want 58", f.Price)
	}
	if got := f.TotalCents(); got != 290 {
		t.Errorf("total = %d, want 290", got)
	}
	if !f.IsTaker {
		t.Error("is_taker lost")
	}
}

func TestErrorTaxonomyClassifiers(t *testing.T) {
	t.Parallel()

	auth := &AuthenticationError{StatusCode: 401, Message: "bad signature"}
	rate := &RateLimitError{Message: "slow down"}
	funds := &InsufficientFundsError{Message: "balance too low"}
	order := &OrderError{Code: "invalid", Message: "market closed"}

	if !IsAuthError(auth) || IsAuthError(rate) {
		t.Error("IsAuthError misclassified")
	}
	if !IsRetryable(rate) || IsRetryable(auth) || IsRetryable(order) {
		t.Error("IsRetryable misclassified")
	}
	if !IsInsufficientFunds(funds) || IsInsufficientFunds(order) {
		t.Error("IsInsufficientFunds misclassified")
	}

	wrapped := errors.Join(errors.New("outer"), auth)
	if !IsAuthError(wrapped) {
		t.Error("IsAuthError should see through wrapping")
	}
}
