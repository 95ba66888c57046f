package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestConsoleStorage_StoreOpportunity(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := NewConsoleStorage(logger)

	opp := arbitrage.CreateTestOpportunity("KXELECTION")

	var err error
	output := captureStdout(t, func() {
		err = store.StoreOpportunity(context.Background(), opp)
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, want := range []string{
		"ARBITRAGE OPPORTUNITY DETECTED",
		"KXELECTION",
		"multi_outcome",
		"$0.04", // net profit
		"KXELECTION-A",
	} {
		if !bytes.Contains([]byte(output), []byte(want)) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestConsoleStorage_StoreResult(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := NewConsoleStorage(logger)

	tests := []struct {
		name   string
		result *execution.Result
		want   string
	}{
		{
			name: "complete",
			result: &execution.Result{
				OpportunityID: "opp-1234567890",
				GroupID:       "grp-1234567890",
				Status:        execution.GroupStatusComplete,
				Success:       true,
				ProfitCents:   400,
				FilledLegs:    3,
				TotalLegs:     3,
				ExecutedAt:    time.Now(),
			},
			want: "TRADE EXECUTED",
		},
		{
			name: "partial",
			result: &execution.Result{
				OpportunityID: "opp-1234567890",
				Status:        execution.GroupStatusPartial,
				ProfitCents:   -95,
				FilledLegs:    1,
				TotalLegs:     3,
				Error:         "leg risk: 1 of 3 legs filled",
				ExecutedAt:    time.Now(),
			},
			want: "TRADE PARTIAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			output := captureStdout(t, func() {
				err = store.StoreResult(context.Background(), tt.result)
			})

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !bytes.Contains([]byte(output), []byte(tt.want)) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.want, output)
			}
		})
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	store := NewConsoleStorage(zaptest.NewLogger(t))
	if err := store.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStorage{db: db, logger: zaptest.NewLogger(t)}
	opp := arbitrage.CreateTestOpportunity("KXELECTION")

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WithArgs(
			opp.ID,
			string(opp.Type),
			opp.EventTicker,
			sqlmock.AnyArg(), // legs JSONB
			opp.DetectedAt,
			opp.TotalCostCents,
			opp.GuaranteedReturnCents,
			opp.GrossProfitCents,
			opp.EstimatedFeesCents,
			opp.NetProfitCents,
			opp.MaxQuantity,
			opp.Confidence,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.StoreOpportunity(context.Background(), opp)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStorage{db: db, logger: zaptest.NewLogger(t)}
	opp := arbitrage.CreateTestOpportunity("KXELECTION")

	mock.ExpectExec("INSERT INTO arbitrage_opportunities").
		WillReturnError(io.ErrUnexpectedEOF)

	err = store.StoreOpportunity(context.Background(), opp)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPostgresStorage_StoreResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := &PostgresStorage{db: db, logger: zaptest.NewLogger(t)}
	result := &execution.Result{
		OpportunityID: "opp-1",
		GroupID:       "grp-1",
		Status:        execution.GroupStatusComplete,
		Success:       true,
		ProfitCents:   200,
		FilledLegs:    2,
		TotalLegs:     2,
		ExecutedAt:    time.Now(),
	}

	mock.ExpectExec("INSERT INTO execution_results").
		WithArgs(
			result.OpportunityID,
			result.GroupID,
			string(result.Status),
			result.Success,
			result.ProfitCents,
			result.FilledLegs,
			result.TotalLegs,
			result.Error,
			result.ExecutedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.StoreResult(context.Background(), result)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	mock.ExpectClose()

	store := &PostgresStorage{db: db, logger: zaptest.NewLogger(t)}
	if err := store.Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
