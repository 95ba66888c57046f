package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/internal/execution"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores an arbitrage opportunity. Legs go into a
// JSONB column since their count varies by strategy.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			id, type, event_ticker, legs, detected_at,
			total_cost_cents, guaranteed_return_cents, gross_profit_cents,
			estimated_fees_cents, net_profit_cents, max_quantity, confidence
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.ID,
		string(opp.Type),
		opp.EventTicker,
		legs,
		opp.DetectedAt,
		opp.TotalCostCents,
		opp.GuaranteedReturnCents,
		opp.GrossProfitCents,
		opp.EstimatedFeesCents,
		opp.NetProfitCents,
		opp.MaxQuantity,
		opp.Confidence,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("event-ticker", opp.EventTicker),
		zap.Int("leg-count", len(opp.Legs)))

	return nil
}

// StoreResult stores one execution outcome.
func (p *PostgresStorage) StoreResult(ctx context.Context, result *execution.Result) error {
	query := `
		INSERT INTO execution_results (
			opportunity_id, order_group_id, status, success,
			profit_cents, filled_legs, total_legs, error, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		result.OpportunityID,
		result.GroupID,
		string(result.Status),
		result.Success,
		result.ProfitCents,
		result.FilledLegs,
		result.TotalLegs,
		result.Error,
		result.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	p.logger.Debug("result-stored",
		zap.String("opportunity-id", result.OpportunityID),
		zap.String("status", string(result.Status)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
