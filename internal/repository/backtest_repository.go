package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

// PostgresBacktestRepository implements BacktestRepository for PostgreSQL
type PostgresBacktestRepository struct {
	db *database.DB
}

// NewPostgresBacktestRepository creates a new backtest repository
func NewPostgresBacktestRepository(db *database.DB) BacktestRepository {
	return &PostgresBacktestRepository{db: db}
}

// ReplaceRun deletes any prior rows for the run id and inserts the new
// records in one transaction, keeping re-runs under the same id
// idempotent
func (r *PostgresBacktestRepository) ReplaceRun(ctx context.Context, runID string, records []models.BacktestRecord) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM market_backtests WHERE run_id = $1", runID); err != nil {
			return fmt.Errorf("failed to clear backtest run %s: %w", runID, err)
		}

		query := `
			INSERT INTO market_backtests (
				run_id, market_id, cutoff_time, market_prob, aggregate_prob, outcome, confidence, divergence
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		for _, rec := range records {
			_, err := tx.Exec(ctx, query,
				rec.RunID, rec.MarketID, rec.CutoffTime, rec.MarketProb,
				rec.AggregateProb, rec.Outcome, rec.Confidence, rec.Divergence,
			)
			if err != nil {
				return fmt.Errorf("failed to insert backtest record: %w", err)
			}
		}
		return nil
	})
}

// SaveReport upserts the aggregate report for a run id
func (r *PostgresBacktestRepository) SaveReport(ctx context.Context, report *models.BacktestReport) error {
	summary, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest report: %w", err)
	}

	query := `
		INSERT INTO backtest_reports (run_id, generated_at, summary)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE SET
			generated_at = EXCLUDED.generated_at,
			summary = EXCLUDED.summary
	`

	if _, err := r.db.GetPool().Exec(ctx, query, report.RunID, time.Now().UTC(), summary); err != nil {
		return fmt.Errorf("failed to save backtest report: %w", err)
	}

	return nil
}

// GetReport retrieves the aggregate report for a run id
func (r *PostgresBacktestRepository) GetReport(ctx context.Context, runID string) (*models.BacktestReport, error) {
	var summary []byte
	err := r.db.GetPool().QueryRow(ctx,
		"SELECT summary FROM backtest_reports WHERE run_id = $1", runID,
	).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest report: %w", err)
	}

	report := &models.BacktestReport{}
	if err := json.Unmarshal(summary, report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest report: %w", err)
	}

	return report, nil
}
