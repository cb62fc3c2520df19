package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

const errScanWalletMetric = "failed to scan wallet metric: %w"

const walletMetricColumns = `
	wallet, category, horizon_bucket, sample_markets, sample_trades,
	brier, log_loss, roi, calibration_error, avg_trade_size,
	churn, persistence, specialization, timing_edge, updated_at
`

// PostgresWalletMetricRepository implements WalletMetricRepository for PostgreSQL
type PostgresWalletMetricRepository struct {
	db *database.DB
}

// NewPostgresWalletMetricRepository creates a new wallet metric repository
func NewPostgresWalletMetricRepository(db *database.DB) WalletMetricRepository {
	return &PostgresWalletMetricRepository{db: db}
}

// ReplaceAll rewrites the wallet_metrics table in one transaction so
// readers never observe a partial recompute
func (r *PostgresWalletMetricRepository) ReplaceAll(ctx context.Context, rows []models.WalletMetric) (int, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM wallet_metrics"); err != nil {
			return fmt.Errorf("failed to clear wallet metrics: %w", err)
		}

		query := `
			INSERT INTO wallet_metrics (` + walletMetricColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		for _, m := range rows {
			_, err := tx.Exec(ctx, query,
				m.Wallet, m.Category, m.Horizon, m.SampleMarkets, m.SampleTrades,
				m.Brier, m.LogLoss, m.ROI, m.CalibrationError, m.AvgTradeSize,
				m.Churn, m.Persistence, m.Specialization, m.TimingEdge, m.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert wallet metric: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// All retrieves the full wallet metrics table
func (r *PostgresWalletMetricRepository) All(ctx context.Context) ([]models.WalletMetric, error) {
	query := `SELECT ` + walletMetricColumns + ` FROM wallet_metrics ORDER BY wallet, category, horizon_bucket`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.WalletMetric
	for rows.Next() {
		m, err := scanWalletMetric(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// GlobalProfiles retrieves the (ALL, ALL) metric row per wallet
func (r *PostgresWalletMetricRepository) GlobalProfiles(ctx context.Context, wallets []string) (map[string]models.WalletMetric, error) {
	if len(wallets) == 0 {
		return map[string]models.WalletMetric{}, nil
	}

	query := `
		SELECT ` + walletMetricColumns + `
		FROM wallet_metrics
		WHERE category = 'ALL' AND horizon_bucket = 'ALL' AND wallet = ANY($1)
	`

	rows, err := r.db.GetPool().Query(ctx, query, wallets)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]models.WalletMetric, len(wallets))
	for rows.Next() {
		m, err := scanWalletMetric(rows)
		if err != nil {
			return nil, err
		}
		profiles[m.Wallet] = m
	}

	return profiles, rows.Err()
}

func scanWalletMetric(rows pgx.Rows) (models.WalletMetric, error) {
	var m models.WalletMetric
	err := rows.Scan(
		&m.Wallet, &m.Category, &m.Horizon, &m.SampleMarkets, &m.SampleTrades,
		&m.Brier, &m.LogLoss, &m.ROI, &m.CalibrationError, &m.AvgTradeSize,
		&m.Churn, &m.Persistence, &m.Specialization, &m.TimingEdge, &m.UpdatedAt,
	)
	if err != nil {
		return models.WalletMetric{}, fmt.Errorf(errScanWalletMetric, err)
	}
	return m, nil
}
