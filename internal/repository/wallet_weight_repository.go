package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

// PostgresWalletWeightRepository implements WalletWeightRepository for PostgreSQL
type PostgresWalletWeightRepository struct {
	db *database.DB
}

// NewPostgresWalletWeightRepository creates a new wallet weight repository
func NewPostgresWalletWeightRepository(db *database.DB) WalletWeightRepository {
	return &PostgresWalletWeightRepository{db: db}
}

// ReplaceAll rewrites the wallet_weights table in one transaction
func (r *PostgresWalletWeightRepository) ReplaceAll(ctx context.Context, rows []models.WalletWeight) (int, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM wallet_weights"); err != nil {
			return fmt.Errorf("failed to clear wallet weights: %w", err)
		}

		query := `
			INSERT INTO wallet_weights (wallet, category, horizon_bucket, weight, uncertainty, support, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		for _, w := range rows {
			_, err := tx.Exec(ctx, query,
				w.Wallet, w.Category, w.Horizon, w.Weight, w.Uncertainty, w.Support, w.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert wallet weight: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// All retrieves the full wallet weights table
func (r *PostgresWalletWeightRepository) All(ctx context.Context) ([]models.WalletWeight, error) {
	query := `
		SELECT wallet, category, horizon_bucket, weight, uncertainty, support, updated_at
		FROM wallet_weights
		ORDER BY wallet, category, horizon_bucket
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet weights: %w", err)
	}
	defer rows.Close()

	var weights []models.WalletWeight
	for rows.Next() {
		var w models.WalletWeight
		err := rows.Scan(&w.Wallet, &w.Category, &w.Horizon, &w.Weight, &w.Uncertainty, &w.Support, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet weight: %w", err)
		}
		weights = append(weights, w)
	}

	return weights, rows.Err()
}
