package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

const errScanMarket = "failed to scan market: %w"

// PostgresMarketRepository implements MarketRepository for PostgreSQL
type PostgresMarketRepository struct {
	db *database.DB
}

// NewPostgresMarketRepository creates a new market repository
func NewPostgresMarketRepository(db *database.DB) MarketRepository {
	return &PostgresMarketRepository{db: db}
}

// Upsert inserts or updates a market by its external id
func (r *PostgresMarketRepository) Upsert(ctx context.Context, market *models.Market) error {
	query := `
		INSERT INTO markets (id, question, category, end_time, liquidity, resolution_source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			question = EXCLUDED.question,
			category = EXCLUDED.category,
			end_time = EXCLUDED.end_time,
			liquidity = EXCLUDED.liquidity,
			resolution_source = EXCLUDED.resolution_source
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		market.ID, market.Question, market.Category, market.EndTime,
		market.Liquidity, market.ResolutionSource,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert market: %w", err)
	}

	return nil
}

// GetByID retrieves a market by ID
func (r *PostgresMarketRepository) GetByID(ctx context.Context, id string) (*models.Market, error) {
	query := `
		SELECT id, question, category, end_time, liquidity, resolution_source, created_at
		FROM markets WHERE id = $1
	`

	market := &models.Market{}
	err := r.db.GetPool().QueryRow(ctx, query, id).Scan(
		&market.ID, &market.Question, &market.Category, &market.EndTime,
		&market.Liquidity, &market.ResolutionSource, &market.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrMarketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}

	return market, nil
}

// SaveOutcome records a market's resolution
func (r *PostgresMarketRepository) SaveOutcome(ctx context.Context, outcome *models.Outcome) error {
	query := `
		INSERT INTO outcomes (market_id, resolved_outcome, resolution_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (market_id) DO UPDATE SET
			resolved_outcome = EXCLUDED.resolved_outcome,
			resolution_time = EXCLUDED.resolution_time
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		outcome.MarketID, outcome.ResolvedOutcome, outcome.ResolutionTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}

	return nil
}

// ResolvedMarkets retrieves all markets joined with their outcomes
func (r *PostgresMarketRepository) ResolvedMarkets(ctx context.Context) ([]models.ResolvedMarket, error) {
	query := `
		SELECT m.id, m.question, m.category, m.end_time, m.liquidity,
		       m.resolution_source, m.created_at,
		       o.resolved_outcome, o.resolution_time
		FROM markets m
		JOIN outcomes o ON o.market_id = m.id
		ORDER BY m.id
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved markets: %w", err)
	}
	defer rows.Close()

	var resolved []models.ResolvedMarket
	for rows.Next() {
		var rm models.ResolvedMarket
		err := rows.Scan(
			&rm.Market.ID, &rm.Market.Question, &rm.Market.Category, &rm.Market.EndTime,
			&rm.Market.Liquidity, &rm.Market.ResolutionSource, &rm.Market.CreatedAt,
			&rm.Outcome.ResolvedOutcome, &rm.Outcome.ResolutionTime,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanMarket, err)
		}
		rm.Outcome.MarketID = rm.Market.ID
		resolved = append(resolved, rm)
	}

	return resolved, rows.Err()
}

// MarketIDsWithTrades lists traded markets, optionally excluding
// resolved ones
func (r *PostgresMarketRepository) MarketIDsWithTrades(ctx context.Context, includeResolved bool) ([]string, error) {
	query := `
		SELECT DISTINCT m.id
		FROM markets m
		JOIN trades t ON t.market_id = m.id
		ORDER BY m.id
	`
	if !includeResolved {
		query = `
			SELECT DISTINCT m.id
			FROM markets m
			JOIN trades t ON t.market_id = m.id
			LEFT JOIN outcomes o ON o.market_id = m.id
			WHERE o.market_id IS NULL
			ORDER BY m.id
		`
	}

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query traded markets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf(errScanMarket, err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
