package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

const errScanTrade = "failed to scan trade: %w"

// PostgresTradeRepository implements TradeRepository for PostgreSQL
type PostgresTradeRepository struct {
	db *database.DB
}

// NewPostgresTradeRepository creates a new trade repository
func NewPostgresTradeRepository(db *database.DB) TradeRepository {
	return &PostgresTradeRepository{db: db}
}

// InsertBatch inserts validated trades in one transaction, skipping
// duplicates by external id. Returns the number of rows inserted.
func (r *PostgresTradeRepository) InsertBatch(ctx context.Context, trades []models.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO trades (external_id, market_id, wallet, ts, side, action, price, size)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (external_id) DO NOTHING
		`
		for _, tr := range trades {
			tag, err := tx.Exec(ctx, query,
				tr.ExternalID, tr.MarketID, tr.Wallet, tr.Timestamp,
				tr.Side, tr.Action, tr.Price, tr.Size,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", tr.ExternalID, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// GetByMarket retrieves a market's full trade log ordered by timestamp
func (r *PostgresTradeRepository) GetByMarket(ctx context.Context, marketID string) ([]models.Trade, error) {
	query := `
		SELECT id, external_id, market_id, wallet, ts, side, action, price, size
		FROM trades
		WHERE market_id = $1
		ORDER BY ts ASC, id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var tr models.Trade
		err := rows.Scan(
			&tr.ID, &tr.ExternalID, &tr.MarketID, &tr.Wallet, &tr.Timestamp,
			&tr.Side, &tr.Action, &tr.Price, &tr.Size,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanTrade, err)
		}
		trades = append(trades, tr)
	}

	return trades, rows.Err()
}

// FirstTradeTime returns the earliest trade timestamp at or before the cutoff
func (r *PostgresTradeRepository) FirstTradeTime(ctx context.Context, marketID string, cutoff time.Time) (time.Time, bool, error) {
	query := `
		SELECT ts
		FROM trades
		WHERE market_id = $1 AND ts <= $2
		ORDER BY ts ASC
		LIMIT 1
	`

	var ts time.Time
	err := r.db.GetPool().QueryRow(ctx, query, marketID, cutoff).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query first trade: %w", err)
	}

	return ts, true, nil
}

// TradeTimeRange returns the first and last trade timestamps for a market
func (r *PostgresTradeRepository) TradeTimeRange(ctx context.Context, marketID string) (time.Time, time.Time, bool, error) {
	query := `
		SELECT MIN(ts), MAX(ts)
		FROM trades
		WHERE market_id = $1
	`

	var first, last *time.Time
	err := r.db.GetPool().QueryRow(ctx, query, marketID).Scan(&first, &last)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("failed to query trade time range: %w", err)
	}
	if first == nil || last == nil {
		return time.Time{}, time.Time{}, false, nil
	}

	return *first, *last, true, nil
}
