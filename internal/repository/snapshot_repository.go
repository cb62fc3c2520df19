package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/precognition/internal/database"
	"github.com/yourusername/precognition/internal/models"
)

const snapshotColumns = `
	market_id, snapshot_time, market_prob, aggregate_prob, divergence, confidence,
	disagreement, participation_quality, integrity_risk, active_wallets,
	top_drivers, cohort_summary, flip_conditions, explanation
`

// PostgresSnapshotRepository implements SnapshotRepository for PostgreSQL
type PostgresSnapshotRepository struct {
	db *database.DB
}

// NewPostgresSnapshotRepository creates a new snapshot repository
func NewPostgresSnapshotRepository(db *database.DB) SnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Upsert writes a snapshot, replacing any prior row at the same
// (market_id, snapshot_time). The aggregator is deterministic, so a
// replay overwrites with identical content.
func (r *PostgresSnapshotRepository) Upsert(ctx context.Context, snapshot *models.MarketSnapshot) error {
	drivers, err := json.Marshal(snapshot.TopDrivers)
	if err != nil {
		return fmt.Errorf("failed to marshal top drivers: %w", err)
	}
	cohorts, err := json.Marshal(snapshot.CohortSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal cohort summary: %w", err)
	}
	flips, err := json.Marshal(snapshot.FlipConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal flip conditions: %w", err)
	}
	explanation, err := json.Marshal(snapshot.Explanation)
	if err != nil {
		return fmt.Errorf("failed to marshal explanation: %w", err)
	}

	query := `
		INSERT INTO snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (market_id, snapshot_time) DO UPDATE SET
			market_prob = EXCLUDED.market_prob,
			aggregate_prob = EXCLUDED.aggregate_prob,
			divergence = EXCLUDED.divergence,
			confidence = EXCLUDED.confidence,
			disagreement = EXCLUDED.disagreement,
			participation_quality = EXCLUDED.participation_quality,
			integrity_risk = EXCLUDED.integrity_risk,
			active_wallets = EXCLUDED.active_wallets,
			top_drivers = EXCLUDED.top_drivers,
			cohort_summary = EXCLUDED.cohort_summary,
			flip_conditions = EXCLUDED.flip_conditions,
			explanation = EXCLUDED.explanation
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		snapshot.MarketID, snapshot.SnapshotTime, snapshot.MarketProb, snapshot.AggregateProb,
		snapshot.Divergence, snapshot.Confidence, snapshot.Disagreement,
		snapshot.ParticipationQuality, snapshot.IntegrityRisk, snapshot.ActiveWallets,
		drivers, cohorts, flips, explanation,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// History retrieves a market's snapshots newest first
func (r *PostgresSnapshotRepository) History(ctx context.Context, marketID string, limit int) ([]models.MarketSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE market_id = $1
		ORDER BY snapshot_time DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot history: %w", err)
	}
	defer rows.Close()

	var snapshots []models.MarketSnapshot
	for rows.Next() {
		var (
			snap                          models.MarketSnapshot
			drivers, cohorts, flips, expl []byte
		)
		err := rows.Scan(
			&snap.MarketID, &snap.SnapshotTime, &snap.MarketProb, &snap.AggregateProb,
			&snap.Divergence, &snap.Confidence, &snap.Disagreement,
			&snap.ParticipationQuality, &snap.IntegrityRisk, &snap.ActiveWallets,
			&drivers, &cohorts, &flips, &expl,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := unmarshalSnapshotPayloads(&snap, drivers, cohorts, flips, expl); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// LatestScreenerRows returns each market's most recent snapshot joined
// with market metadata, ordered by absolute divergence
func (r *PostgresSnapshotRepository) LatestScreenerRows(ctx context.Context, limit int, minConfidence float64) ([]models.ScreenerRow, error) {
	query := `
		WITH latest AS (
			SELECT market_id, MAX(snapshot_time) AS snapshot_time
			FROM snapshots
			GROUP BY market_id
		)
		SELECT
			s.market_id, s.snapshot_time, s.market_prob, s.aggregate_prob, s.divergence,
			s.confidence, s.disagreement, s.participation_quality, s.integrity_risk,
			s.active_wallets, s.top_drivers, s.cohort_summary, s.flip_conditions,
			s.explanation, m.question, m.category, m.end_time
		FROM snapshots s
		JOIN latest l ON s.market_id = l.market_id AND s.snapshot_time = l.snapshot_time
		JOIN markets m ON m.id = s.market_id
		WHERE s.confidence >= $1
		ORDER BY ABS(s.divergence) DESC
		LIMIT $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query screener rows: %w", err)
	}
	defer rows.Close()

	var screener []models.ScreenerRow
	for rows.Next() {
		var (
			row                           models.ScreenerRow
			drivers, cohorts, flips, expl []byte
		)
		err := rows.Scan(
			&row.MarketID, &row.SnapshotTime, &row.MarketProb, &row.AggregateProb,
			&row.Divergence, &row.Confidence, &row.Disagreement,
			&row.ParticipationQuality, &row.IntegrityRisk, &row.ActiveWallets,
			&drivers, &cohorts, &flips, &expl,
			&row.Question, &row.Category, &row.EndTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan screener row: %w", err)
		}
		if err := unmarshalSnapshotPayloads(&row.MarketSnapshot, drivers, cohorts, flips, expl); err != nil {
			return nil, err
		}
		screener = append(screener, row)
	}

	return screener, rows.Err()
}

func unmarshalSnapshotPayloads(snap *models.MarketSnapshot, drivers, cohorts, flips, expl []byte) error {
	if err := json.Unmarshal(drivers, &snap.TopDrivers); err != nil {
		return fmt.Errorf("failed to unmarshal top drivers: %w", err)
	}
	if err := json.Unmarshal(cohorts, &snap.CohortSummary); err != nil {
		return fmt.Errorf("failed to unmarshal cohort summary: %w", err)
	}
	if err := json.Unmarshal(flips, &snap.FlipConditions); err != nil {
		return fmt.Errorf("failed to unmarshal flip conditions: %w", err)
	}
	if err := json.Unmarshal(expl, &snap.Explanation); err != nil {
		return fmt.Errorf("failed to unmarshal explanation: %w", err)
	}
	return nil
}
