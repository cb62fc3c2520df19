package repository

import (
	"context"
	"time"

	"github.com/yourusername/precognition/internal/models"
)

// MarketRepository defines the interface for market data access
type MarketRepository interface {
	Upsert(ctx context.Context, market *models.Market) error
	GetByID(ctx context.Context, id string) (*models.Market, error)
	SaveOutcome(ctx context.Context, outcome *models.Outcome) error
	ResolvedMarkets(ctx context.Context) ([]models.ResolvedMarket, error)
	// MarketIDsWithTrades lists markets that have at least one trade,
	// optionally restricted to unresolved markets.
	MarketIDsWithTrades(ctx context.Context, includeResolved bool) ([]string, error)
}

// TradeRepository defines the interface for trade data access
type TradeRepository interface {
	InsertBatch(ctx context.Context, trades []models.Trade) (int, error)
	// GetByMarket returns a market's full trade log ordered by timestamp.
	GetByMarket(ctx context.Context, marketID string) ([]models.Trade, error)
	// FirstTradeTime returns the earliest trade timestamp at or before
	// the cutoff, or ok=false when no such trade exists.
	FirstTradeTime(ctx context.Context, marketID string, cutoff time.Time) (time.Time, bool, error)
	// TradeTimeRange returns the first and last trade timestamps for a
	// market, or ok=false for an untraded market.
	TradeTimeRange(ctx context.Context, marketID string) (first, last time.Time, ok bool, err error)
}

// WalletMetricRepository defines the interface for wallet metric data access
type WalletMetricRepository interface {
	// ReplaceAll rewrites the whole table in one transaction.
	ReplaceAll(ctx context.Context, rows []models.WalletMetric) (int, error)
	All(ctx context.Context) ([]models.WalletMetric, error)
	// GlobalProfiles returns the (ALL, ALL) metric row per wallet for
	// the given wallets.
	GlobalProfiles(ctx context.Context, wallets []string) (map[string]models.WalletMetric, error)
}

// WalletWeightRepository defines the interface for wallet weight data access
type WalletWeightRepository interface {
	// ReplaceAll rewrites the whole table in one transaction.
	ReplaceAll(ctx context.Context, rows []models.WalletWeight) (int, error)
	All(ctx context.Context) ([]models.WalletWeight, error)
}

// SnapshotRepository defines the interface for market snapshot persistence
type SnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *models.MarketSnapshot) error
	History(ctx context.Context, marketID string, limit int) ([]models.MarketSnapshot, error)
	// LatestScreenerRows returns each market's most recent snapshot
	// joined with market metadata, ordered by absolute divergence.
	LatestScreenerRows(ctx context.Context, limit int, minConfidence float64) ([]models.ScreenerRow, error)
}

// BacktestRepository defines the interface for backtest persistence
type BacktestRepository interface {
	// ReplaceRun deletes any prior rows for the run id and inserts the
	// new records in one transaction.
	ReplaceRun(ctx context.Context, runID string, records []models.BacktestRecord) error
	SaveReport(ctx context.Context, report *models.BacktestReport) error
	GetReport(ctx context.Context, runID string) (*models.BacktestReport, error)
}
