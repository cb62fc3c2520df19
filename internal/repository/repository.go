package repository

import (
	"fmt"
	"time"

	"github.com/yourusername/precognition/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Market       MarketRepository
	Trade        TradeRepository
	WalletMetric WalletMetricRepository
	WalletWeight WalletWeightRepository
	Snapshot     SnapshotRepository
	Backtest     BacktestRepository
}

// NewRepositories creates and returns all repository implementations.
// The weight repository is wrapped in a read-through cache because the
// snapshot path loads the full weight table per batch.
func NewRepositories(db *database.DB, weightCacheTTL time.Duration) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Market:       NewPostgresMarketRepository(db),
		Trade:        NewPostgresTradeRepository(db),
		WalletMetric: NewPostgresWalletMetricRepository(db),
		WalletWeight: NewCachedWalletWeightRepository(NewPostgresWalletWeightRepository(db), weightCacheTTL),
		Snapshot:     NewPostgresSnapshotRepository(db),
		Backtest:     NewPostgresBacktestRepository(db),
	}, nil
}
