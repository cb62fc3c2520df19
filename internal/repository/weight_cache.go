package repository

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/yourusername/precognition/internal/models"
)

const weightTableCacheKey = "wallet_weights:all"

// CachedWalletWeightRepository is a read-through cache over a weight
// repository. The snapshot path loads the whole weight table once per
// market batch; weights only change on an explicit recompute, so the
// cache is flushed on ReplaceAll and otherwise expires on its TTL.
type CachedWalletWeightRepository struct {
	inner WalletWeightRepository
	cache *gocache.Cache
}

// NewCachedWalletWeightRepository wraps a weight repository with a TTL cache
func NewCachedWalletWeightRepository(inner WalletWeightRepository, ttl time.Duration) *CachedWalletWeightRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedWalletWeightRepository{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ReplaceAll delegates to the inner repository and invalidates the cache
func (r *CachedWalletWeightRepository) ReplaceAll(ctx context.Context, rows []models.WalletWeight) (int, error) {
	n, err := r.inner.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, err
	}
	r.cache.Flush()
	return n, nil
}

// All returns the cached weight table, loading it on a miss
func (r *CachedWalletWeightRepository) All(ctx context.Context) ([]models.WalletWeight, error) {
	if cached, ok := r.cache.Get(weightTableCacheKey); ok {
		return cached.([]models.WalletWeight), nil
	}

	rows, err := r.inner.All(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(weightTableCacheKey, rows)
	return rows, nil
}
