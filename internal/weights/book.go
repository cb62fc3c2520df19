package weights

import "github.com/yourusername/precognition/internal/models"

// Resolved is the weight pair handed to the snapshot aggregator after
// fallback resolution.
type Resolved struct {
	Weight      float64
	Uncertainty float64
}

// ColdStart is the pair used for wallets with no weight row at any
// fallback level: neutral trust, maximal uncertainty.
var ColdStart = Resolved{Weight: 1.0, Uncertainty: 1.0}

// FallbackKeys lists the lookup order for one wallet in one market
// context: exact bucket, category-only, horizon-only, then global.
func FallbackKeys(wallet, category, horizon string) [4]models.MetricKey {
	return [4]models.MetricKey{
		{Wallet: wallet, Category: category, Horizon: horizon},
		{Wallet: wallet, Category: category, Horizon: models.All},
		{Wallet: wallet, Category: models.All, Horizon: horizon},
		{Wallet: wallet, Category: models.All, Horizon: models.All},
	}
}

// Source is anything that can answer an exact weight-key lookup. The
// in-memory Book implements it; so does the cached repository.
type Source interface {
	WeightFor(key models.MetricKey) (models.WalletWeight, bool)
}

// Book is an in-memory weight table, used by the aggregator and by
// backtest replays that load the whole table once.
type Book map[models.MetricKey]models.WalletWeight

// NewBook indexes a weight slice by key.
func NewBook(rows []models.WalletWeight) Book {
	b := make(Book, len(rows))
	for _, r := range rows {
		b[r.MetricKey] = r
	}
	return b
}

// WeightFor implements Source.
func (b Book) WeightFor(key models.MetricKey) (models.WalletWeight, bool) {
	w, ok := b[key]
	return w, ok
}

// Resolve walks the fallback chain for one wallet and returns the first
// hit, or the cold-start pair when every level misses.
func Resolve(src Source, wallet, category, horizon string) Resolved {
	for _, key := range FallbackKeys(wallet, category, horizon) {
		if w, ok := src.WeightFor(key); ok {
			return Resolved{Weight: w.Weight, Uncertainty: w.Uncertainty}
		}
	}
	return ColdStart
}
