package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/precognition/internal/models"
)

type countingWeightRepo struct {
	rows     []models.WalletWeight
	allCalls int
}

func (r *countingWeightRepo) ReplaceAll(_ context.Context, rows []models.WalletWeight) (int, error) {
	r.rows = rows
	return len(rows), nil
}

func (r *countingWeightRepo) All(_ context.Context) ([]models.WalletWeight, error) {
	r.allCalls++
	return r.rows, nil
}

func weightRow(wallet string, weight float64) models.WalletWeight {
	return models.WalletWeight{
		MetricKey: models.MetricKey{Wallet: wallet, Category: models.All, Horizon: models.All},
		Weight:    weight,
		Support:   5,
	}
}

func TestCachedWeightRepositoryReadThrough(t *testing.T) {
	inner := &countingWeightRepo{rows: []models.WalletWeight{weightRow("a", 1.5)}}
	cached := NewCachedWalletWeightRepository(inner, time.Minute)

	first, err := cached.All(context.Background())
	require.NoError(t, err)
	second, err := cached.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.allCalls)
}

func TestCachedWeightRepositoryInvalidatedOnReplace(t *testing.T) {
	inner := &countingWeightRepo{rows: []models.WalletWeight{weightRow("a", 1.5)}}
	cached := NewCachedWalletWeightRepository(inner, time.Minute)

	_, err := cached.All(context.Background())
	require.NoError(t, err)

	n, err := cached.ReplaceAll(context.Background(), []models.WalletWeight{
		weightRow("a", 2.5),
		weightRow("b", 0.8),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := cached.All(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2.5, rows[0].Weight)
	assert.Equal(t, 2, inner.allCalls)
}
