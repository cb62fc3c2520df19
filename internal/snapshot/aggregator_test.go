package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/precognition/internal/models"
	"github.com/yourusername/precognition/internal/weights"
)

var snapTime = time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

func testMarket() models.Market {
	return models.Market{
		ID:       "m1",
		Question: "Will it happen?",
		Category: "Politics",
		EndTime:  snapTime.Add(72 * time.Hour),
	}
}

func snapTrade(wallet string, offset time.Duration, side models.Side, action models.Action, price, size float64) models.Trade {
	return models.Trade{
		MarketID:  "m1",
		Wallet:    wallet,
		Timestamp: snapTime.Add(offset),
		Side:      side,
		Action:    action,
		Price:     price,
		Size:      size,
	}
}

func globalWeight(wallet string, weight, uncertainty float64) models.WalletWeight {
	return models.WalletWeight{
		MetricKey:   models.MetricKey{Wallet: wallet, Category: models.All, Horizon: models.All},
		Weight:      weight,
		Uncertainty: uncertainty,
		Support:     20,
	}
}

func TestBuildUntradedMarket(t *testing.T) {
	snap := Build(Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Weights:      weights.NewBook(nil),
	})

	assert.Equal(t, 0.5, snap.MarketProb)
	assert.Equal(t, 0.5, snap.AggregateProb)
	assert.Equal(t, 0.0, snap.Confidence)
	assert.Equal(t, 1.0, snap.IntegrityRisk)
	assert.Equal(t, 0, snap.ActiveWallets)
	assert.Empty(t, snap.TopDrivers)
	assert.NotEmpty(t, snap.Explanation.Summary)
}

func TestBuildZeroSignalWhenAllTradesAfterSnapshot(t *testing.T) {
	// Trades exist but none precede the snapshot time, so every wallet
	// carries zero confidence and the snapshot degrades to the market.
	snap := Build(Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Trades: []models.Trade{
			snapTrade("w1", time.Hour, models.SideYes, models.ActionBuy, 0.7, 100),
			snapTrade("w2", 2*time.Hour, models.SideNo, models.ActionBuy, 0.6, 50),
		},
		Weights: weights.NewBook(nil),
	})

	assert.Equal(t, snap.MarketProb, snap.AggregateProb)
	assert.Equal(t, 0.0, snap.Divergence)
	assert.Equal(t, 1.0, snap.IntegrityRisk)
	assert.Equal(t, 0, snap.ActiveWallets)
	assert.Equal(t, 0.0, snap.ParticipationQuality)
}

func TestBuildThreeWalletScenario(t *testing.T) {
	// Wallet a (trusted 2x) buys YES at 0.60; wallet b (neutral) buys
	// NO at 0.55; wallet c trades only after the snapshot and drops out.
	trades := []models.Trade{
		snapTrade("a", -2*time.Hour, models.SideYes, models.ActionBuy, 0.60, 100),
		snapTrade("b", -time.Hour, models.SideNo, models.ActionBuy, 0.55, 50),
		snapTrade("c", time.Hour, models.SideYes, models.ActionBuy, 0.50, 10),
	}
	book := weights.NewBook([]models.WalletWeight{
		globalWeight("a", 2.0, 0),
		globalWeight("b", 1.0, 0),
		globalWeight("c", 0.5, 0),
	})

	snap := Build(Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Trades:       trades,
		Weights:      book,
	})

	assert.Equal(t, 2, snap.ActiveWallets)
	// Last trade before the snapshot is b's NO buy at 0.55: implied
	// YES 0.45.
	assert.InDelta(t, 0.45, snap.MarketProb, 1e-9)

	// a's belief (0.80) and b's (0.225) bracket the aggregate, pulled
	// toward a by the 2x trust weight.
	assert.Greater(t, snap.AggregateProb, 0.225)
	assert.Less(t, snap.AggregateProb, 0.80)
	assert.Greater(t, snap.AggregateProb, (0.80+0.225)/2)

	assert.Greater(t, snap.Divergence, 0.0)
	assert.InDelta(t, snap.AggregateProb-snap.MarketProb, snap.Divergence, 1e-12)

	require.Len(t, snap.TopDrivers, 2)
	assert.Equal(t, "a", snap.TopDrivers[0].Wallet)
	assert.Greater(t, snap.TopDrivers[0].Contribution, 0.0)
	assert.Less(t, snap.TopDrivers[1].Contribution, 0.0)

	// Two contributors: thin-sample haircut applies.
	assert.Greater(t, snap.Confidence, 0.0)
	assert.Less(t, snap.Confidence, 1.0)

	require.NotEmpty(t, snap.FlipConditions)
	assert.Equal(t, "trusted_no_flow_needed", snap.FlipConditions[0].Condition)
	require.NotNil(t, snap.FlipConditions[0].RequiredEffectiveWeight)
	assert.Greater(t, *snap.FlipConditions[0].RequiredEffectiveWeight, 0.0)
}

func TestBuildIdempotent(t *testing.T) {
	in := Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Trades: []models.Trade{
			snapTrade("a", -4*time.Hour, models.SideYes, models.ActionBuy, 0.55, 120),
			snapTrade("b", -3*time.Hour, models.SideNo, models.ActionBuy, 0.50, 60),
			snapTrade("c", -2*time.Hour, models.SideYes, models.ActionSell, 0.58, 30),
			snapTrade("d", -time.Hour, models.SideYes, models.ActionBuy, 0.61, 200),
		},
		Weights: weights.NewBook([]models.WalletWeight{
			globalWeight("a", 1.4, 0.2),
			globalWeight("d", 2.2, 0.1),
		}),
		Profiles: map[string]models.WalletMetric{
			"a": {
				MetricKey:     models.MetricKey{Wallet: "a", Category: models.All, Horizon: models.All},
				SampleMarkets: 10, Churn: 0.1, Persistence: 0.9,
				Specialization: 0.6, TimingEdge: 0.3, AvgTradeSize: 150, Brier: 0.15,
			},
		},
	}

	first := Build(in)
	second := Build(in)
	require.Equal(t, first, second)

	b1, err := json.Marshal(first)
	require.NoError(t, err)
	b2, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestBuildBoundsAlwaysHold(t *testing.T) {
	snap := Build(Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Trades: []models.Trade{
			snapTrade("a", -time.Minute, models.SideYes, models.ActionBuy, 0.999, 100000),
			snapTrade("b", -2*time.Minute, models.SideYes, models.ActionBuy, 0.999, 100000),
		},
		Weights: weights.NewBook([]models.WalletWeight{
			globalWeight("a", 4.0, 0),
			globalWeight("b", 4.0, 0),
		}),
	})

	assert.GreaterOrEqual(t, snap.AggregateProb, 0.001)
	assert.LessOrEqual(t, snap.AggregateProb, 0.999)
	for _, v := range []float64{snap.Confidence, snap.Disagreement, snap.ParticipationQuality, snap.IntegrityRisk} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestColdStartWalletGetsNeutralWeight(t *testing.T) {
	// No weight rows at all: the lone wallet is weighted 1.0 with full
	// uncertainty, which still produces a usable snapshot.
	snap := Build(Input{
		Market:       testMarket(),
		SnapshotTime: snapTime,
		Trades: []models.Trade{
			snapTrade("fresh", -time.Hour, models.SideYes, models.ActionBuy, 0.7, 80),
		},
		Weights: weights.NewBook(nil),
	})

	require.Equal(t, 1, snap.ActiveWallets)
	require.Len(t, snap.TopDrivers, 1)
	// trust = 1.0 * antiNoise(1.15) * uncertaintyDiscount(0.70).
	assert.InDelta(t, 1.15*0.70, snap.TopDrivers[0].Weight, 1e-6)
}

func TestMarketProbUsesLastTradeBeforeSnapshot(t *testing.T) {
	trades := []models.Trade{
		snapTrade("a", -3*time.Hour, models.SideYes, models.ActionBuy, 0.30, 10),
		snapTrade("a", -time.Hour, models.SideYes, models.ActionBuy, 0.70, 10),
		snapTrade("a", time.Hour, models.SideYes, models.ActionBuy, 0.95, 10),
	}
	assert.InDelta(t, 0.70, marketProbAt(trades, snapTime), 1e-12)
	assert.InDelta(t, 0.30, marketProbAt(trades, snapTime.Add(-2*time.Hour)), 1e-12)
	assert.Equal(t, 0.5, marketProbAt(trades, snapTime.Add(-5*time.Hour)))
}
