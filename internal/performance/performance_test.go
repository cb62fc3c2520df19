package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/precognition/internal/models"
)

var (
	resolveTime = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	scoreTime   = time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
)

func resolvedMarket(id, category string, endOffset time.Duration, outcome int, trades []models.Trade) models.ResolvedMarketTrades {
	return models.ResolvedMarketTrades{
		Market: models.Market{
			ID:       id,
			Question: "q-" + id,
			Category: category,
			EndTime:  resolveTime.Add(endOffset),
		},
		Outcome: models.Outcome{
			MarketID:        id,
			ResolvedOutcome: outcome,
			ResolutionTime:  resolveTime,
		},
		Trades: trades,
	}
}

func mktTrade(market, wallet string, offset time.Duration, side models.Side, action models.Action, price, size float64) models.Trade {
	return models.Trade{
		MarketID:  market,
		Wallet:    wallet,
		Timestamp: resolveTime.Add(offset),
		Side:      side,
		Action:    action,
		Price:     price,
		Size:      size,
	}
}

func metricFor(t *testing.T, rows []models.WalletMetric, wallet, category, horizon string) models.WalletMetric {
	t.Helper()
	for _, r := range rows {
		if r.Wallet == wallet && r.Category == category && r.Horizon == horizon {
			return r
		}
	}
	t.Fatalf("no metric row for (%s, %s, %s)", wallet, category, horizon)
	return models.WalletMetric{}
}

func TestComputeProducesFourGroupings(t *testing.T) {
	group := resolvedMarket("m1", "Politics", time.Hour, 1, []models.Trade{
		mktTrade("m1", "w1", -48*time.Hour, models.SideYes, models.ActionBuy, 0.6, 100),
		mktTrade("m1", "w1", -24*time.Hour, models.SideYes, models.ActionBuy, 0.7, 100),
	})

	rows := Compute([]models.ResolvedMarketTrades{group}, 48, scoreTime)
	require.Len(t, rows, 4)

	seen := make(map[models.MetricKey]bool)
	for _, r := range rows {
		seen[r.MetricKey] = true
		assert.Equal(t, 1, r.SampleMarkets)
		assert.Equal(t, 2, r.SampleTrades)
		assert.Equal(t, scoreTime, r.UpdatedAt)
	}
	assert.True(t, seen[models.MetricKey{Wallet: "w1", Category: models.All, Horizon: models.All}])
	assert.True(t, seen[models.MetricKey{Wallet: "w1", Category: "politics", Horizon: models.All}])
	assert.True(t, seen[models.MetricKey{Wallet: "w1", Category: models.All, Horizon: models.HorizonShort}])
	assert.True(t, seen[models.MetricKey{Wallet: "w1", Category: "politics", Horizon: models.HorizonShort}])
}

func TestAccuracyAndROIForResolvedYes(t *testing.T) {
	group := resolvedMarket("m1", "sports", time.Hour, 1, []models.Trade{
		mktTrade("m1", "w1", -2*time.Hour, models.SideYes, models.ActionBuy, 0.5, 10),
	})

	rows := Compute([]models.ResolvedMarketTrades{group}, 48, scoreTime)
	m := metricFor(t, rows, "w1", models.All, models.All)

	// Single YES buy at 0.5: vote (0.5+1)/2 = 0.75, outcome 1.
	assert.InDelta(t, 0.0625, m.Brier, 1e-9)
	assert.InDelta(t, 0.25, m.CalibrationError, 1e-9)
	// P&L (1 - 0.5) * 10 = 5 over cost 0.5 * 10 = 5.
	assert.InDelta(t, 1.0, m.ROI, 1e-9)
	assert.InDelta(t, 10.0, m.AvgTradeSize, 1e-9)
}

func TestSellMarkedToResolution(t *testing.T) {
	group := resolvedMarket("m1", "sports", time.Hour, 0, []models.Trade{
		mktTrade("m1", "w1", -2*time.Hour, models.SideYes, models.ActionSell, 0.7, 10),
	})

	rows := Compute([]models.ResolvedMarketTrades{group}, 48, scoreTime)
	m := metricFor(t, rows, "w1", models.All, models.All)

	// Selling a worthless YES token at 0.7 banks (0.7 - 0) * 10.
	assert.InDelta(t, 7.0/7.0, m.ROI, 1e-9)
}

func TestTimingEdgePerfectAnticipation(t *testing.T) {
	group := resolvedMarket("m1", "crypto", time.Hour, 1, []models.Trade{
		mktTrade("m1", "w1", -72*time.Hour, models.SideYes, models.ActionBuy, 0.5, 50),
		// Last trade before resolution sets the final YES price at 0.9.
		mktTrade("m1", "w2", -time.Hour, models.SideYes, models.ActionBuy, 0.9, 10),
	})

	rows := Compute([]models.ResolvedMarketTrades{group}, 48, scoreTime)
	early := metricFor(t, rows, "w1", models.All, models.All)
	// w1 bought YES at 0.5 while the market finished at 0.9: every
	// signal trade anticipated the move.
	assert.InDelta(t, 1.0, early.TimingEdge, 1e-9)

	late := metricFor(t, rows, "w2", models.All, models.All)
	// w2's trade is the final print, zero move, no timing signal.
	assert.InDelta(t, 0.0, late.TimingEdge, 1e-9)
}

func TestSpecializationSingleVsSplitCategory(t *testing.T) {
	groups := []models.ResolvedMarketTrades{
		resolvedMarket("m1", "politics", time.Hour, 1, []models.Trade{
			mktTrade("m1", "focused", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
			mktTrade("m1", "split", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
		}),
		resolvedMarket("m2", "politics", time.Hour, 0, []models.Trade{
			mktTrade("m2", "focused", -2*time.Hour, models.SideNo, models.ActionBuy, 0.6, 10),
		}),
		resolvedMarket("m3", "sports", time.Hour, 1, []models.Trade{
			mktTrade("m3", "split", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
		}),
	}

	rows := Compute(groups, 48, scoreTime)
	focused := metricFor(t, rows, "focused", models.All, models.All)
	split := metricFor(t, rows, "split", models.All, models.All)

	assert.InDelta(t, 1.0, focused.Specialization, 1e-9)
	// Even 50/50 split over two categories is maximum entropy.
	assert.InDelta(t, 0.0, split.Specialization, 1e-9)
}

func TestWalletWithOnlyPostCloseTradesSkipped(t *testing.T) {
	// Resolution precedes end time, so the belief cutoff is the
	// resolution time. A wallet trading only after it contributes
	// nothing.
	group := resolvedMarket("m1", "sports", 48*time.Hour, 1, []models.Trade{
		mktTrade("m1", "early", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
		mktTrade("m1", "late", 12*time.Hour, models.SideYes, models.ActionBuy, 0.95, 10),
	})

	rows := Compute([]models.ResolvedMarketTrades{group}, 48, scoreTime)
	for _, r := range rows {
		assert.NotEqual(t, "late", r.Wallet)
	}
	metricFor(t, rows, "early", models.All, models.All)
}

func TestFinalizeRowsSortedByKey(t *testing.T) {
	groups := []models.ResolvedMarketTrades{
		resolvedMarket("m1", "politics", time.Hour, 1, []models.Trade{
			mktTrade("m1", "zeta", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
			mktTrade("m1", "alpha", -2*time.Hour, models.SideYes, models.ActionBuy, 0.6, 10),
		}),
	}

	rows := Compute(groups, 48, scoreTime)
	require.Len(t, rows, 8)
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.Wallet != cur.Wallet {
			assert.Less(t, prev.Wallet, cur.Wallet)
		} else if prev.Category != cur.Category {
			assert.Less(t, prev.Category, cur.Category)
		} else {
			assert.Less(t, prev.Horizon, cur.Horizon)
		}
	}
}

func TestEmptyGroupIgnored(t *testing.T) {
	rows := Compute([]models.ResolvedMarketTrades{
		resolvedMarket("m1", "sports", time.Hour, 1, nil),
	}, 48, scoreTime)
	assert.Empty(t, rows)
}
