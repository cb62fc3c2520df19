package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/precognition/internal/config"
	"github.com/yourusername/precognition/internal/models"
	"github.com/yourusername/precognition/internal/repository"
)

type fakeMarketRepo struct {
	markets  map[string]models.Market
	resolved []models.ResolvedMarket
	tradable []string
}

func (f *fakeMarketRepo) Upsert(_ context.Context, m *models.Market) error {
	f.markets[m.ID] = *m
	return nil
}

func (f *fakeMarketRepo) GetByID(_ context.Context, id string) (*models.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return nil, models.ErrMarketNotFound
	}
	return &m, nil
}

func (f *fakeMarketRepo) SaveOutcome(_ context.Context, _ *models.Outcome) error {
	return nil
}

func (f *fakeMarketRepo) ResolvedMarkets(_ context.Context) ([]models.ResolvedMarket, error) {
	return f.resolved, nil
}

func (f *fakeMarketRepo) MarketIDsWithTrades(_ context.Context, _ bool) ([]string, error) {
	return f.tradable, nil
}

type fakeTradeRepo struct {
	trades   map[string][]models.Trade
	inserted []models.Trade
}

func (f *fakeTradeRepo) InsertBatch(_ context.Context, trades []models.Trade) (int, error) {
	f.inserted = append(f.inserted, trades...)
	return len(trades), nil
}

func (f *fakeTradeRepo) GetByMarket(_ context.Context, marketID string) ([]models.Trade, error) {
	return f.trades[marketID], nil
}

func (f *fakeTradeRepo) FirstTradeTime(_ context.Context, marketID string, cutoff time.Time) (time.Time, bool, error) {
	var first time.Time
	found := false
	for _, tr := range f.trades[marketID] {
		if tr.Timestamp.After(cutoff) {
			continue
		}
		if !found || tr.Timestamp.Before(first) {
			first = tr.Timestamp
			found = true
		}
	}
	return first, found, nil
}

func (f *fakeTradeRepo) TradeTimeRange(_ context.Context, marketID string) (time.Time, time.Time, bool, error) {
	rows := f.trades[marketID]
	if len(rows) == 0 {
		return time.Time{}, time.Time{}, false, nil
	}
	first, last := rows[0].Timestamp, rows[0].Timestamp
	for _, tr := range rows[1:] {
		if tr.Timestamp.Before(first) {
			first = tr.Timestamp
		}
		if tr.Timestamp.After(last) {
			last = tr.Timestamp
		}
	}
	return first, last, true, nil
}

type fakeMetricRepo struct {
	rows []models.WalletMetric
}

func (f *fakeMetricRepo) ReplaceAll(_ context.Context, rows []models.WalletMetric) (int, error) {
	f.rows = rows
	return len(rows), nil
}

func (f *fakeMetricRepo) All(_ context.Context) ([]models.WalletMetric, error) {
	return f.rows, nil
}

func (f *fakeMetricRepo) GlobalProfiles(_ context.Context, wallets []string) (map[string]models.WalletMetric, error) {
	out := make(map[string]models.WalletMetric)
	for _, row := range f.rows {
		if row.Category != models.All || row.Horizon != models.All {
			continue
		}
		for _, w := range wallets {
			if row.Wallet == w {
				out[w] = row
			}
		}
	}
	return out, nil
}

type fakeWeightRepo struct {
	rows []models.WalletWeight
}

func (f *fakeWeightRepo) ReplaceAll(_ context.Context, rows []models.WalletWeight) (int, error) {
	f.rows = rows
	return len(rows), nil
}

func (f *fakeWeightRepo) All(_ context.Context) ([]models.WalletWeight, error) {
	return f.rows, nil
}

type fakeSnapshotRepo struct {
	upserts []models.MarketSnapshot
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, snap *models.MarketSnapshot) error {
	f.upserts = append(f.upserts, *snap)
	return nil
}

func (f *fakeSnapshotRepo) History(_ context.Context, marketID string, limit int) ([]models.MarketSnapshot, error) {
	out := make([]models.MarketSnapshot, 0)
	for i := len(f.upserts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.upserts[i].MarketID == marketID {
			out = append(out, f.upserts[i])
		}
	}
	return out, nil
}

func (f *fakeSnapshotRepo) LatestScreenerRows(_ context.Context, _ int, _ float64) ([]models.ScreenerRow, error) {
	return nil, nil
}

type fakeBacktestRepo struct {
	runRecords map[string][]models.BacktestRecord
	reports    map[string]models.BacktestReport
}

func (f *fakeBacktestRepo) ReplaceRun(_ context.Context, runID string, records []models.BacktestRecord) error {
	f.runRecords[runID] = records
	return nil
}

func (f *fakeBacktestRepo) SaveReport(_ context.Context, report *models.BacktestReport) error {
	f.reports[report.RunID] = *report
	return nil
}

func (f *fakeBacktestRepo) GetReport(_ context.Context, runID string) (*models.BacktestReport, error) {
	r, ok := f.reports[runID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

type fixture struct {
	svc      *CrowdService
	market   *fakeMarketRepo
	trade    *fakeTradeRepo
	metric   *fakeMetricRepo
	weight   *fakeWeightRepo
	snapshot *fakeSnapshotRepo
	backtest *fakeBacktestRepo
}

var fixedNow = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	market := &fakeMarketRepo{markets: make(map[string]models.Market)}
	trade := &fakeTradeRepo{trades: make(map[string][]models.Trade)}
	metric := &fakeMetricRepo{}
	weight := &fakeWeightRepo{}
	snap := &fakeSnapshotRepo{}
	bt := &fakeBacktestRepo{
		runRecords: make(map[string][]models.BacktestRecord),
		reports:    make(map[string]models.BacktestReport),
	}

	cfg := &config.Config{}
	cfg.Crowd.HalfLifeHours = 48.0
	cfg.Crowd.BackfillPoints = 4
	cfg.Crowd.ScreenerLimit = 25
	cfg.Backtest.DefaultCutoffHours = 1.0
	cfg.Backtest.SweepMaxHours = 24

	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := NewCrowdService(&repository.Repositories{
		Market:       market,
		Trade:        trade,
		WalletMetric: metric,
		WalletWeight: weight,
		Snapshot:     snap,
		Backtest:     bt,
	}, cfg, log)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, market: market, trade: trade, metric: metric, weight: weight, snapshot: snap, backtest: bt}
}

func (f *fixture) addResolvedMarket(id, category string, endTime time.Time, outcome int, trades ...models.Trade) {
	m := models.Market{ID: id, Question: "q", Category: category, EndTime: endTime}
	f.market.markets[id] = m
	f.market.resolved = append(f.market.resolved, models.ResolvedMarket{
		Market:  m,
		Outcome: models.Outcome{MarketID: id, ResolvedOutcome: outcome, ResolutionTime: endTime},
	})
	f.trade.trades[id] = trades
}

func trade(market, wallet string, ts time.Time, side models.Side, price, size float64) models.Trade {
	return models.Trade{
		MarketID:  market,
		Wallet:    wallet,
		Timestamp: ts,
		Side:      side,
		Action:    models.ActionBuy,
		Price:     price,
		Size:      size,
	}
}

func TestIngestTradesNormalizesAndRejects(t *testing.T) {
	f := newFixture(t)
	ts := fixedNow.Add(-time.Hour)

	inserted, err := f.svc.IngestTrades(context.Background(), []models.Trade{
		{MarketID: "m1", Wallet: "0xABC", Timestamp: ts, Side: "yes", Action: "buy", Price: 0.60, Size: 100},
		{MarketID: "m1", Wallet: "0xdef", Timestamp: ts, Side: models.SideYes, Action: models.ActionBuy, Price: 1.5, Size: 100},
		{MarketID: "", Wallet: "0xdef", Timestamp: ts, Side: models.SideNo, Action: models.ActionSell, Price: 0.40, Size: 50},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.Len(t, f.trade.inserted, 1)
	assert.Equal(t, "0xabc", f.trade.inserted[0].Wallet)
	assert.Equal(t, models.SideYes, f.trade.inserted[0].Side)
}

func TestRecomputeWalletMetricsWritesGroupedRows(t *testing.T) {
	f := newFixture(t)
	endTime := fixedNow.Add(-24 * time.Hour)
	f.addResolvedMarket("m1", "politics", endTime, 1,
		trade("m1", "0xa", endTime.Add(-48*time.Hour), models.SideYes, 0.55, 100),
		trade("m1", "0xa", endTime.Add(-24*time.Hour), models.SideYes, 0.60, 50),
	)

	written, err := f.svc.RecomputeWalletMetrics(context.Background())

	require.NoError(t, err)
	// One wallet, one category, one horizon: four groupings.
	assert.Equal(t, 4, written)
	assert.Len(t, f.metric.rows, 4)
}

func TestRecomputeWalletWeightsUsesMetricTable(t *testing.T) {
	f := newFixture(t)
	f.metric.rows = []models.WalletMetric{
		{
			MetricKey:     models.MetricKey{Wallet: "0xa", Category: models.All, Horizon: models.All},
			SampleMarkets: 10,
			Brier:         0.15,
		},
	}

	written, err := f.svc.RecomputeWalletWeights(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, f.weight.rows, 1)
	assert.Greater(t, f.weight.rows[0].Weight, 1.0)
}

func TestBuildMarketSnapshotUnknownMarket(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BuildMarketSnapshot(context.Background(), "missing", fixedNow, false)

	assert.ErrorIs(t, err, models.ErrMarketNotFound)
}

func TestBuildMarketSnapshotPersistFlag(t *testing.T) {
	f := newFixture(t)
	endTime := fixedNow.Add(48 * time.Hour)
	f.market.markets["m1"] = models.Market{ID: "m1", Category: "sports", EndTime: endTime}
	f.trade.trades["m1"] = []models.Trade{
		trade("m1", "0xa", fixedNow.Add(-time.Hour), models.SideYes, 0.62, 80),
	}

	snap, err := f.svc.BuildMarketSnapshot(context.Background(), "m1", fixedNow, false)
	require.NoError(t, err)
	assert.Empty(t, f.snapshot.upserts)
	assert.Equal(t, "m1", snap.MarketID)
	assert.Equal(t, 1, snap.ActiveWallets)

	persisted, err := f.svc.BuildMarketSnapshot(context.Background(), "m1", fixedNow, true)
	require.NoError(t, err)
	require.Len(t, f.snapshot.upserts, 1)
	assert.Equal(t, persisted, f.snapshot.upserts[0])
}

func TestSnapshotAllMarketsSkipsFailingMarket(t *testing.T) {
	f := newFixture(t)
	endTime := fixedNow.Add(48 * time.Hour)
	f.market.markets["m1"] = models.Market{ID: "m1", Category: "sports", EndTime: endTime}
	f.trade.trades["m1"] = []models.Trade{
		trade("m1", "0xa", fixedNow.Add(-time.Hour), models.SideYes, 0.62, 80),
	}
	// m2 listed but has no market row, so its build fails.
	f.market.tradable = []string{"m1", "m2"}

	built, err := f.svc.SnapshotAllMarkets(context.Background(), fixedNow, false)

	require.NoError(t, err)
	assert.Equal(t, 1, built)
	assert.Len(t, f.snapshot.upserts, 1)
}

func TestBackfillSnapshotsEvenlySpaced(t *testing.T) {
	f := newFixture(t)
	endTime := fixedNow.Add(48 * time.Hour)
	first := fixedNow.Add(-12 * time.Hour)
	f.market.markets["m1"] = models.Market{ID: "m1", Category: "sports", EndTime: endTime}
	f.trade.trades["m1"] = []models.Trade{
		trade("m1", "0xa", first, models.SideYes, 0.50, 10),
		trade("m1", "0xa", fixedNow, models.SideYes, 0.65, 10),
	}

	built, err := f.svc.BackfillSnapshots(context.Background(), "m1")

	require.NoError(t, err)
	assert.Equal(t, 4, built)
	require.Len(t, f.snapshot.upserts, 4)
	assert.Equal(t, first.Add(3*time.Hour), f.snapshot.upserts[0].SnapshotTime)
	assert.Equal(t, fixedNow, f.snapshot.upserts[3].SnapshotTime)
}

func TestBackfillSnapshotsUntradedMarket(t *testing.T) {
	f := newFixture(t)
	f.market.markets["m1"] = models.Market{ID: "m1", EndTime: fixedNow}

	built, err := f.svc.BackfillSnapshots(context.Background(), "m1")

	require.NoError(t, err)
	assert.Zero(t, built)
}

func TestRunBacktestPersistsRecordsAndReport(t *testing.T) {
	f := newFixture(t)
	closeTime := fixedNow.Add(-240 * time.Hour)
	f.addResolvedMarket("m1", "politics", closeTime, 1,
		trade("m1", "0xa", closeTime.Add(-72*time.Hour), models.SideYes, 0.55, 100),
		trade("m1", "0xa", closeTime.Add(-48*time.Hour), models.SideYes, 0.60, 50),
	)

	report, err := f.svc.RunBacktest(context.Background(), 12, "run-1")

	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.TotalMarkets)
	assert.Len(t, f.backtest.runRecords["run-1"], 1)

	saved, err := f.backtest.GetReport(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.TotalMarkets, saved.TotalMarkets)
}

func TestRunBacktestGeneratesRunID(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.RunBacktest(context.Background(), 12, "")

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Zero(t, report.TotalMarkets)
}

func TestRecomputePipelineRunsAllStages(t *testing.T) {
	f := newFixture(t)
	endTime := fixedNow.Add(-24 * time.Hour)
	f.addResolvedMarket("m1", "politics", endTime, 1,
		trade("m1", "0xa", endTime.Add(-48*time.Hour), models.SideYes, 0.55, 100),
	)
	f.market.tradable = []string{"m1"}

	err := f.svc.RecomputePipeline(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, f.metric.rows)
	assert.NotEmpty(t, f.weight.rows)
	assert.Len(t, f.snapshot.upserts, 1)
}
