// Package service orchestrates the crowd signal pipeline: trade
// ingestion, wallet metric and weight recomputes, snapshot builds, and
// backtest runs.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/precognition/internal/backtest"
	"github.com/yourusername/precognition/internal/config"
	"github.com/yourusername/precognition/internal/logger"
	"github.com/yourusername/precognition/internal/metrics"
	"github.com/yourusername/precognition/internal/models"
	"github.com/yourusername/precognition/internal/performance"
	"github.com/yourusername/precognition/internal/repository"
	"github.com/yourusername/precognition/internal/snapshot"
	"github.com/yourusername/precognition/internal/weights"
)

// CrowdService coordinates the full pipeline against the repositories.
type CrowdService struct {
	repos     *repository.Repositories
	cfg       *config.Config
	log       *logrus.Logger
	pipeline  *logger.PipelineLogger
	validator *TradeValidator
	now       func() time.Time
}

// NewCrowdService creates a new crowd service.
func NewCrowdService(repos *repository.Repositories, cfg *config.Config, log *logrus.Logger) *CrowdService {
	return &CrowdService{
		repos:     repos,
		cfg:       cfg,
		log:       log,
		pipeline:  logger.NewPipelineLogger(log),
		validator: NewTradeValidator(),
		now:       time.Now,
	}
}

// IngestTrades validates and persists a batch of trades. Invalid rows
// are rejected individually; duplicates (by external id) are skipped by
// the store. Returns the number of rows actually inserted.
func (s *CrowdService) IngestTrades(ctx context.Context, trades []models.Trade) (int, error) {
	accepted := make([]models.Trade, 0, len(trades))
	rejected := 0
	for _, tr := range trades {
		normalized, err := s.validator.Validate(tr)
		if err != nil {
			rejected++
			s.log.WithError(err).WithFields(logrus.Fields{
				"market_id":   tr.MarketID,
				"external_id": tr.ExternalID,
			}).Warn("Rejected trade")
			continue
		}
		accepted = append(accepted, normalized)
	}

	inserted := 0
	if len(accepted) > 0 {
		var err error
		inserted, err = s.repos.Trade.InsertBatch(ctx, accepted)
		if err != nil {
			return 0, fmt.Errorf("failed to insert trades: %w", err)
		}
	}

	s.pipeline.LogIngestion(len(trades), inserted, rejected)
	metrics.RecordIngestion(inserted, rejected)
	return inserted, nil
}

// RecomputeWalletMetrics rescores every wallet grouping from the
// resolved-market trade log and rewrites the metric table.
func (s *CrowdService) RecomputeWalletMetrics(ctx context.Context) (int, error) {
	start := s.now()

	resolved, err := s.repos.Market.ResolvedMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load resolved markets: %w", err)
	}

	acc := performance.NewAccumulator(s.cfg.Crowd.HalfLifeHours)
	for _, rm := range resolved {
		trades, err := s.repos.Trade.GetByMarket(ctx, rm.Market.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to load trades for market %s: %w", rm.Market.ID, err)
		}
		acc.Add(models.ResolvedMarketTrades{
			Market:  rm.Market,
			Outcome: rm.Outcome,
			Trades:  trades,
		})
	}

	rows := acc.Finalize(s.now())
	written, err := s.repos.WalletMetric.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to replace wallet metrics: %w", err)
	}

	elapsed := s.now().Sub(start)
	s.pipeline.LogRecompute("wallet_metrics", written, elapsed)
	metrics.RecordRecomputePass("wallet_metrics", written, elapsed.Seconds())
	return written, nil
}

// RecomputeWalletWeights derives trust weights from the current metric
// table and rewrites the weight table.
func (s *CrowdService) RecomputeWalletWeights(ctx context.Context) (int, error) {
	start := s.now()

	rows, err := s.repos.WalletMetric.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load wallet metrics: %w", err)
	}

	weightRows := weights.Compute(rows, s.now())
	written, err := s.repos.WalletWeight.ReplaceAll(ctx, weightRows)
	if err != nil {
		return 0, fmt.Errorf("failed to replace wallet weights: %w", err)
	}

	elapsed := s.now().Sub(start)
	s.pipeline.LogRecompute("wallet_weights", written, elapsed)
	metrics.RecordRecomputePass("wallet_weights", written, elapsed.Seconds())
	return written, nil
}

// BuildMarketSnapshot fuses wallet beliefs into one crowd estimate for
// a market at the given instant, optionally persisting it.
func (s *CrowdService) BuildMarketSnapshot(ctx context.Context, marketID string, snapshotTime time.Time, persist bool) (models.MarketSnapshot, error) {
	start := s.now()

	market, err := s.repos.Market.GetByID(ctx, marketID)
	if err != nil {
		return models.MarketSnapshot{}, err
	}

	trades, err := s.repos.Trade.GetByMarket(ctx, marketID)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("failed to load trades for market %s: %w", marketID, err)
	}

	weightRows, err := s.repos.WalletWeight.All(ctx)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("failed to load wallet weights: %w", err)
	}

	wallets := walletsBefore(trades, snapshotTime)
	profiles, err := s.repos.WalletMetric.GlobalProfiles(ctx, wallets)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("failed to load wallet profiles: %w", err)
	}

	snap := snapshot.Build(snapshot.Input{
		Market:        *market,
		SnapshotTime:  snapshotTime,
		Trades:        trades,
		Weights:       weights.NewBook(weightRows),
		Profiles:      profiles,
		HalfLifeHours: s.cfg.Crowd.HalfLifeHours,
	})

	if persist {
		if err := s.repos.Snapshot.Upsert(ctx, &snap); err != nil {
			return models.MarketSnapshot{}, fmt.Errorf("failed to persist snapshot: %w", err)
		}
	}

	s.pipeline.LogSnapshot(marketID, snapshotTime, snap.AggregateProb, snap.Divergence, snap.Confidence, snap.ActiveWallets, persist)
	metrics.RecordSnapshotBuilt(persist, s.now().Sub(start).Seconds())
	return snap, nil
}

// SnapshotAllMarkets persists a snapshot for every market with trades.
// Failures on individual markets are logged and skipped so one bad
// market cannot stall the batch. Returns the number of snapshots built.
func (s *CrowdService) SnapshotAllMarkets(ctx context.Context, snapshotTime time.Time, includeResolved bool) (int, error) {
	start := s.now()

	ids, err := s.repos.Market.MarketIDsWithTrades(ctx, includeResolved)
	if err != nil {
		return 0, fmt.Errorf("failed to list markets: %w", err)
	}

	built := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return built, ctx.Err()
		}
		if _, err := s.BuildMarketSnapshot(ctx, id, snapshotTime, true); err != nil {
			s.log.WithError(err).WithField("market_id", id).Error("Snapshot build failed")
			continue
		}
		built++
	}

	s.pipeline.LogSnapshotBatch(built, includeResolved, s.now().Sub(start))
	return built, nil
}

// BackfillSnapshots persists snapshots at evenly spaced points across a
// market's trading history, giving a new market an instant time series.
func (s *CrowdService) BackfillSnapshots(ctx context.Context, marketID string) (int, error) {
	points := s.cfg.Crowd.BackfillPoints
	if points <= 0 {
		points = 12
	}

	first, last, ok, err := s.repos.Trade.TradeTimeRange(ctx, marketID)
	if err != nil {
		return 0, fmt.Errorf("failed to load trade time range: %w", err)
	}
	if !ok {
		return 0, nil
	}

	span := last.Sub(first)
	built := 0
	for i := 1; i <= points; i++ {
		at := first.Add(time.Duration(float64(span) * float64(i) / float64(points)))
		if _, err := s.BuildMarketSnapshot(ctx, marketID, at, true); err != nil {
			return built, err
		}
		built++
	}
	return built, nil
}

// SnapshotHistory returns the most recent persisted snapshots for a
// market, newest first.
func (s *CrowdService) SnapshotHistory(ctx context.Context, marketID string, limit int) ([]models.MarketSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repos.Snapshot.History(ctx, marketID, limit)
}

// Screener returns each market's latest snapshot ordered by absolute
// divergence, the entry point for finding mispriced markets.
func (s *CrowdService) Screener(ctx context.Context) ([]models.ScreenerRow, error) {
	limit := s.cfg.Crowd.ScreenerLimit
	if limit <= 0 {
		limit = 25
	}
	return s.repos.Snapshot.LatestScreenerRows(ctx, limit, s.cfg.Crowd.ScreenerMinConfidence)
}

// RunBacktest replays snapshots at a fixed cutoff before each resolved
// market's close and scores the crowd series against the market series.
// An empty runID gets a generated one.
func (s *CrowdService) RunBacktest(ctx context.Context, cutoffHours float64, runID string) (*models.BacktestReport, error) {
	start := s.now()
	if runID == "" {
		runID = uuid.New().String()
	}
	if cutoffHours <= 0 {
		cutoffHours = s.cfg.Backtest.DefaultCutoffHours
	}

	evaluator := s.newEvaluator()
	records, report, err := evaluator.Run(ctx, cutoffHours, runID)
	if err != nil {
		metrics.RecordBacktestRun("error", s.now().Sub(start).Seconds())
		return nil, err
	}

	if err := s.repos.Backtest.ReplaceRun(ctx, runID, records); err != nil {
		return nil, fmt.Errorf("failed to persist backtest records: %w", err)
	}
	if err := s.repos.Backtest.SaveReport(ctx, &report); err != nil {
		return nil, fmt.Errorf("failed to persist backtest report: %w", err)
	}

	s.pipeline.LogBacktestRun(runID, cutoffHours, report.TotalMarkets, report.CrowdBrier, report.MarketBrier)
	metrics.RecordBacktestRun("success", s.now().Sub(start).Seconds())
	metrics.RecordBacktestBriers(report.CrowdBrier, report.MarketBrier)
	return &report, nil
}

// RunBacktestSweep evaluates every hourly cutoff from one hour up to
// the configured maximum, tracing how edge decays with distance from
// resolution.
func (s *CrowdService) RunBacktestSweep(ctx context.Context, maxHours int, runID string) (*models.SweepReport, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	if maxHours <= 0 {
		maxHours = s.cfg.Backtest.SweepMaxHours
	}

	evaluator := s.newEvaluator()
	report, err := evaluator.Sweep(ctx, maxHours, runID)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// RecomputePipeline runs the full refresh: metrics, then weights, then
// a snapshot pass over unresolved markets.
func (s *CrowdService) RecomputePipeline(ctx context.Context) error {
	metricRows, err := s.RecomputeWalletMetrics(ctx)
	if err != nil {
		return fmt.Errorf("metric recompute failed: %w", err)
	}

	weightRows, err := s.RecomputeWalletWeights(ctx)
	if err != nil {
		return fmt.Errorf("weight recompute failed: %w", err)
	}

	built, err := s.SnapshotAllMarkets(ctx, s.now(), false)
	if err != nil {
		return fmt.Errorf("snapshot pass failed: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"metric_rows": metricRows,
		"weight_rows": weightRows,
		"snapshots":   built,
	}).Info("Recompute pipeline complete")
	return nil
}

// newEvaluator wires a backtest evaluator that replays snapshots
// through the service without persisting them.
func (s *CrowdService) newEvaluator() *backtest.Evaluator {
	snapshotAt := func(ctx context.Context, marketID string, at time.Time) (models.MarketSnapshot, error) {
		return s.BuildMarketSnapshot(ctx, marketID, at, false)
	}
	return backtest.NewEvaluator(backtestSource{s.repos}, snapshotAt, s.log, s.now)
}

// backtestSource adapts the repositories to the evaluator's data needs.
type backtestSource struct {
	repos *repository.Repositories
}

func (b backtestSource) ResolvedMarkets(ctx context.Context) ([]models.ResolvedMarket, error) {
	return b.repos.Market.ResolvedMarkets(ctx)
}

func (b backtestSource) FirstTradeTime(ctx context.Context, marketID string, cutoff time.Time) (time.Time, bool, error) {
	return b.repos.Trade.FirstTradeTime(ctx, marketID, cutoff)
}

// walletsBefore lists the distinct wallets with at least one trade at
// or before the cutoff, preserving first-seen order.
func walletsBefore(trades []models.Trade, cutoff time.Time) []string {
	seen := make(map[string]struct{})
	wallets := make([]string, 0)
	for _, tr := range trades {
		if tr.Timestamp.After(cutoff) {
			continue
		}
		if _, ok := seen[tr.Wallet]; ok {
			continue
		}
		seen[tr.Wallet] = struct{}{}
		wallets = append(wallets, tr.Wallet)
	}
	return wallets
}
