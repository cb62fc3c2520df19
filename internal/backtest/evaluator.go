// Package backtest replays the snapshot aggregator at historical
// cutoffs before each resolved market's close and scores the crowd
// signal against realized outcomes.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/precognition/internal/models"
)

// SnapshotFn replays the aggregator for one market at a historical
// instant without persisting the result.
type SnapshotFn func(ctx context.Context, marketID string, at time.Time) (models.MarketSnapshot, error)

// MarketSource supplies the resolved-market universe and per-market
// first trade times. Implemented by the repository layer and by
// in-memory fixtures in tests.
type MarketSource interface {
	ResolvedMarkets(ctx context.Context) ([]models.ResolvedMarket, error)
	// FirstTradeTime returns the earliest trade timestamp at or before
	// the cutoff, or ok=false when the market has no such trade.
	FirstTradeTime(ctx context.Context, marketID string, cutoff time.Time) (time.Time, bool, error)
}

// Evaluator runs cutoff-based backtests over all resolved markets.
type Evaluator struct {
	source     MarketSource
	snapshotAt SnapshotFn
	log        *logrus.Logger
	now        func() time.Time
}

// NewEvaluator wires an evaluator. The now function exists so tests
// can pin the clamp applied to future cutoffs.
func NewEvaluator(source MarketSource, snapshotAt SnapshotFn, log *logrus.Logger, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{source: source, snapshotAt: snapshotAt, log: log, now: now}
}

// Run evaluates every eligible resolved market at the given cutoff and
// returns the per-market records plus the aggregate report. Persistence
// is the caller's concern.
func (e *Evaluator) Run(ctx context.Context, cutoffHours float64, runID string) ([]models.BacktestRecord, models.BacktestReport, error) {
	resolved, err := e.source.ResolvedMarkets(ctx)
	if err != nil {
		return nil, models.BacktestReport{}, fmt.Errorf("loading resolved markets: %w", err)
	}

	records := make([]models.BacktestRecord, 0, len(resolved))
	for _, rm := range resolved {
		record, err := e.evaluateMarket(ctx, rm, cutoffHours, runID)
		if err != nil {
			return nil, models.BacktestReport{}, err
		}
		if record != nil {
			records = append(records, *record)
		}
	}

	e.log.WithFields(logrus.Fields{
		"run_id":           runID,
		"cutoff_hours":     cutoffHours,
		"resolved_markets": len(resolved),
		"eligible_markets": len(records),
	}).Info("Backtest evaluation complete")

	return records, Summarize(records, cutoffHours, runID, e.now().UTC()), nil
}

// Sweep runs a backtest at every whole-hour cutoff from 1 to maxHours,
// recording a condensed summary per hour. It stops at the first hour
// with zero eligible markets, after recording that terminal point.
func (e *Evaluator) Sweep(ctx context.Context, maxHours int, runID string) (models.SweepReport, error) {
	resolved, err := e.source.ResolvedMarkets(ctx)
	if err != nil {
		return models.SweepReport{}, fmt.Errorf("loading resolved markets: %w", err)
	}

	var hourly []models.SweepPoint
	for hour := 1; hour <= maxHours; hour++ {
		records := make([]models.BacktestRecord, 0, len(resolved))
		for _, rm := range resolved {
			record, err := e.evaluateMarket(ctx, rm, float64(hour), runID)
			if err != nil {
				return models.SweepReport{}, err
			}
			if record != nil {
				records = append(records, *record)
			}
		}
		if len(records) == 0 {
			hourly = append(hourly, models.SweepPoint{CutoffHours: hour})
			break
		}

		crowdBrier, marketBrier := brierPair(records)
		improvement := marketBrier - crowdBrier
		improvementPct := 0.0
		if marketBrier > 0 {
			improvementPct = improvement / marketBrier * 100
		}
		hourly = append(hourly, models.SweepPoint{
			CutoffHours:         hour,
			TotalMarkets:        len(records),
			CrowdBrier:          crowdBrier,
			MarketBrier:         marketBrier,
			BrierImprovement:    improvement,
			BrierImprovementPct: improvementPct,
			EdgeBuckets:         EdgeBucketStats(records),
		})
	}

	e.log.WithFields(logrus.Fields{
		"run_id":          runID,
		"max_hours":       maxHours,
		"hours_evaluated": len(hourly),
	}).Info("Backtest sweep complete")

	return models.SweepReport{
		RunID:                runID,
		MaxHours:             maxHours,
		EvaluatedAt:          e.now().UTC(),
		TotalResolvedMarkets: len(resolved),
		HoursEvaluated:       len(hourly),
		HourlyResults:        hourly,
	}, nil
}

// evaluateMarket scores one market at a cutoff, or returns nil when the
// market is ineligible: no trade before the cutoff, or a trading window
// shorter than the cutoff itself.
func (e *Evaluator) evaluateMarket(ctx context.Context, rm models.ResolvedMarket, cutoffHours float64, runID string) (*models.BacktestRecord, error) {
	closeTime := rm.CloseTime()
	cutoff := closeTime.Add(-time.Duration(cutoffHours * float64(time.Hour)))
	if now := e.now().UTC(); cutoff.After(now) {
		cutoff = now
	}

	firstTrade, ok, err := e.source.FirstTradeTime(ctx, rm.Market.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("loading first trade for market %s: %w", rm.Market.ID, err)
	}
	if !ok {
		return nil, nil
	}
	if closeTime.Sub(firstTrade) < time.Duration(cutoffHours*float64(time.Hour)) {
		return nil, nil
	}

	snap, err := e.snapshotAt(ctx, rm.Market.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("replaying snapshot for market %s: %w", rm.Market.ID, err)
	}

	return &models.BacktestRecord{
		RunID:         runID,
		MarketID:      rm.Market.ID,
		CutoffTime:    cutoff,
		MarketProb:    snap.MarketProb,
		AggregateProb: snap.AggregateProb,
		Outcome:       rm.Outcome.ResolvedOutcome,
		Confidence:    snap.Confidence,
		Divergence:    snap.Divergence,
	}, nil
}

func brierPair(records []models.BacktestRecord) (crowd, market float64) {
	for _, r := range records {
		y := float64(r.Outcome)
		crowd += (r.AggregateProb - y) * (r.AggregateProb - y)
		market += (r.MarketProb - y) * (r.MarketProb - y)
	}
	n := float64(len(records))
	return crowd / n, market / n
}
