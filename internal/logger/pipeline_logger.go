// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for the recompute and
// snapshot pipeline, so its events are filterable by component.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogRecompute logs a metrics or weights recompute pass.
func (pl *PipelineLogger) LogRecompute(stage string, rowsWritten int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"stage":        stage,
		"rows_written": rowsWritten,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Recompute pass complete")
}

// LogSnapshot logs a single market snapshot build.
func (pl *PipelineLogger) LogSnapshot(marketID string, snapshotTime time.Time, aggregateProb, divergence, confidence float64, activeWallets int, persisted bool) {
	pl.WithFields(logrus.Fields{
		"market_id":      marketID,
		"snapshot_time":  snapshotTime.Unix(),
		"aggregate_prob": aggregateProb,
		"divergence":     divergence,
		"confidence":     confidence,
		"active_wallets": activeWallets,
		"persisted":      persisted,
	}).Debug("Market snapshot built")
}

// LogSnapshotBatch logs a batch snapshot pass over many markets.
func (pl *PipelineLogger) LogSnapshotBatch(marketCount int, includeResolved bool, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"market_count":     marketCount,
		"include_resolved": includeResolved,
		"duration_ms":      duration.Milliseconds(),
	}).Info("Snapshot batch complete")
}

// LogBacktestRun logs a completed backtest run.
func (pl *PipelineLogger) LogBacktestRun(runID string, cutoffHours float64, totalMarkets int, crowdBrier, marketBrier float64) {
	pl.WithFields(logrus.Fields{
		"run_id":        runID,
		"cutoff_hours":  cutoffHours,
		"total_markets": totalMarkets,
		"crowd_brier":   crowdBrier,
		"market_brier":  marketBrier,
	}).Info("Backtest run complete")
}

// LogIngestion logs a trade ingestion batch.
func (pl *PipelineLogger) LogIngestion(received, inserted, rejected int) {
	pl.WithFields(logrus.Fields{
		"received": received,
		"inserted": inserted,
		"rejected": rejected,
	}).Info("Trade batch ingested")
}
