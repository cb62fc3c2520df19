// Package metrics provides the centralized Prometheus metrics registry
// for the crowd signal pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SnapshotsBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "snapshots_built_total",
		Help:      "Total number of market snapshots built",
	}, []string{"persisted"})
	RecomputeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "recompute_runs_total",
		Help:      "Total number of recompute passes by stage",
	}, []string{"stage"})
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by status",
	}, []string{"status"})
	TradesIngestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "trades_ingested_total",
		Help:      "Total number of trades accepted during ingestion",
	})
	TradesRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "trades_rejected_total",
		Help:      "Total number of trades rejected during validation",
	})
	SchedulerJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "precognition",
		Name:      "scheduler_jobs_total",
		Help:      "Total number of scheduled job executions by job and status",
	}, []string{"job", "status"})
)

// Gauge metrics
var (
	WalletMetricRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "precognition",
		Name:      "wallet_metric_rows",
		Help:      "Number of wallet metric rows written by the last recompute",
	})
	WalletWeightRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "precognition",
		Name:      "wallet_weight_rows",
		Help:      "Number of wallet weight rows written by the last recompute",
	})
	LastBacktestCrowdBrier = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "precognition",
		Name:      "last_backtest_crowd_brier",
		Help:      "Crowd Brier score from the most recent backtest run",
	})
	LastBacktestMarketBrier = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "precognition",
		Name:      "last_backtest_market_brier",
		Help:      "Market Brier score from the most recent backtest run",
	})
)

// Histogram metrics
var (
	SnapshotBuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "precognition",
		Name:      "snapshot_build_duration_seconds",
		Help:      "Duration of single market snapshot builds in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	RecomputeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "precognition",
		Name:      "recompute_duration_seconds",
		Help:      "Duration of recompute passes in seconds by stage",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "precognition",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(SnapshotsBuiltTotal)
		registry.MustRegister(RecomputeRunsTotal)
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(TradesIngestedTotal)
		registry.MustRegister(TradesRejectedTotal)
		registry.MustRegister(SchedulerJobsTotal)

		registry.MustRegister(WalletMetricRows)
		registry.MustRegister(WalletWeightRows)
		registry.MustRegister(LastBacktestCrowdBrier)
		registry.MustRegister(LastBacktestMarketBrier)

		registry.MustRegister(SnapshotBuildDuration)
		registry.MustRegister(RecomputeDuration)
		registry.MustRegister(BacktestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSnapshotBuilt records a completed snapshot build.
func RecordSnapshotBuilt(persisted bool, durationSeconds float64) {
	label := "false"
	if persisted {
		label = "true"
	}
	SnapshotsBuiltTotal.WithLabelValues(label).Inc()
	SnapshotBuildDuration.Observe(durationSeconds)
}

// RecordRecomputePass records a metrics or weights recompute pass.
func RecordRecomputePass(stage string, rowsWritten int, durationSeconds float64) {
	RecomputeRunsTotal.WithLabelValues(stage).Inc()
	RecomputeDuration.WithLabelValues(stage).Observe(durationSeconds)
	switch stage {
	case "wallet_metrics":
		WalletMetricRows.Set(float64(rowsWritten))
	case "wallet_weights":
		WalletWeightRows.Set(float64(rowsWritten))
	}
}

// RecordBacktestRun records a completed or failed backtest run.
func RecordBacktestRun(status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordBacktestBriers records the headline scores of the latest run.
func RecordBacktestBriers(crowdBrier, marketBrier float64) {
	LastBacktestCrowdBrier.Set(crowdBrier)
	LastBacktestMarketBrier.Set(marketBrier)
}

// RecordIngestion records an ingestion batch outcome.
func RecordIngestion(inserted, rejected int) {
	TradesIngestedTotal.Add(float64(inserted))
	TradesRejectedTotal.Add(float64(rejected))
}

// RecordSchedulerJob records a scheduled job execution outcome.
func RecordSchedulerJob(job, status string) {
	SchedulerJobsTotal.WithLabelValues(job, status).Inc()
}
