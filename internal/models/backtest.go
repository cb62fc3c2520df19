package models

import "time"

// BacktestRecord scores one market's replayed snapshot at a cutoff
// before resolution. Rows are keyed by (run_id, market_id) and replaced
// wholesale when a run id is reused.
type BacktestRecord struct {
	RunID         string    `db:"run_id" json:"run_id"`
	MarketID      string    `db:"market_id" json:"market_id"`
	CutoffTime    time.Time `db:"cutoff_time" json:"cutoff_time"`
	MarketProb    float64   `db:"market_prob" json:"market_prob"`
	AggregateProb float64   `db:"aggregate_prob" json:"aggregate_prob"`
	Outcome       int       `db:"outcome" json:"outcome"`
	Confidence    float64   `db:"confidence" json:"confidence"`
	Divergence    float64   `db:"divergence" json:"divergence"`
}

// CalibrationBin is one of ten fixed-width probability bins. AvgProb
// and Empirical are nil for empty bins.
type CalibrationBin struct {
	Bin       int      `json:"bin"`
	Count     int      `json:"count"`
	AvgProb   *float64 `json:"avg_prob"`
	Empirical *float64 `json:"empirical"`
}

// EdgeBucket partitions backtest records by absolute divergence and
// reports how often the crowd signal beat the market within the bucket.
type EdgeBucket struct {
	Bucket  string  `json:"bucket"`
	Count   int     `json:"count"`
	AvgEdge float64 `json:"avg_edge"`
	AvgPnL  float64 `json:"avg_pnl"`
	WinRate float64 `json:"win_rate"`
}

// Winner labels for divergence cases.
const (
	WinnerCrowd  = "crowd"
	WinnerMarket = "market"
	WinnerTie    = "tie"
)

// DivergenceCase annotates a high-divergence backtest record with each
// side's absolute error and which side won.
type DivergenceCase struct {
	BacktestRecord
	CrowdAbsError  float64 `json:"crowd_abs_error"`
	MarketAbsError float64 `json:"market_abs_error"`
	Winner         string  `json:"winner"`
}

// SeriesPair holds one statistic for the market series and the crowd
// series side by side.
type SeriesPair struct {
	Market float64 `json:"market"`
	Crowd  float64 `json:"crowd"`
}

// CalibrationTables holds the ten-bin calibration table for each series.
type CalibrationTables struct {
	Market []CalibrationBin `json:"market"`
	Crowd  []CalibrationBin `json:"crowd"`
}

// BacktestReport is the aggregate result of one backtest run,
// write-once per run id (re-running replaces it).
type BacktestReport struct {
	RunID               string            `json:"run_id"`
	CutoffHours         float64           `json:"cutoff_hours"`
	EvaluatedAt         time.Time         `json:"evaluated_at"`
	TotalMarkets        int               `json:"total_markets"`
	CrowdBrier          float64           `json:"crowd_brier"`
	MarketBrier         float64           `json:"market_brier"`
	BrierImprovement    float64           `json:"brier_improvement"`
	LogLoss             SeriesPair        `json:"log_loss"`
	Calibration         CalibrationTables `json:"calibration"`
	EdgeBuckets         []EdgeBucket      `json:"edge_buckets"`
	TopDivergenceCases  []DivergenceCase  `json:"top_divergence_cases"`
	Note                string            `json:"note,omitempty"`
}

// SweepPoint is the condensed per-hour result of a backtest sweep.
type SweepPoint struct {
	CutoffHours         int          `json:"cutoff_hours"`
	TotalMarkets        int          `json:"total_markets"`
	CrowdBrier          float64      `json:"crowd_brier,omitempty"`
	MarketBrier         float64      `json:"market_brier,omitempty"`
	BrierImprovement    float64      `json:"brier_improvement,omitempty"`
	BrierImprovementPct float64      `json:"brier_improvement_pct,omitempty"`
	EdgeBuckets         []EdgeBucket `json:"edge_buckets,omitempty"`
}

// SweepReport is the per-hour Brier-improvement curve answering how far
// before resolution the crowd signal retains predictive edge.
type SweepReport struct {
	RunID                string       `json:"run_id"`
	MaxHours             int          `json:"max_hours"`
	EvaluatedAt          time.Time    `json:"evaluated_at"`
	TotalResolvedMarkets int          `json:"total_resolved_markets"`
	HoursEvaluated       int          `json:"hours_evaluated"`
	HourlyResults        []SweepPoint `json:"hourly_results"`
}
