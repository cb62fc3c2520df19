package models

import "time"

// Wildcard key segment used when a metric or weight aggregates across
// every category or every horizon bucket.
const All = "ALL"

// Horizon buckets partition how long a market traded before closing.
const (
	HorizonIntraday = "intraday"
	HorizonShort    = "short"
	HorizonMedium   = "medium"
	HorizonLong     = "long"
)

// HorizonBucket classifies the distance between a reference instant and
// the market end time into one of the fixed horizon buckets.
func HorizonBucket(endTime, refTime time.Time) string {
	deltaHours := endTime.Sub(refTime).Hours()
	switch {
	case deltaHours <= 24:
		return HorizonIntraday
	case deltaHours <= 7*24:
		return HorizonShort
	case deltaHours <= 30*24:
		return HorizonMedium
	default:
		return HorizonLong
	}
}

// MetricKey identifies one wallet grouping. Category and Horizon may be
// the literal "ALL" wildcard.
type MetricKey struct {
	Wallet   string `db:"wallet" json:"wallet"`
	Category string `db:"category" json:"category"`
	Horizon  string `db:"horizon_bucket" json:"horizon_bucket"`
}

// WalletMetric aggregates a wallet's scored performance over resolved
// markets for one (wallet, category, horizon) grouping. The table is
// cleared and rewritten in full on every recompute pass.
type WalletMetric struct {
	MetricKey
	SampleMarkets    int       `db:"sample_markets" json:"sample_markets"`
	SampleTrades     int       `db:"sample_trades" json:"sample_trades"`
	Brier            float64   `db:"brier" json:"brier"`
	LogLoss          float64   `db:"log_loss" json:"log_loss"`
	ROI              float64   `db:"roi" json:"roi"`
	CalibrationError float64   `db:"calibration_error" json:"calibration_error"`
	AvgTradeSize     float64   `db:"avg_trade_size" json:"avg_trade_size"`
	Churn            float64   `db:"churn" json:"churn"`
	Persistence      float64   `db:"persistence" json:"persistence"`
	Specialization   float64   `db:"specialization" json:"specialization"`
	TimingEdge       float64   `db:"timing_edge" json:"timing_edge"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// WalletWeight is the shrinkage-adjusted trust multiplier derived from a
// WalletMetric row. Weight is bounded to [0.10, 4.00] and uncertainty to
// [0, 1]; support is the number of sample markets backing the estimate.
type WalletWeight struct {
	MetricKey
	Weight      float64   `db:"weight" json:"weight"`
	Uncertainty float64   `db:"uncertainty" json:"uncertainty"`
	Support     int       `db:"support" json:"support"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
