package models

import "time"

// Cohort labels the behavioral archetype assigned to a wallet during
// snapshot aggregation.
type Cohort string

const (
	CohortNoiseChurner        Cohort = "noise_churner"
	CohortTimingSpecialist    Cohort = "timing_specialist"
	CohortInformedAccumulator Cohort = "informed_accumulator"
	CohortWhaleConviction     Cohort = "whale_conviction"
	CohortCategorySpecialist  Cohort = "category_specialist"
	CohortMakerArb            Cohort = "maker_arb"
	CohortGeneralistFlow      Cohort = "generalist_flow"
)

// TopDriver is one wallet's ranked contribution to a snapshot.
// Contribution is effective_weight * (belief - market_prob).
type TopDriver struct {
	Wallet       string  `json:"wallet"`
	Belief       float64 `json:"belief"`
	Confidence   float64 `json:"confidence"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// CohortStat summarizes one cohort's aggregate pull on a snapshot.
type CohortStat struct {
	Cohort          Cohort  `json:"cohort"`
	WalletCount     int     `json:"wallet_count"`
	WeightShare     float64 `json:"weight_share"`
	AvgBelief       float64 `json:"avg_belief"`
	AvgConfidence   float64 `json:"avg_confidence"`
	NetContribution float64 `json:"net_contribution"`
}

// FlipCondition describes, approximately, what additional opposing flow
// would move the aggregate back to the market price. The required
// effective weight assumes maximal conviction (belief at 0 or 1), so it
// is a diagnostic approximation rather than an exact inverse.
type FlipCondition struct {
	Condition               string   `json:"condition"`
	Detail                  string   `json:"detail"`
	RequiredEffectiveWeight *float64 `json:"required_effective_weight,omitempty"`
	LeadCohort              Cohort   `json:"lead_cohort,omitempty"`
	LeadCohortContribution  *float64 `json:"lead_cohort_net_contribution,omitempty"`
}

// ExplanationDiagnostics carries the raw numbers behind a snapshot
// explanation, read verbatim by the external API and alerting layers.
type ExplanationDiagnostics struct {
	Denominator   float64 `json:"denominator"`
	WalletCount   int     `json:"wallet_count"`
	Confidence    float64 `json:"confidence"`
	Disagreement  float64 `json:"disagreement"`
	IntegrityRisk float64 `json:"integrity_risk"`
}

// ExplanationEvidence bundles the cohort and flip-condition evidence
// referenced by the summary line.
type ExplanationEvidence struct {
	TopCohorts     []CohortStat    `json:"top_cohorts,omitempty"`
	FlipConditions []FlipCondition `json:"flip_conditions,omitempty"`
}

// Explanation is the structured payload consumed by downstream
// explanation and alerting collaborators.
type Explanation struct {
	Summary     string                 `json:"summary"`
	Diagnostics ExplanationDiagnostics `json:"diagnostics"`
	Evidence    ExplanationEvidence    `json:"evidence"`
}

// MarketSnapshot is one fused crowd-signal estimate for a market at an
// instant. Snapshots form an append-only time series keyed by
// (market_id, snapshot_time); re-snapshotting the same instant
// overwrites deterministically because the aggregator is a pure
// function of the trade log and weight tables.
type MarketSnapshot struct {
	MarketID             string          `db:"market_id" json:"market_id"`
	SnapshotTime         time.Time       `db:"snapshot_time" json:"snapshot_time"`
	MarketProb           float64         `db:"market_prob" json:"market_prob"`
	AggregateProb        float64         `db:"aggregate_prob" json:"aggregate_prob"`
	Divergence           float64         `db:"divergence" json:"divergence"`
	Confidence           float64         `db:"confidence" json:"confidence"`
	Disagreement         float64         `db:"disagreement" json:"disagreement"`
	ParticipationQuality float64         `db:"participation_quality" json:"participation_quality"`
	IntegrityRisk        float64         `db:"integrity_risk" json:"integrity_risk"`
	ActiveWallets        int             `db:"active_wallets" json:"active_wallets"`
	TopDrivers           []TopDriver     `db:"top_drivers" json:"top_drivers"`
	CohortSummary        []CohortStat    `db:"cohort_summary" json:"cohort_summary"`
	FlipConditions       []FlipCondition `db:"flip_conditions" json:"flip_conditions"`
	Explanation          Explanation     `db:"explanation" json:"explanation"`
}

// ScreenerRow joins a market's latest snapshot with its metadata for
// the divergence screener consumed by the API layer.
type ScreenerRow struct {
	MarketSnapshot
	Question string    `json:"question"`
	Category string    `json:"category"`
	EndTime  time.Time `json:"end_time"`
}
