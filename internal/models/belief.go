package models

// BeliefSignal is a wallet's inferred stance on one market at one
// instant. It is ephemeral: recomputed on demand from the trade log and
// never persisted or cached, because recency weighting depends on the
// caller-supplied as-of time.
type BeliefSignal struct {
	Belief       float64 `json:"belief"`
	Confidence   float64 `json:"confidence"`
	TradeCount   int     `json:"trade_count"`
	Churn        float64 `json:"churn"`
	Persistence  float64 `json:"persistence"`
	AvgSize      float64 `json:"avg_size"`
	NetDirection float64 `json:"net_direction"`
}

// NeutralBeliefSignal is the zero-information signal returned when a
// wallet has no trades before the cutoff.
func NeutralBeliefSignal() BeliefSignal {
	return BeliefSignal{
		Belief:       0.5,
		Confidence:   0,
		TradeCount:   0,
		Churn:        1,
		Persistence:  0,
		AvgSize:      0,
		NetDirection: 0,
	}
}
