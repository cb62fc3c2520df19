package snapshot

import (
	"fmt"

	"github.com/yourusername/precognition/internal/models"
)

// buildExplanation assembles the structured payload read by the API and
// alerting layers: a one-line summary plus the raw diagnostics and the
// cohort/flip evidence behind it.
func buildExplanation(
	aggregateProb, marketProb, divergence, denominator float64,
	confidence, disagreement, integrityRisk float64,
	walletCount int,
	cohorts []models.CohortStat,
	flips []models.FlipCondition,
) models.Explanation {
	directional := "neutral"
	if divergence > 0 {
		directional = "YES-leaning"
	} else if divergence < 0 {
		directional = "NO-leaning"
	}

	return models.Explanation{
		Summary: fmt.Sprintf(
			"Crowd signal is %.3f vs market %.3f (%s), confidence %.2f, disagreement %.3f, integrity risk %.3f.",
			aggregateProb, marketProb, directional, confidence, disagreement, integrityRisk,
		),
		Diagnostics: models.ExplanationDiagnostics{
			Denominator:   round6(denominator),
			WalletCount:   walletCount,
			Confidence:    round6(confidence),
			Disagreement:  round6(disagreement),
			IntegrityRisk: round6(integrityRisk),
		},
		Evidence: models.ExplanationEvidence{
			TopCohorts:     cohorts,
			FlipConditions: flips,
		},
	}
}
