package snapshot

import (
	"fmt"
	"math"

	"github.com/yourusername/precognition/internal/models"
)

// Flip condition labels.
const (
	conditionAligned        = "signal_aligned_with_market"
	conditionNoFlowNeeded   = "trusted_no_flow_needed"
	conditionYesFlowNeeded  = "trusted_yes_flow_needed"
	conditionCohortReversal = "lead_cohort_reversal"
)

// buildFlipConditions estimates what opposing flow would push the
// aggregate back to the market price. The required weight assumes a new
// contributor at maximal conviction (belief pinned to 0 or 1), so it is
// a lower-bound diagnostic rather than an exact inverse.
func buildFlipConditions(
	marketProb, aggregateProb, denominator, divergence float64,
	cohorts []models.CohortStat,
) []models.FlipCondition {
	if math.Abs(divergence) < 1e-12 || denominator <= 0 {
		return []models.FlipCondition{{
			Condition: conditionAligned,
			Detail:    "Crowd signal is currently aligned with market implied probability.",
		}}
	}

	var conditions []models.FlipCondition
	if divergence > 0 {
		if marketProb > 0 {
			needed := math.Max(0, denominator*(aggregateProb-marketProb)/marketProb)
			conditions = append(conditions, models.FlipCondition{
				Condition: conditionNoFlowNeeded,
				Detail: fmt.Sprintf(
					"Approximately %.3f additional effective NO-side weight at extreme conviction is needed to cross below market.",
					needed,
				),
				RequiredEffectiveWeight: &needed,
			})
		}
	} else if marketProb < 1 {
		needed := math.Max(0, denominator*(marketProb-aggregateProb)/(1.0-marketProb))
		conditions = append(conditions, models.FlipCondition{
			Condition: conditionYesFlowNeeded,
			Detail: fmt.Sprintf(
				"Approximately %.3f additional effective YES-side weight at extreme conviction is needed to cross above market.",
				needed,
			),
			RequiredEffectiveWeight: &needed,
		})
	}

	if len(cohorts) > 0 {
		lead := cohorts[0]
		contribution := lead.NetContribution
		conditions = append(conditions, models.FlipCondition{
			Condition: conditionCohortReversal,
			Detail: fmt.Sprintf(
				"If leading cohort '%s' reverses direction or halves conviction, the crowd-signal divergence would compress materially.",
				lead.Cohort,
			),
			LeadCohort:             lead.Cohort,
			LeadCohortContribution: &contribution,
		})
	}
	return conditions
}
