package snapshot

import (
	"math"
	"sort"

	"github.com/yourusername/precognition/internal/models"
)

// classifyCohort assigns a wallet its behavioral archetype. The rules
// are an ordered cascade: the first match wins. Wallets without a
// global metrics profile fall back to live-signal heuristics.
func classifyCohort(profile *models.WalletMetric, churn, confidence float64) models.Cohort {
	if profile == nil {
		if churn > 0.65 {
			return models.CohortNoiseChurner
		}
		if confidence > 0.55 {
			return models.CohortInformedAccumulator
		}
		return models.CohortGeneralistFlow
	}

	switch {
	case profile.Churn > 0.65:
		return models.CohortNoiseChurner
	case profile.TimingEdge > 0.22 && profile.Churn < 0.45 && profile.SampleMarkets >= 5:
		return models.CohortTimingSpecialist
	case profile.Persistence > 0.72 && profile.Specialization > 0.45 && profile.SampleMarkets >= 6:
		return models.CohortInformedAccumulator
	case profile.AvgTradeSize > 200 && profile.Churn < 0.5:
		return models.CohortWhaleConviction
	case profile.Brier < 0.20 && profile.Specialization > 0.40:
		return models.CohortCategorySpecialist
	case profile.Churn < 0.35 && math.Abs(profile.ROI) < 0.04:
		return models.CohortMakerArb
	default:
		return models.CohortGeneralistFlow
	}
}

type cohortAccum struct {
	walletCount     int
	effectiveWeight float64
	beliefMass      float64
	confidenceMass  float64
	netContribution float64
}

// summarizeCohorts groups contributors by cohort and ranks the cohorts
// by absolute net pull on the aggregate, keeping the top eight.
func summarizeCohorts(
	signals []walletSignal,
	profiles map[string]models.WalletMetric,
	marketProb, denominator float64,
) []models.CohortStat {
	accums := make(map[models.Cohort]*cohortAccum)
	for _, sig := range signals {
		var profile *models.WalletMetric
		if p, ok := profiles[sig.wallet]; ok {
			profile = &p
		}
		cohort := classifyCohort(profile, sig.churn, sig.confidence)
		acc := accums[cohort]
		if acc == nil {
			acc = &cohortAccum{}
			accums[cohort] = acc
		}
		acc.walletCount++
		acc.effectiveWeight += sig.effectiveWeight
		acc.beliefMass += sig.effectiveWeight * sig.belief
		acc.confidenceMass += sig.effectiveWeight * sig.confidence
		acc.netContribution += sig.effectiveWeight * (sig.belief - marketProb)
	}

	stats := make([]models.CohortStat, 0, len(accums))
	for cohort, acc := range accums {
		ew := acc.effectiveWeight
		stats = append(stats, models.CohortStat{
			Cohort:          cohort,
			WalletCount:     acc.walletCount,
			WeightShare:     round6(ew / math.Max(denominator, 1e-9)),
			AvgBelief:       round6(acc.beliefMass / math.Max(ew, 1e-9)),
			AvgConfidence:   round6(acc.confidenceMass / math.Max(ew, 1e-9)),
			NetContribution: round6(acc.netContribution),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		ai, aj := math.Abs(stats[i].NetContribution), math.Abs(stats[j].NetContribution)
		if ai != aj {
			return ai > aj
		}
		return stats[i].Cohort < stats[j].Cohort
	})
	if len(stats) > maxCohorts {
		stats = stats[:maxCohorts]
	}
	return stats
}
