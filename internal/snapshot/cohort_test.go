package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/precognition/internal/models"
)

func profile(mut func(*models.WalletMetric)) *models.WalletMetric {
	// A baseline that matches none of the cascade rules.
	p := &models.WalletMetric{
		SampleMarkets: 10,
		Brier:         0.25,
		ROI:           0.10,
		AvgTradeSize:  50,
		Churn:         0.50,
		Persistence:   0.50,
	}
	if mut != nil {
		mut(p)
	}
	return p
}

func TestClassifyCohortCascade(t *testing.T) {
	tests := []struct {
		name string
		p    *models.WalletMetric
		want models.Cohort
	}{
		{
			"high churn wins first",
			profile(func(p *models.WalletMetric) {
				p.Churn = 0.7
				p.TimingEdge = 0.5 // would match timing_specialist later
			}),
			models.CohortNoiseChurner,
		},
		{
			"timing specialist",
			profile(func(p *models.WalletMetric) {
				p.TimingEdge = 0.3
				p.Churn = 0.2
			}),
			models.CohortTimingSpecialist,
		},
		{
			"informed accumulator",
			profile(func(p *models.WalletMetric) {
				p.Persistence = 0.8
				p.Specialization = 0.5
			}),
			models.CohortInformedAccumulator,
		},
		{
			"whale conviction",
			profile(func(p *models.WalletMetric) {
				p.AvgTradeSize = 500
				p.Churn = 0.3
			}),
			models.CohortWhaleConviction,
		},
		{
			"category specialist",
			profile(func(p *models.WalletMetric) {
				p.Brier = 0.1
				p.Specialization = 0.5
			}),
			models.CohortCategorySpecialist,
		},
		{
			"maker arb",
			profile(func(p *models.WalletMetric) {
				p.Churn = 0.2
				p.ROI = 0.01
			}),
			models.CohortMakerArb,
		},
		{"generalist fallback", profile(nil), models.CohortGeneralistFlow},
		{
			"thin sample blocks timing specialist",
			profile(func(p *models.WalletMetric) {
				p.TimingEdge = 0.3
				p.Churn = 0.2
				p.SampleMarkets = 4
			}),
			models.CohortGeneralistFlow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCohort(tt.p, 0.2, 0.5))
		})
	}
}

func TestClassifyCohortWithoutProfile(t *testing.T) {
	assert.Equal(t, models.CohortNoiseChurner, classifyCohort(nil, 0.7, 0.9))
	assert.Equal(t, models.CohortInformedAccumulator, classifyCohort(nil, 0.2, 0.6))
	assert.Equal(t, models.CohortGeneralistFlow, classifyCohort(nil, 0.2, 0.3))
}

func TestSummarizeCohortsAggregatesAndRanks(t *testing.T) {
	signals := []walletSignal{
		{wallet: "a", belief: 0.8, confidence: 0.5, effectiveWeight: 2.0, churn: 0.1},
		{wallet: "b", belief: 0.7, confidence: 0.4, effectiveWeight: 1.0, churn: 0.1},
		{wallet: "noisy", belief: 0.2, confidence: 0.2, effectiveWeight: 0.5, churn: 0.9},
	}
	marketProb := 0.5
	denominator := 3.5

	stats := summarizeCohorts(signals, nil, marketProb, denominator)
	require.Len(t, stats, 2)

	// a and b fall back to generalist_flow (no profile, modest
	// confidence); the churner is classified from its live churn.
	lead := stats[0]
	assert.Equal(t, models.CohortGeneralistFlow, lead.Cohort)
	assert.Equal(t, 2, lead.WalletCount)
	assert.InDelta(t, (2.0*0.3+1.0*0.2), lead.NetContribution, 1e-6)
	assert.InDelta(t, 3.0/3.5, lead.WeightShare, 1e-6)
	assert.InDelta(t, (2.0*0.8+1.0*0.7)/3.0, lead.AvgBelief, 1e-6)

	churner := stats[1]
	assert.Equal(t, models.CohortNoiseChurner, churner.Cohort)
	assert.InDelta(t, 0.5*(0.2-0.5), churner.NetContribution, 1e-6)
}

func TestFlipConditionsAligned(t *testing.T) {
	flips := buildFlipConditions(0.5, 0.5, 3.0, 0, nil)
	require.Len(t, flips, 1)
	assert.Equal(t, "signal_aligned_with_market", flips[0].Condition)
}

func TestFlipConditionsYesLeaning(t *testing.T) {
	// Aggregate 0.6 above market 0.4 with denominator 2: opposing
	// NO-flow needed = 2 * 0.2 / 0.4 = 1.0.
	cohorts := []models.CohortStat{{Cohort: models.CohortWhaleConviction, NetContribution: 0.4}}
	flips := buildFlipConditions(0.4, 0.6, 2.0, 0.2, cohorts)
	require.Len(t, flips, 2)

	assert.Equal(t, "trusted_no_flow_needed", flips[0].Condition)
	require.NotNil(t, flips[0].RequiredEffectiveWeight)
	assert.InDelta(t, 1.0, *flips[0].RequiredEffectiveWeight, 1e-9)

	assert.Equal(t, "lead_cohort_reversal", flips[1].Condition)
	assert.Equal(t, models.CohortWhaleConviction, flips[1].LeadCohort)
	require.NotNil(t, flips[1].LeadCohortContribution)
	assert.InDelta(t, 0.4, *flips[1].LeadCohortContribution, 1e-12)
}

func TestFlipConditionsNoLeaning(t *testing.T) {
	// Aggregate 0.3 below market 0.5: YES-flow needed
	// = 2 * 0.2 / 0.5 = 0.8.
	flips := buildFlipConditions(0.5, 0.3, 2.0, -0.2, nil)
	require.Len(t, flips, 1)
	assert.Equal(t, "trusted_yes_flow_needed", flips[0].Condition)
	assert.InDelta(t, 0.8, *flips[0].RequiredEffectiveWeight, 1e-9)
}
