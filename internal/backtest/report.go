package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/precognition/internal/models"
)

const maxDivergenceCases = 8

// Summarize condenses a run's records into the aggregate report. An
// empty record set yields a report carrying only the explanatory note.
func Summarize(records []models.BacktestRecord, cutoffHours float64, runID string, evaluatedAt time.Time) models.BacktestReport {
	report := models.BacktestReport{
		RunID:        runID,
		CutoffHours:  cutoffHours,
		EvaluatedAt:  evaluatedAt,
		TotalMarkets: len(records),
	}
	if len(records) == 0 {
		report.Note = "No eligible resolved markets with data before cutoff."
		return report
	}

	crowdProbs := make([]float64, len(records))
	marketProbs := make([]float64, len(records))
	outcomes := make([]int, len(records))
	var crowdLL, marketLL float64
	for i, r := range records {
		crowdProbs[i] = r.AggregateProb
		marketProbs[i] = r.MarketProb
		outcomes[i] = r.Outcome
		crowdLL += logLoss(r.AggregateProb, r.Outcome)
		marketLL += logLoss(r.MarketProb, r.Outcome)
	}
	n := float64(len(records))

	crowdBrier, marketBrier := brierPair(records)
	report.CrowdBrier = crowdBrier
	report.MarketBrier = marketBrier
	report.BrierImprovement = marketBrier - crowdBrier
	report.LogLoss = models.SeriesPair{Market: marketLL / n, Crowd: crowdLL / n}
	report.Calibration = models.CalibrationTables{
		Market: CalibrationBins(marketProbs, outcomes),
		Crowd:  CalibrationBins(crowdProbs, outcomes),
	}
	report.EdgeBuckets = EdgeBucketStats(records)
	report.TopDivergenceCases = topDivergenceCases(records)
	return report
}

// topDivergenceCases ranks records by absolute divergence and annotates
// the top eight with which series was closer to the outcome.
func topDivergenceCases(records []models.BacktestRecord) []models.DivergenceCase {
	ranked := make([]models.BacktestRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := math.Abs(ranked[i].Divergence), math.Abs(ranked[j].Divergence)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].MarketID < ranked[j].MarketID
	})
	if len(ranked) > maxDivergenceCases {
		ranked = ranked[:maxDivergenceCases]
	}

	cases := make([]models.DivergenceCase, 0, len(ranked))
	for _, r := range ranked {
		crowdErr := math.Abs(r.AggregateProb - float64(r.Outcome))
		marketErr := math.Abs(r.MarketProb - float64(r.Outcome))
		winner := models.WinnerTie
		if crowdErr < marketErr {
			winner = models.WinnerCrowd
		} else if crowdErr > marketErr {
			winner = models.WinnerMarket
		}
		cases = append(cases, models.DivergenceCase{
			BacktestRecord: r,
			CrowdAbsError:  crowdErr,
			MarketAbsError: marketErr,
			Winner:         winner,
		})
	}
	return cases
}
