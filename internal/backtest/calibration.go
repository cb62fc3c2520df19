package backtest

import (
	"math"

	"github.com/yourusername/precognition/internal/belief"
	"github.com/yourusername/precognition/internal/models"
)

const calibrationBinCount = 10

// CalibrationBins buckets predictions into ten fixed-width probability
// bins and reports average predicted vs empirical frequency per bin.
// Empty bins are kept with nil averages so the table always has ten
// rows.
func CalibrationBins(probs []float64, outcomes []int) []models.CalibrationBin {
	type entry struct {
		sumProb    float64
		sumOutcome float64
		count      int
	}
	grouped := make([]entry, calibrationBinCount)
	for i, p := range probs {
		idx := min(calibrationBinCount-1, int(p*calibrationBinCount))
		grouped[idx].sumProb += p
		grouped[idx].sumOutcome += float64(outcomes[i])
		grouped[idx].count++
	}

	bins := make([]models.CalibrationBin, calibrationBinCount)
	for i, e := range grouped {
		bins[i] = models.CalibrationBin{Bin: i, Count: e.count}
		if e.count > 0 {
			avgProb := e.sumProb / float64(e.count)
			empirical := e.sumOutcome / float64(e.count)
			bins[i].AvgProb = &avgProb
			bins[i].Empirical = &empirical
		}
	}
	return bins
}

type edgeBucketSpec struct {
	low, high float64
	name      string
}

// The top bucket's bound exceeds 1 so a full-range divergence lands in
// it rather than falling off the table.
var edgeBucketSpecs = []edgeBucketSpec{
	{0.00, 0.02, "0-2%"},
	{0.02, 0.05, "2-5%"},
	{0.05, 0.10, "5-10%"},
	{0.10, 1.01, "10%+"},
}

// EdgeBucketStats partitions records by absolute divergence and, per
// bucket, reports the crowd signal's average error advantage over the
// market and how often it was strictly closer to the outcome.
func EdgeBucketStats(records []models.BacktestRecord) []models.EdgeBucket {
	out := make([]models.EdgeBucket, 0, len(edgeBucketSpecs))
	for _, spec := range edgeBucketSpecs {
		var (
			count     int
			totalEdge float64
			better    int
		)
		for _, r := range records {
			d := math.Abs(r.Divergence)
			if d < spec.low || d >= spec.high {
				continue
			}
			count++
			crowdErr := math.Abs(r.AggregateProb - float64(r.Outcome))
			marketErr := math.Abs(r.MarketProb - float64(r.Outcome))
			totalEdge += marketErr - crowdErr
			if crowdErr < marketErr {
				better++
			}
		}
		bucket := models.EdgeBucket{Bucket: spec.name, Count: count}
		if count > 0 {
			bucket.AvgEdge = totalEdge / float64(count)
			bucket.AvgPnL = totalEdge / float64(count)
			bucket.WinRate = float64(better) / float64(count)
		}
		out = append(out, bucket)
	}
	return out
}

func logLoss(prob float64, outcome int) float64 {
	p := belief.Clamp(prob, belief.MinProb, belief.MaxProb)
	return -(float64(outcome)*math.Log(p) + float64(1-outcome)*math.Log(1-p))
}
