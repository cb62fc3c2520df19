// Package belief infers a wallet's subjective YES probability for one
// market from its trade history up to a caller-supplied cutoff.
package belief

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/precognition/internal/models"
)

// DefaultHalfLifeHours is the recency half-life applied when the caller
// passes a non-positive half-life.
const DefaultHalfLifeHours = 48.0

const (
	// MinProb and MaxProb bound every probability the core emits.
	MinProb = 0.001
	MaxProb = 0.999

	// signalMassScale saturates total trade weight in the confidence
	// term; sampleSupportTrades saturates the trade count.
	signalMassScale     = 6.0
	sampleSupportTrades = 6.0

	// streakBoostStep grows the per-trade weight for consecutive
	// same-direction trades, capped at streakBoostCap steps (+48%).
	streakBoostStep = 0.12
	streakBoostCap  = 4
)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ImpliedYesPrice converts a traded price on either side into the
// market-implied YES probability, clamped away from 0 and 1.
func ImpliedYesPrice(side models.Side, price float64) float64 {
	if side != models.SideYes {
		price = 1.0 - price
	}
	return Clamp(price, MinProb, MaxProb)
}

// YesDirection returns the sign of a trade's YES-exposure change:
// buying YES or selling NO is +1, the opposite is -1.
func YesDirection(side models.Side, action models.Action) int {
	sign := 1
	if action != models.ActionBuy {
		sign = -1
	}
	if side != models.SideYes {
		sign = -sign
	}
	return sign
}

// Infer reads a wallet's trades for one market and produces its belief
// signal as of the cutoff. Trades after the cutoff are ignored. A
// wallet with no qualifying trades gets the neutral zero-weight signal.
//
// Each trade casts a vote blending its implied YES price toward 1 or 0
// depending on direction, weighted by sqrt(size), exponential recency
// decay, and a consecutive-direction streak boost. Confidence is
// deliberately suppressed for wallets with few or inconsistent trades.
func Infer(trades []models.Trade, asOf time.Time, halfLifeHours float64) models.BeliefSignal {
	if halfLifeHours <= 0 {
		halfLifeHours = DefaultHalfLifeHours
	}
	if len(trades) == 0 {
		return models.NeutralBeliefSignal()
	}

	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var (
		weightedBelief    float64
		totalWeight       float64
		weightedDirection float64
		sizeSum           float64
		flips             int
		streak            int
		considered        int
	)
	prevDirection := 0

	for _, tr := range sorted {
		if tr.Timestamp.After(asOf) {
			continue
		}

		direction := YesDirection(tr.Side, tr.Action)
		yesPx := ImpliedYesPrice(tr.Side, tr.Price)
		vote := yesPx / 2.0
		if direction > 0 {
			vote = (yesPx + 1.0) / 2.0
		}

		ageHours := asOf.Sub(tr.Timestamp).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		recency := math.Exp(-math.Ln2 * ageHours / halfLifeHours)
		sizeWeight := math.Sqrt(math.Max(tr.Size, 1e-9))

		if prevDirection == 0 || prevDirection != direction {
			if prevDirection != 0 {
				flips++
			}
			streak = 1
		} else {
			streak++
		}
		prevDirection = direction

		persistenceBoost := 1.0 + streakBoostStep*float64(min(streak-1, streakBoostCap))
		weight := sizeWeight * recency * persistenceBoost

		weightedBelief += weight * vote
		totalWeight += weight
		weightedDirection += weight * float64(direction)
		sizeSum += tr.Size
		considered++
	}

	if considered == 0 || totalWeight <= 0 {
		return models.NeutralBeliefSignal()
	}

	churn := float64(flips) / math.Max(1, float64(considered-1))
	persistence := 1.0 - churn
	signalMass := totalWeight / (totalWeight + signalMassScale)
	sampleSupport := 0.3 + 0.7*math.Min(1.0, float64(considered)/sampleSupportTrades)

	return models.BeliefSignal{
		Belief:       Clamp(weightedBelief/totalWeight, MinProb, MaxProb),
		Confidence:   Clamp(signalMass*sampleSupport*(0.5+0.5*persistence), 0, 1),
		TradeCount:   considered,
		Churn:        churn,
		Persistence:  persistence,
		AvgSize:      sizeSum / float64(considered),
		NetDirection: weightedDirection / totalWeight,
	}
}
