// Package snapshot fuses per-wallet belief signals into one
// trust-weighted crowd probability for a market at an instant, with the
// diagnostics and explanation payload downstream consumers read.
package snapshot

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/precognition/internal/belief"
	"github.com/yourusername/precognition/internal/models"
	"github.com/yourusername/precognition/internal/weights"
)

const (
	// aggregateMassScale saturates total effective weight in the
	// snapshot confidence term.
	aggregateMassScale = 10.0
	// fullParticipationN is the effective wallet count treated as full
	// participation quality.
	fullParticipationN = 12.0
	// walletCountSaturation is the contributor count treated as a full
	// sample; below thinSampleN the confidence takes a flat haircut.
	walletCountSaturation = 15.0
	thinSampleN           = 3
	thinSampleFactor      = 0.60

	maxTopDrivers = 8
	maxCohorts    = 8
)

// Input carries everything Build needs. Trades is the market's full
// trade log; Weights and Profiles are read-only lookups. Build never
// touches a store, so replaying it at a historical time is just a
// matter of passing older inputs.
type Input struct {
	Market        models.Market
	SnapshotTime  time.Time
	Trades        []models.Trade
	Weights       weights.Source
	Profiles      map[string]models.WalletMetric
	HalfLifeHours float64
}

// walletSignal is one contributing wallet after trust adjustment.
type walletSignal struct {
	wallet          string
	belief          float64
	confidence      float64
	trustWeight     float64
	effectiveWeight float64
	churn           float64
}

// Build computes a market snapshot. It is a pure function of its input:
// identical inputs produce identical snapshots, including driver and
// cohort ordering.
func Build(in Input) models.MarketSnapshot {
	marketProb := marketProbAt(in.Trades, in.SnapshotTime)
	category := in.Market.NormalizedCategory()
	horizon := models.HorizonBucket(in.Market.EndTime, in.SnapshotTime)

	signals := contributingSignals(in, category, horizon)
	if len(signals) == 0 {
		return zeroSignalSnapshot(in.Market.ID, in.SnapshotTime, marketProb)
	}

	denominator := 0.0
	for _, sig := range signals {
		denominator += sig.effectiveWeight
	}
	weightedBelief := 0.0
	for _, sig := range signals {
		weightedBelief += sig.effectiveWeight * sig.belief
	}
	aggregateProb := belief.Clamp(weightedBelief/math.Max(denominator, 1e-9), belief.MinProb, belief.MaxProb)

	var (
		variance   float64
		herfindahl float64
		avgChurn   float64
	)
	for _, sig := range signals {
		share := sig.effectiveWeight / denominator
		dev := sig.belief - aggregateProb
		variance += share * dev * dev
		herfindahl += share * share
		avgChurn += share * sig.churn
	}
	disagreement := math.Sqrt(variance)
	effectiveN := 1.0 / math.Max(herfindahl, 1e-9)
	participationQuality := belief.Clamp(effectiveN/fullParticipationN, 0, 1)
	integrityRisk := belief.Clamp(0.55*herfindahl+0.45*avgChurn, 0, 1)

	signalSupport := denominator / (denominator + aggregateMassScale)
	agreement := math.Max(0, 1.0-disagreement)
	countFactor := math.Min(1.0, float64(len(signals))/walletCountSaturation)
	confidence := belief.Clamp(signalSupport*agreement*countFactor*(1.0-0.70*integrityRisk), 0, 1)
	if len(signals) < thinSampleN {
		confidence *= thinSampleFactor
	}

	divergence := aggregateProb - marketProb
	topDrivers := rankTopDrivers(signals, marketProb)
	cohorts := summarizeCohorts(signals, in.Profiles, marketProb, denominator)
	flips := buildFlipConditions(marketProb, aggregateProb, denominator, divergence, cohorts)
	explanation := buildExplanation(
		aggregateProb, marketProb, divergence, denominator,
		confidence, disagreement, integrityRisk, len(signals), cohorts, flips,
	)

	return models.MarketSnapshot{
		MarketID:             in.Market.ID,
		SnapshotTime:         in.SnapshotTime,
		MarketProb:           marketProb,
		AggregateProb:        aggregateProb,
		Divergence:           divergence,
		Confidence:           confidence,
		Disagreement:         disagreement,
		ParticipationQuality: participationQuality,
		IntegrityRisk:        integrityRisk,
		ActiveWallets:        len(signals),
		TopDrivers:           topDrivers,
		CohortSummary:        cohorts,
		FlipConditions:       flips,
		Explanation:          explanation,
	}
}

// contributingSignals infers each wallet's belief at the snapshot time
// and applies the trust adjustments. Wallets with zero confidence or
// zero effective weight drop out. Iteration is over sorted wallet names
// so the output order never depends on map traversal.
func contributingSignals(in Input, category, horizon string) []walletSignal {
	byWallet := make(map[string][]models.Trade)
	for _, tr := range in.Trades {
		byWallet[tr.Wallet] = append(byWallet[tr.Wallet], tr)
	}
	wallets := make([]string, 0, len(byWallet))
	for w := range byWallet {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)

	signals := make([]walletSignal, 0, len(wallets))
	for _, wallet := range wallets {
		sig := belief.Infer(byWallet[wallet], in.SnapshotTime, in.HalfLifeHours)
		if sig.Confidence <= 0 {
			continue
		}
		resolved := weights.Resolve(in.Weights, wallet, category, horizon)
		antiNoise := math.Max(0.40, 1.0-0.55*sig.Churn) * (0.85 + 0.30*sig.Persistence)
		uncertaintyDiscount := math.Max(0.40, 1.0-0.30*resolved.Uncertainty)
		trustWeight := resolved.Weight * antiNoise * uncertaintyDiscount
		effectiveWeight := trustWeight * sig.Confidence
		if effectiveWeight <= 0 {
			continue
		}
		signals = append(signals, walletSignal{
			wallet:          wallet,
			belief:          sig.Belief,
			confidence:      sig.Confidence,
			trustWeight:     trustWeight,
			effectiveWeight: effectiveWeight,
			churn:           sig.Churn,
		})
	}
	return signals
}

// marketProbAt returns the implied YES price of the last trade at or
// before t, or 0.5 for an untraded market.
func marketProbAt(trades []models.Trade, t time.Time) float64 {
	var last *models.Trade
	for i := range trades {
		tr := &trades[i]
		if tr.Timestamp.After(t) {
			continue
		}
		if last == nil || !tr.Timestamp.Before(last.Timestamp) {
			last = tr
		}
	}
	if last == nil {
		return 0.5
	}
	return belief.ImpliedYesPrice(last.Side, last.Price)
}

// rankTopDrivers orders contributors by absolute pull away from the
// market price, wallet name breaking ties.
func rankTopDrivers(signals []walletSignal, marketProb float64) []models.TopDriver {
	drivers := make([]models.TopDriver, 0, len(signals))
	for _, sig := range signals {
		drivers = append(drivers, models.TopDriver{
			Wallet:       sig.wallet,
			Belief:       round6(sig.belief),
			Confidence:   round6(sig.confidence),
			Weight:       round6(sig.trustWeight),
			Contribution: round6(sig.effectiveWeight * (sig.belief - marketProb)),
		})
	}
	sort.SliceStable(drivers, func(i, j int) bool {
		ai, aj := math.Abs(drivers[i].Contribution), math.Abs(drivers[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return drivers[i].Wallet < drivers[j].Wallet
	})
	if len(drivers) > maxTopDrivers {
		drivers = drivers[:maxTopDrivers]
	}
	return drivers
}

func zeroSignalSnapshot(marketID string, t time.Time, marketProb float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		MarketID:             marketID,
		SnapshotTime:         t,
		MarketProb:           marketProb,
		AggregateProb:        marketProb,
		Divergence:           0,
		Confidence:           0,
		Disagreement:         0,
		ParticipationQuality: 0,
		IntegrityRisk:        1.0,
		ActiveWallets:        0,
		TopDrivers:           []models.TopDriver{},
		CohortSummary:        []models.CohortStat{},
		FlipConditions:       []models.FlipCondition{},
		Explanation: models.Explanation{
			Summary: "No qualifying trusted wallets with confidence above zero for this snapshot.",
		},
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
