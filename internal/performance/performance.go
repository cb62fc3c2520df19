// Package performance scores every wallet's historical accuracy against
// resolved market outcomes and aggregates the results into the wallet
// metrics table groupings.
package performance

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/precognition/internal/belief"
	"github.com/yourusername/precognition/internal/models"
)

// timingNoiseThreshold is the minimum absolute late-market price move a
// trade must anticipate before it counts toward timing edge.
const timingNoiseThreshold = 0.005

type metricAccum struct {
	marketCount   int
	tradeCount    int
	sumBrier      float64
	sumLogLoss    float64
	sumBelief     float64
	sumOutcome    float64
	sumTradeSize  float64
	sumChurn      float64
	sumPersist    float64
	sumTimingEdge float64
	sumPnL        float64
	sumCost       float64
}

// Accumulator folds resolved markets one at a time so a recompute pass
// can stream the trade log instead of materializing it.
type Accumulator struct {
	halfLifeHours  float64
	accums         map[models.MetricKey]*metricAccum
	categoryCounts map[string]map[string]int
}

// NewAccumulator creates an empty accumulator using the given belief
// recency half-life.
func NewAccumulator(halfLifeHours float64) *Accumulator {
	return &Accumulator{
		halfLifeHours:  halfLifeHours,
		accums:         make(map[models.MetricKey]*metricAccum),
		categoryCounts: make(map[string]map[string]int),
	}
}

// Compute scores all groups in one call. Convenience wrapper around the
// streaming accumulator.
func Compute(groups []models.ResolvedMarketTrades, halfLifeHours float64, now time.Time) []models.WalletMetric {
	acc := NewAccumulator(halfLifeHours)
	for _, g := range groups {
		acc.Add(g)
	}
	return acc.Finalize(now)
}

// Add folds one resolved market's trade history into the accumulator.
func (a *Accumulator) Add(group models.ResolvedMarketTrades) {
	if len(group.Trades) == 0 {
		return
	}

	category := group.Market.NormalizedCategory()
	cutoff := models.ResolvedMarket{Market: group.Market, Outcome: group.Outcome}.CloseTime()
	outcome := group.Outcome.ResolvedOutcome
	finalYes, hasFinal := finalYesPrice(group.Trades, group.Outcome.ResolutionTime)

	for wallet, rows := range groupByWallet(group.Trades) {
		sig := belief.Infer(rows, cutoff, a.halfLifeHours)
		if sig.TradeCount == 0 {
			continue
		}

		brier := (sig.Belief - float64(outcome)) * (sig.Belief - float64(outcome))
		logLoss := safeLogLoss(sig.Belief, outcome)
		timingEdge := 0.0
		if hasFinal {
			timingEdge = timingEdgeFor(rows, finalYes)
		}
		pnl, cost := markToResolution(rows, outcome)

		horizon := models.HorizonBucket(group.Market.EndTime, rows[0].Timestamp)
		totalSize := 0.0
		for _, tr := range rows {
			totalSize += tr.Size
		}

		keys := [4]models.MetricKey{
			{Wallet: wallet, Category: models.All, Horizon: models.All},
			{Wallet: wallet, Category: category, Horizon: models.All},
			{Wallet: wallet, Category: models.All, Horizon: horizon},
			{Wallet: wallet, Category: category, Horizon: horizon},
		}
		for _, key := range keys {
			m := a.accums[key]
			if m == nil {
				m = &metricAccum{}
				a.accums[key] = m
			}
			m.marketCount++
			m.tradeCount += len(rows)
			m.sumBrier += brier
			m.sumLogLoss += logLoss
			m.sumBelief += sig.Belief
			m.sumOutcome += float64(outcome)
			m.sumTradeSize += totalSize
			m.sumChurn += sig.Churn
			m.sumPersist += sig.Persistence
			m.sumTimingEdge += timingEdge
			m.sumPnL += pnl
			m.sumCost += cost
		}

		counts := a.categoryCounts[wallet]
		if counts == nil {
			counts = make(map[string]int)
			a.categoryCounts[wallet] = counts
		}
		counts[category]++
	}
}

// Finalize produces the full set of wallet metric rows. Groupings with
// no qualifying markets are omitted. Rows are sorted by key so a full
// rewrite is deterministic.
func (a *Accumulator) Finalize(now time.Time) []models.WalletMetric {
	specialization := make(map[string]float64, len(a.categoryCounts))
	for wallet, counts := range a.categoryCounts {
		specialization[wallet] = specializationOf(counts)
	}

	rows := make([]models.WalletMetric, 0, len(a.accums))
	for key, m := range a.accums {
		if m.marketCount == 0 || m.tradeCount == 0 {
			continue
		}
		n := float64(m.marketCount)
		rows = append(rows, models.WalletMetric{
			MetricKey:        key,
			SampleMarkets:    m.marketCount,
			SampleTrades:     m.tradeCount,
			Brier:            m.sumBrier / n,
			LogLoss:          m.sumLogLoss / n,
			ROI:              m.sumPnL / math.Max(m.sumCost, 1e-9),
			CalibrationError: math.Abs(m.sumBelief/n - m.sumOutcome/n),
			AvgTradeSize:     m.sumTradeSize / float64(m.tradeCount),
			Churn:            m.sumChurn / n,
			Persistence:      m.sumPersist / n,
			Specialization:   specialization[key.Wallet],
			TimingEdge:       m.sumTimingEdge / n,
			UpdatedAt:        now,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Wallet != rows[j].Wallet {
			return rows[i].Wallet < rows[j].Wallet
		}
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Horizon < rows[j].Horizon
	})
	return rows
}

// finalYesPrice returns the implied YES price of the last trade at or
// before the resolution time.
func finalYesPrice(trades []models.Trade, resolutionTime time.Time) (float64, bool) {
	found := false
	final := 0.0
	for _, tr := range trades {
		if !tr.Timestamp.After(resolutionTime) {
			final = belief.ImpliedYesPrice(tr.Side, tr.Price)
			found = true
		}
	}
	return final, found
}

// timingEdgeFor measures how often a wallet's trade direction
// anticipated the late-market move, rescaled to [-1, 1]. Moves inside
// the noise threshold are ignored.
func timingEdgeFor(rows []models.Trade, finalYes float64) float64 {
	hits := 0.0
	signals := 0
	for _, tr := range rows {
		direction := belief.YesDirection(tr.Side, tr.Action)
		currentYes := belief.ImpliedYesPrice(tr.Side, tr.Price)
		move := finalYes - currentYes
		if math.Abs(move) <= timingNoiseThreshold {
			continue
		}
		signals++
		if float64(direction)*move > 0 {
			hits++
		}
	}
	if signals == 0 {
		return 0
	}
	return 2.0*(hits/float64(signals)) - 1.0
}

// markToResolution runs the simple token-value P&L model: a YES token
// is worth the outcome, a NO token its complement, versus the paid
// price. Returns total P&L and total notional cost.
func markToResolution(rows []models.Trade, outcome int) (pnl, cost float64) {
	for _, tr := range rows {
		tokenValue := float64(outcome)
		if tr.Side != models.SideYes {
			tokenValue = 1 - float64(outcome)
		}
		if tr.Action == models.ActionBuy {
			pnl += (tokenValue - tr.Price) * tr.Size
		} else {
			pnl += (tr.Price - tokenValue) * tr.Size
		}
		cost += math.Max(tr.Price*tr.Size, 1e-9)
	}
	return pnl, cost
}

// specializationOf is one minus the normalized Shannon entropy of a
// wallet's per-category market counts: 1.0 means a single category,
// 0.0 a uniform spread.
func specializationOf(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 || len(counts) <= 1 {
		return 1.0
	}
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log(p)
	}
	maxEntropy := math.Log(float64(len(counts)))
	if maxEntropy <= 0 {
		return 1.0
	}
	return 1.0 - entropy/maxEntropy
}

// groupByWallet splits a market's time-ordered trades per wallet,
// preserving order.
func groupByWallet(trades []models.Trade) map[string][]models.Trade {
	byWallet := make(map[string][]models.Trade)
	for _, tr := range trades {
		byWallet[tr.Wallet] = append(byWallet[tr.Wallet], tr)
	}
	return byWallet
}

func safeLogLoss(prob float64, outcome int) float64 {
	p := belief.Clamp(prob, belief.MinProb, belief.MaxProb)
	if outcome == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}
