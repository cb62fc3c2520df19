// Package weights turns wallet accuracy metrics into bounded trust
// multipliers, and resolves them at snapshot time through a cascading
// grouping fallback.
package weights

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/precognition/internal/belief"
	"github.com/yourusername/precognition/internal/models"
)

// chanceBrier is the Brier score of a constant 0.5 forecaster. Edge is
// measured relative to it.
const chanceBrier = 0.25

const (
	// Empirical-Bayes prior strengths: narrow groupings trust their
	// local signal sooner than the global one.
	globalPriorStrength = 22.0
	narrowPriorStrength = 12.0

	// MinWeight and MaxWeight bound every trust multiplier.
	MinWeight = 0.10
	MaxWeight = 4.00
)

// Compute derives one WalletWeight per metric row. A grouping's edge is
// shrunk toward the wallet's global edge in proportion to its sample
// support, then adjusted for trading style, persistence, calibration,
// and specialization. Zero-support rows are dropped. Output is sorted
// by key for a deterministic full rewrite.
func Compute(metrics []models.WalletMetric, now time.Time) []models.WalletWeight {
	globalEdges := make(map[string]float64)
	for _, m := range metrics {
		if m.Category == models.All && m.Horizon == models.All {
			globalEdges[m.Wallet] = chanceBrier - m.Brier
		}
	}

	rows := make([]models.WalletWeight, 0, len(metrics))
	for _, m := range metrics {
		if m.SampleMarkets <= 0 {
			continue
		}

		localEdge := chanceBrier - m.Brier
		globalEdge := globalEdges[m.Wallet]

		isGlobal := m.Category == models.All && m.Horizon == models.All
		priorStrength := narrowPriorStrength
		if isGlobal {
			priorStrength = globalPriorStrength
		}
		support := float64(m.SampleMarkets)
		shrink := support / (support + priorStrength)
		blendedEdge := shrink*localEdge + (1.0-shrink)*globalEdge

		baseWeight := belief.Clamp(1.0+blendedEdge/chanceBrier, 0.20, 3.00)
		churn := belief.Clamp(m.Churn, 0, 1)
		persistence := belief.Clamp(m.Persistence, 0, 1)
		calibrationError := belief.Clamp(m.CalibrationError, 0, 1)
		specialization := belief.Clamp(m.Specialization, 0, 1)

		stylePenalty := math.Max(0.45, 1.0-0.60*churn)
		persistenceBoost := 0.85 + 0.30*persistence
		calibrationPenalty := math.Max(0.50, 1.0-calibrationError)
		specializationBoost := 0.90 + 0.20*specialization

		rows = append(rows, models.WalletWeight{
			MetricKey: m.MetricKey,
			Weight: belief.Clamp(
				baseWeight*stylePenalty*persistenceBoost*calibrationPenalty*specializationBoost,
				MinWeight, MaxWeight,
			),
			Uncertainty: belief.Clamp(0.9/math.Sqrt(support+1)+0.4*calibrationError, 0, 1),
			Support:     m.SampleMarkets,
			UpdatedAt:   now,
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
