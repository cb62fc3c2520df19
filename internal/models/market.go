package models

import (
	"strings"
	"time"
)

// Market represents a binary prediction-market question.
type Market struct {
	ID               string    `db:"id" json:"id"`
	Question         string    `db:"question" json:"question"`
	Category         string    `db:"category" json:"category"`
	EndTime          time.Time `db:"end_time" json:"end_time"`
	Liquidity        float64   `db:"liquidity" json:"liquidity"`
	ResolutionSource string    `db:"resolution_source" json:"resolution_source,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// NormalizedCategory returns the lowercased category, defaulting to
// "unknown" when the market carries none.
func (m Market) NormalizedCategory() string {
	c := strings.ToLower(strings.TrimSpace(m.Category))
	if c == "" {
		return "unknown"
	}
	return c
}

// Outcome records the resolved result of a market.
type Outcome struct {
	MarketID        string    `db:"market_id" json:"market_id"`
	ResolvedOutcome int       `db:"resolved_outcome" json:"resolved_outcome"`
	ResolutionTime  time.Time `db:"resolution_time" json:"resolution_time"`
}

// ResolvedMarket pairs a market with its recorded outcome.
type ResolvedMarket struct {
	Market  Market
	Outcome Outcome
}

// CloseTime is the instant trading information stops mattering for
// scoring: the earlier of the market end time and the resolution time.
func (rm ResolvedMarket) CloseTime() time.Time {
	if rm.Outcome.ResolutionTime.Before(rm.Market.EndTime) {
		return rm.Outcome.ResolutionTime
	}
	return rm.Market.EndTime
}

// ResolvedMarketTrades bundles a resolved market with its full
// time-ordered trade history, the unit of work for metric recomputes.
type ResolvedMarketTrades struct {
	Market  Market
	Outcome Outcome
	Trades  []Trade
}
