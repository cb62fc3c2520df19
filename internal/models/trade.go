package models

import "time"

// Side is the outcome token a trade was executed against.
type Side string

// Action is the order direction of a trade.
type Action string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"

	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Trade represents a single normalized trade row for a binary market.
// Rows are immutable once ingested; wallet addresses are stored lowercased.
type Trade struct {
	ID         int64     `db:"id" json:"id"`
	ExternalID string    `db:"external_id" json:"external_id,omitempty"`
	MarketID   string    `db:"market_id" json:"market_id"`
	Wallet     string    `db:"wallet" json:"wallet"`
	Timestamp  time.Time `db:"ts" json:"ts"`
	Side       Side      `db:"side" json:"side"`
	Action     Action    `db:"action" json:"action"`
	Price      float64   `db:"price" json:"price"`
	Size       float64   `db:"size" json:"size"`
}
