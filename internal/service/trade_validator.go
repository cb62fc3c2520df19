package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/yourusername/precognition/internal/models"
)

// Price bounds for a binary market share, exclusive on both ends: a
// trade at exactly 0 or 1 carries no probability information.
var (
	minPrice = decimal.Zero
	maxPrice = decimal.NewFromInt(1)
)

// tradeFields mirrors the trade row with validation tags. Price and
// size bounds are checked separately with decimals so float noise near
// the boundaries cannot flip a verdict.
type tradeFields struct {
	MarketID string `validate:"required"`
	Wallet   string `validate:"required"`
	Side     string `validate:"required,oneof=YES NO"`
	Action   string `validate:"required,oneof=BUY SELL"`
}

// TradeValidator checks incoming trade rows before persistence.
type TradeValidator struct {
	validate *validator.Validate
}

// NewTradeValidator creates a new trade validator.
func NewTradeValidator() *TradeValidator {
	return &TradeValidator{
		validate: validator.New(),
	}
}

// Validate checks one trade row and returns its normalized form:
// wallet lowercased, side and action uppercased. The returned error
// wraps models.ErrInvalidTrade.
func (v *TradeValidator) Validate(tr models.Trade) (models.Trade, error) {
	tr.Wallet = strings.ToLower(strings.TrimSpace(tr.Wallet))
	tr.MarketID = strings.TrimSpace(tr.MarketID)
	tr.Side = models.Side(strings.ToUpper(string(tr.Side)))
	tr.Action = models.Action(strings.ToUpper(string(tr.Action)))

	fields := tradeFields{
		MarketID: tr.MarketID,
		Wallet:   tr.Wallet,
		Side:     string(tr.Side),
		Action:   string(tr.Action),
	}
	if err := v.validate.Struct(fields); err != nil {
		return models.Trade{}, fmt.Errorf("%w: %v", models.ErrInvalidTrade, err)
	}

	if tr.Timestamp.IsZero() {
		return models.Trade{}, fmt.Errorf("%w: missing timestamp", models.ErrInvalidTrade)
	}

	price := decimal.NewFromFloat(tr.Price)
	if price.LessThanOrEqual(minPrice) || price.GreaterThanOrEqual(maxPrice) {
		return models.Trade{}, fmt.Errorf("%w: price %s outside (0, 1)", models.ErrInvalidTrade, price.String())
	}

	size := decimal.NewFromFloat(tr.Size)
	if size.LessThanOrEqual(decimal.Zero) {
		return models.Trade{}, fmt.Errorf("%w: size %s must be positive", models.ErrInvalidTrade, size.String())
	}

	return tr, nil
}
