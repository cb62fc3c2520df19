package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/precognition/internal/models"
)

func validTrade() models.Trade {
	return models.Trade{
		ExternalID: "ext-1",
		MarketID:   "m1",
		Wallet:     "0xAbCdEf",
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Side:       models.SideYes,
		Action:     models.ActionBuy,
		Price:      0.62,
		Size:       150,
	}
}

func TestValidateNormalizesWallet(t *testing.T) {
	v := NewTradeValidator()

	out, err := v.Validate(validTrade())

	require.NoError(t, err)
	assert.Equal(t, "0xabcdef", out.Wallet)
}

func TestValidateNormalizesSideAndAction(t *testing.T) {
	v := NewTradeValidator()
	tr := validTrade()
	tr.Side = "no"
	tr.Action = "sell"

	out, err := v.Validate(tr)

	require.NoError(t, err)
	assert.Equal(t, models.SideNo, out.Side)
	assert.Equal(t, models.ActionSell, out.Action)
}

func TestValidateRejectsBadRows(t *testing.T) {
	v := NewTradeValidator()

	tests := []struct {
		name   string
		mutate func(*models.Trade)
	}{
		{name: "missing market id", mutate: func(tr *models.Trade) { tr.MarketID = "  " }},
		{name: "missing wallet", mutate: func(tr *models.Trade) { tr.Wallet = "" }},
		{name: "unknown side", mutate: func(tr *models.Trade) { tr.Side = "MAYBE" }},
		{name: "unknown action", mutate: func(tr *models.Trade) { tr.Action = "HOLD" }},
		{name: "zero timestamp", mutate: func(tr *models.Trade) { tr.Timestamp = time.Time{} }},
		{name: "price at zero", mutate: func(tr *models.Trade) { tr.Price = 0 }},
		{name: "price at one", mutate: func(tr *models.Trade) { tr.Price = 1 }},
		{name: "price above one", mutate: func(tr *models.Trade) { tr.Price = 1.2 }},
		{name: "negative price", mutate: func(tr *models.Trade) { tr.Price = -0.1 }},
		{name: "zero size", mutate: func(tr *models.Trade) { tr.Size = 0 }},
		{name: "negative size", mutate: func(tr *models.Trade) { tr.Size = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTrade()
			tt.mutate(&tr)

			_, err := v.Validate(tr)

			assert.ErrorIs(t, err, models.ErrInvalidTrade)
		})
	}
}

func TestValidateBoundaryPrices(t *testing.T) {
	v := NewTradeValidator()

	tr := validTrade()
	tr.Price = 0.001
	_, err := v.Validate(tr)
	assert.NoError(t, err)

	tr.Price = 0.999
	_, err = v.Validate(tr)
	assert.NoError(t, err)
}
