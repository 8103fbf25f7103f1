package positions

import (
	"encoding/json"
	"testing"

	"tradejournal/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditRequestAbsentVersusNull(t *testing.T) {
	var req EditRequest
	require.NoError(t, json.Unmarshal([]byte(`{"stop_loss_price": null, "comment": "note"}`), &req))

	assert.True(t, req.StopLossPrice.Set)
	assert.False(t, req.StopLossPrice.Valid)

	assert.True(t, req.Comment.Set)
	assert.True(t, req.Comment.Valid)
	assert.Equal(t, "note", req.Comment.Value)

	// Absent keys stay unset.
	assert.False(t, req.TakeProfitPrice.Set)
	assert.False(t, req.EntryPrice.Set)
	assert.False(t, req.ExitDate.Set)
}

func TestEditRequestDecimalAndTimeValues(t *testing.T) {
	var req EditRequest
	require.NoError(t, json.Unmarshal([]byte(`{"entry_price": "123.45", "entry_date": "2026-05-01T12:00:00Z"}`), &req))

	require.True(t, req.EntryPrice.Set)
	require.True(t, req.EntryPrice.Valid)
	assert.True(t, req.EntryPrice.Value.Equal(d("123.45")))

	require.True(t, req.EntryDate.Set)
	require.True(t, req.EntryDate.Valid)
	assert.Equal(t, 2026, req.EntryDate.Value.Year())
}

func TestEditRequestTouchesTradeFields(t *testing.T) {
	var req EditRequest
	require.NoError(t, json.Unmarshal([]byte(`{"comment": "x"}`), &req))
	assert.False(t, req.touchesTradeFields())

	require.NoError(t, json.Unmarshal([]byte(`{"side": "short"}`), &req))
	assert.True(t, req.touchesTradeFields())
}

func TestSellAmountFromFields(t *testing.T) {
	ten := d("10")
	fifty := d("50")

	amt, err := sellAmountFromFields(&ten, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SellAmountCoin, amt.Kind)
	assert.True(t, amt.Value.Equal(ten))

	amt, err = sellAmountFromFields(nil, nil, &fifty)
	require.NoError(t, err)
	assert.Equal(t, SellAmountPercent, amt.Kind)

	_, err = sellAmountFromFields(nil, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = sellAmountFromFields(&ten, &fifty, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	var zero decimal.Decimal
	_, err = sellAmountFromFields(&ten, &fifty, &zero)
	require.Error(t, err)
}
