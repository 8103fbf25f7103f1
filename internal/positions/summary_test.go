package positions

import (
	"testing"

	"tradejournal/internal/model"
	"tradejournal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedWithPnl(margin, pnl string) model.Position {
	return model.Position{
		Side:    types.PositionSideLong,
		Status:  types.PositionStatusClosed,
		Entries: []model.Entry{entry("100", margin, "1")},
		Closes:  []model.Close{{PnlUSD: d(pnl)}},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	assert.True(t, sum.TotalPnlUSD.IsZero())
	assert.True(t, sum.TotalInvestedUSD.IsZero())
	assert.Nil(t, sum.TotalPnlPercent)
	assert.Nil(t, sum.WinRate)
	assert.Equal(t, 0, sum.TotalTrades)
}

func TestSummarizeIgnoresActive(t *testing.T) {
	active := model.Position{
		Side:    types.PositionSideLong,
		Status:  types.PositionStatusActive,
		Entries: []model.Entry{entry("100", "1000", "1")},
	}
	sum := Summarize([]model.Position{active, closedWithPnl("500", "100")})
	assert.Equal(t, 1, sum.TotalTrades)
	assert.True(t, sum.TotalInvestedUSD.Equal(d("500")))
}

func TestSummarizeFolds(t *testing.T) {
	sum := Summarize([]model.Position{
		closedWithPnl("1000", "250"),
		closedWithPnl("1000", "-100"),
		closedWithPnl("2000", "50"),
	})
	assert.Equal(t, 3, sum.TotalTrades)
	assert.True(t, sum.TotalPnlUSD.Equal(d("200")))
	assert.True(t, sum.TotalInvestedUSD.Equal(d("4000")))
	require.NotNil(t, sum.TotalPnlPercent)
	assert.True(t, sum.TotalPnlPercent.Equal(d("5")))
	require.NotNil(t, sum.WinRate)
	// 2 winners of 3.
	assert.True(t, sum.WinRate.Round(4).Equal(d("66.6667")), "got %s", sum.WinRate)
}

func TestSummarizeZeroInvestedHasNilPercent(t *testing.T) {
	p := model.Position{
		Side:   types.PositionSideLong,
		Status: types.PositionStatusClosed,
		Closes: []model.Close{{PnlUSD: d("10")}},
	}
	sum := Summarize([]model.Position{p})
	assert.Nil(t, sum.TotalPnlPercent)
	require.NotNil(t, sum.WinRate)
	assert.True(t, sum.WinRate.Equal(d("100")))
}
