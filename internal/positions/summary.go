package positions

import (
	"context"

	"tradejournal/internal/model"
	"tradejournal/internal/types"

	"github.com/shopspring/decimal"
)

// Summary folds realized results over a user's closed positions.
type Summary struct {
	TotalPnlUSD      decimal.Decimal  `json:"total_pnl_usd"`
	TotalInvestedUSD decimal.Decimal  `json:"total_invested_usd"`
	TotalPnlPercent  *decimal.Decimal `json:"total_pnl_percent"`
	TotalTrades      int              `json:"total_trades"`
	WinRate          *decimal.Decimal `json:"win_rate"`
}

// Summarize aggregates closed positions only; anything still active is
// ignored. Percentages are nil when their denominator is zero.
func Summarize(list []model.Position) Summary {
	var sum Summary
	wins := 0
	for _, p := range list {
		if p.Status != types.PositionStatusClosed {
			continue
		}
		m := Compute(p.Side, p.Entries, p.Closes)
		sum.TotalPnlUSD = sum.TotalPnlUSD.Add(m.RealizedPnlUSD)
		sum.TotalInvestedUSD = sum.TotalInvestedUSD.Add(m.TotalMarginUSD)
		sum.TotalTrades++
		if m.RealizedPnlUSD.IsPositive() {
			wins++
		}
	}
	if sum.TotalInvestedUSD.IsPositive() {
		pct := sum.TotalPnlUSD.Div(sum.TotalInvestedUSD).Mul(hundred)
		sum.TotalPnlPercent = &pct
	}
	if sum.TotalTrades > 0 {
		rate := decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(sum.TotalTrades))).Mul(hundred)
		sum.WinRate = &rate
	}
	return sum
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	list, err := s.store.ListByUser(ctx, s.pool, userID, types.PositionStatusClosed)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(list), nil
}
