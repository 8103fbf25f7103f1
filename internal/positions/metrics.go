package positions

import (
	"tradejournal/internal/model"
	"tradejournal/internal/types"

	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance for open-amount comparisons. Coin amounts are
// derived through division, so exact zero is not reachable in general.
var Epsilon = decimal.New(1, -8)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Metrics are the derived numbers of a position. Pointer fields are nil
// when the underlying quantity is undefined (for example the average entry
// price of a position with zero total entry size).
type Metrics struct {
	TotalMarginUSD     decimal.Decimal  `json:"total_margin_usd"`
	TotalNotionalUSD   decimal.Decimal  `json:"total_notional_usd"`
	TotalEntryCoin     decimal.Decimal  `json:"total_entry_coin"`
	TotalClosedCoin    decimal.Decimal  `json:"total_closed_coin"`
	OpenCoin           decimal.Decimal  `json:"open_coin"`
	RealizedPnlUSD     decimal.Decimal  `json:"realized_pnl_usd"`
	AvgEntryPrice      *decimal.Decimal `json:"avg_entry_price"`
	EffectiveLeverage  *decimal.Decimal `json:"effective_leverage"`
	OpenNotionalUSD    *decimal.Decimal `json:"open_notional_usd"`
	OpenMarginUSD      *decimal.Decimal `json:"open_margin_usd"`
	DebtUSD            *decimal.Decimal `json:"debt_usd"`
	RealizedPnlPercent *decimal.Decimal `json:"realized_pnl_percent"`
	LiquidationPrice   *decimal.Decimal `json:"liquidation_price"`
}

// Compute derives metrics from a position's legs. Pure: no I/O, no
// mutation of the inputs, deterministic for equal inputs.
//
// Entry sums are order-independent (weighted-average cost basis). Realized
// pnl is the sum of the stored per-close values, not a recomputation, so a
// close keeps the economics of the moment it executed even if later
// entries move the average.
func Compute(side types.PositionSide, entries []model.Entry, closes []model.Close) Metrics {
	var m Metrics

	for _, e := range entries {
		lev := e.Leverage
		if lev.LessThanOrEqual(decimal.Zero) {
			lev = one
		}
		notional := e.AmountInvestedUSD.Mul(lev)
		m.TotalMarginUSD = m.TotalMarginUSD.Add(e.AmountInvestedUSD)
		m.TotalNotionalUSD = m.TotalNotionalUSD.Add(notional)
		if e.EntryPrice.IsPositive() {
			m.TotalEntryCoin = m.TotalEntryCoin.Add(notional.Div(e.EntryPrice))
		}
	}

	for _, c := range closes {
		m.TotalClosedCoin = m.TotalClosedCoin.Add(c.CloseCoinAmount)
		m.RealizedPnlUSD = m.RealizedPnlUSD.Add(c.PnlUSD)
	}

	open := m.TotalEntryCoin.Sub(m.TotalClosedCoin)
	if open.IsNegative() {
		open = decimal.Zero
	}
	m.OpenCoin = open

	if m.TotalEntryCoin.IsPositive() {
		avg := m.TotalNotionalUSD.Div(m.TotalEntryCoin)
		m.AvgEntryPrice = &avg
	}
	if m.TotalMarginUSD.IsPositive() {
		lev := m.TotalNotionalUSD.Div(m.TotalMarginUSD)
		m.EffectiveLeverage = &lev
		pct := m.RealizedPnlUSD.Div(m.TotalMarginUSD).Mul(hundred)
		m.RealizedPnlPercent = &pct
	}
	if m.AvgEntryPrice != nil && m.OpenCoin.IsPositive() {
		notional := m.OpenCoin.Mul(*m.AvgEntryPrice)
		m.OpenNotionalUSD = &notional
		if m.EffectiveLeverage != nil && m.EffectiveLeverage.IsPositive() {
			margin := notional.Div(*m.EffectiveLeverage)
			m.OpenMarginUSD = &margin
			debt := notional.Sub(margin)
			m.DebtUSD = &debt
		}
	}

	// Liquidation exists only for leveraged positions.
	if m.AvgEntryPrice != nil && m.EffectiveLeverage != nil && m.EffectiveLeverage.GreaterThan(one) {
		frac := one.Div(*m.EffectiveLeverage)
		var liq decimal.Decimal
		if side == types.PositionSideShort {
			liq = m.AvgEntryPrice.Mul(one.Add(frac))
		} else {
			liq = m.AvgEntryPrice.Mul(one.Sub(frac))
		}
		m.LiquidationPrice = &liq
	}

	return m
}
