package model

import (
	"time"

	"tradejournal/internal/types"

	"github.com/shopspring/decimal"
)

// Entry is one capital-deployment leg of a position.
type Entry struct {
	EntryPrice        decimal.Decimal `json:"entry_price"`
	AmountInvestedUSD decimal.Decimal `json:"amount_invested_usd"`
	Leverage          decimal.Decimal `json:"leverage"`
	EntryDate         time.Time       `json:"entry_date"`
}

// Close is one realization leg. PnlUSD is fixed at execution time against
// the cost basis of that moment and is never recomputed retroactively,
// except through the single-leg edit path.
type Close struct {
	ClosePrice      decimal.Decimal `json:"close_price"`
	CloseCoinAmount decimal.Decimal `json:"close_coin_amount"`
	CloseUSDAmount  decimal.Decimal `json:"close_usd_amount"`
	CloseDate       time.Time       `json:"close_date"`
	PnlUSD          decimal.Decimal `json:"pnl_usd"`
	PnlPercent      decimal.Decimal `json:"pnl_percent"`
}

type Position struct {
	ID                  string               `json:"id"`
	UserID              string               `json:"user_id"`
	Coin                string               `json:"coin"`
	Side                types.PositionSide   `json:"side"`
	Status              types.PositionStatus `json:"status"`
	Entries             []Entry              `json:"entries"`
	Closes              []Close              `json:"closes"`
	StopLossPrice       *decimal.Decimal     `json:"stop_loss_price"`
	TakeProfitPrice     *decimal.Decimal     `json:"take_profit_price"`
	Comment             string               `json:"comment"`
	Source              string               `json:"source"`
	Exchange            string               `json:"exchange,omitempty"`
	ExchangePositionID  string               `json:"exchange_position_id,omitempty"`
	ExchangeProductType types.ProductType    `json:"exchange_product_type,omitempty"`
	LastSyncedAt        *time.Time           `json:"last_synced_at,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}
