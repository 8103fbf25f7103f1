package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is one externally held position as reported by the venue's
// position feed. The feed reports current net state, not trade history.
type Snapshot struct {
	ExternalID    string           `json:"external_id"`
	BaseAsset     string           `json:"base_asset"`
	SignedSize    decimal.Decimal  `json:"signed_size"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	Leverage      *decimal.Decimal `json:"leverage,omitempty"`
	NotionalUSD   *decimal.Decimal `json:"notional_usd,omitempty"`
	CollateralUSD *decimal.Decimal `json:"collateral_usd,omitempty"`
	OpenedAt      *time.Time       `json:"opened_at,omitempty"`
	AccountID     string           `json:"account_id,omitempty"`
}

// Feed is the read side of an exchange account. An empty slice is a valid
// result meaning no open positions.
type Feed interface {
	FetchOpenPositions(ctx context.Context) ([]Snapshot, error)
}
