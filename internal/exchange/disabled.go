package exchange

import (
	"context"

	"tradejournal/internal/apperr"
)

type DisabledFeed struct{}

func NewDisabledFeed() *DisabledFeed {
	return &DisabledFeed{}
}

func (f *DisabledFeed) FetchOpenPositions(ctx context.Context) ([]Snapshot, error) {
	return nil, apperr.Feed("exchange feed not configured", false, nil)
}
