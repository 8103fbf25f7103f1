package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"tradejournal/internal/exchange"
	"tradejournal/internal/model"
	"tradejournal/internal/positions"
	"tradejournal/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ledger is the slice of the positions service the engine writes through.
type ledger interface {
	UpsertExternal(ctx context.Context, userID string, ext positions.ExternalState) (bool, error)
}

// Stats describes one reconciliation run.
type Stats struct {
	RunID          string    `json:"run_id,omitempty"`
	TotalPositions int       `json:"total_positions"`
	Created        int       `json:"created"`
	Updated        int       `json:"updated"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	Concurrent     bool      `json:"concurrent"`
	SyncedAt       time.Time `json:"synced_at,omitempty"`
}

// Engine merges external position snapshots into the ledger. One engine
// instance owns one single-flight guard: timer ticks and manual triggers
// share it, so at most one pass runs at a time.
type Engine struct {
	feed     exchange.Feed
	ledger   ledger
	exchange string
	userID   string
	log      zerolog.Logger

	mu      sync.Mutex
	syncing bool
	lastRun *Stats
	lastErr string
}

func NewEngine(feed exchange.Feed, ledger ledger, exchangeName, userID string, log zerolog.Logger) *Engine {
	return &Engine{
		feed:     feed,
		ledger:   ledger,
		exchange: exchangeName,
		userID:   userID,
		log:      log.With().Str("component", "reconcile").Logger(),
	}
}

func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return false
	}
	e.syncing = true
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	e.syncing = false
	e.mu.Unlock()
}

func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// LastRun returns the stats of the most recent completed run and the error
// message of the most recent failure, if any.
func (e *Engine) LastRun() (*Stats, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastRun == nil {
		return nil, e.lastErr
	}
	run := *e.lastRun
	return &run, e.lastErr
}

func (e *Engine) record(stats Stats, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = &stats
	if err != nil {
		e.lastErr = err.Error()
	} else {
		e.lastErr = ""
	}
}

// SyncOnce performs one reconciliation pass. If another pass is already
// running it returns immediately with Concurrent set and touches nothing.
// A feed failure aborts the run before any upsert; per-snapshot failures
// only increment Skipped.
func (e *Engine) SyncOnce(ctx context.Context) (Stats, error) {
	if !e.begin() {
		e.log.Debug().Msg("sync already in progress, skipping")
		return Stats{Concurrent: true}, nil
	}
	defer e.end()

	now := time.Now().UTC()
	stats := Stats{RunID: uuid.NewString(), SyncedAt: now}
	log := e.log.With().Str("run_id", stats.RunID).Logger()

	snapshots, err := e.feed.FetchOpenPositions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("position feed fetch failed")
		e.record(stats, err)
		return stats, err
	}
	stats.TotalPositions = len(snapshots)

	// Skipped counts snapshots the mapping rules reject; Failed counts
	// storage errors on otherwise valid snapshots.
	for _, snap := range snapshots {
		ext, err := mapSnapshot(snap, e.exchange, now)
		if err != nil {
			stats.Skipped++
			log.Debug().Err(err).Str("external_id", snap.ExternalID).Msg("snapshot skipped")
			continue
		}
		created, err := e.ledger.UpsertExternal(ctx, e.userID, ext)
		if err != nil {
			stats.Failed++
			log.Warn().Err(err).Str("external_id", snap.ExternalID).Msg("upsert failed")
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	log.Info().
		Int("total", stats.TotalPositions).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("sync completed")
	e.record(stats, nil)
	return stats, nil
}

// mapSnapshot turns one feed snapshot into the canonical single-entry
// representation, or an error explaining why it must be skipped.
func mapSnapshot(snap exchange.Snapshot, exchangeName string, now time.Time) (positions.ExternalState, error) {
	var ext positions.ExternalState

	if strings.TrimSpace(snap.ExternalID) == "" {
		return ext, errors.New("missing external id")
	}
	coin := strings.ToUpper(strings.TrimSpace(snap.BaseAsset))
	if coin == "" {
		return ext, errors.New("unresolvable base asset")
	}
	size := snap.SignedSize.Abs()
	if !size.IsPositive() {
		return ext, errors.New("zero or invalid size")
	}
	if !snap.EntryPrice.IsPositive() {
		return ext, errors.New("non-positive entry price")
	}

	side := types.PositionSideLong
	if snap.SignedSize.IsNegative() {
		side = types.PositionSideShort
	}

	one := decimal.NewFromInt(1)
	leverage := one
	if snap.Leverage != nil && snap.Leverage.IsPositive() {
		leverage = *snap.Leverage
	} else if snap.NotionalUSD != nil && snap.NotionalUSD.IsPositive() &&
		snap.CollateralUSD != nil && snap.CollateralUSD.IsPositive() {
		leverage = snap.NotionalUSD.Div(*snap.CollateralUSD)
	}

	productType := types.ProductTypeSpot
	if leverage.GreaterThan(one) {
		productType = types.ProductTypePerpetual
	} else {
		leverage = one
	}

	var margin decimal.Decimal
	if productType == types.ProductTypePerpetual {
		if snap.CollateralUSD != nil {
			margin = *snap.CollateralUSD
		}
	} else {
		if snap.NotionalUSD != nil && snap.NotionalUSD.IsPositive() {
			margin = *snap.NotionalUSD
		} else {
			margin = size.Mul(snap.EntryPrice)
		}
	}
	if !margin.IsPositive() {
		return ext, errors.New("non-positive invested margin")
	}

	entryDate := now
	if snap.OpenedAt != nil && !snap.OpenedAt.IsZero() {
		entryDate = snap.OpenedAt.UTC()
	}

	return positions.ExternalState{
		Exchange:    exchangeName,
		ExternalID:  strings.TrimSpace(snap.ExternalID),
		Coin:        coin,
		Side:        side,
		ProductType: productType,
		Entry: model.Entry{
			EntryPrice:        snap.EntryPrice,
			AmountInvestedUSD: margin,
			Leverage:          leverage,
			EntryDate:         entryDate,
		},
		SyncedAt: now,
	}, nil
}
