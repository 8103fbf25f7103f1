package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradejournal/internal/exchange"
	"tradejournal/internal/positions"
	"tradejournal/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakeFeed struct {
	snapshots []exchange.Snapshot
	err       error
	block     chan struct{}
}

func (f *fakeFeed) FetchOpenPositions(ctx context.Context) ([]exchange.Snapshot, error) {
	if f.block != nil {
		<-f.block
	}
	return f.snapshots, f.err
}

type fakeLedger struct {
	mu     sync.Mutex
	seen   map[string]bool
	failOn string
	calls  []positions.ExternalState
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: map[string]bool{}}
}

func (l *fakeLedger) UpsertExternal(ctx context.Context, userID string, ext positions.ExternalState) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ext.ExternalID == l.failOn {
		return false, errors.New("storage unavailable")
	}
	l.calls = append(l.calls, ext)
	if l.seen[ext.ExternalID] {
		return false, nil
	}
	l.seen[ext.ExternalID] = true
	return true, nil
}

func snap(id, asset, size, price string) exchange.Snapshot {
	return exchange.Snapshot{
		ExternalID: id,
		BaseAsset:  asset,
		SignedSize: d(size),
		EntryPrice: d(price),
	}
}

func newTestEngine(feed exchange.Feed, ledger ledger) *Engine {
	return NewEngine(feed, ledger, "hyperliquid", "user-1", zerolog.Nop())
}

func TestSyncOnceCountsCreatedUpdatedSkipped(t *testing.T) {
	s1 := snap("p1", "btc", "1.5", "60000")
	s1.Leverage = dp("10")
	s1.CollateralUSD = dp("9000")
	feed := &fakeFeed{snapshots: []exchange.Snapshot{
		s1,
		snap("p2", "ETH", "-2", "3000"),
		snap("p3", "SOL", "0", "150"),
		snap("", "DOGE", "100", "0.1"),
	}}
	ledger := newFakeLedger()
	e := newTestEngine(feed, ledger)

	stats, err := e.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalPositions)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 2, stats.Skipped)
	assert.False(t, stats.Concurrent)
	assert.NotEmpty(t, stats.RunID)

	// Second pass re-reports the same feed state, so both land as updates.
	stats, err = e.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 2, stats.Updated)
}

func TestSyncOnceUpsertFailureCountedSeparately(t *testing.T) {
	feed := &fakeFeed{snapshots: []exchange.Snapshot{
		snap("p1", "BTC", "1", "60000"),
		snap("p2", "ETH", "2", "3000"),
		snap("p3", "SOL", "0", "150"),
	}}
	ledger := newFakeLedger()
	ledger.failOn = "p1"
	e := newTestEngine(feed, ledger)

	stats, err := e.SyncOnce(context.Background())
	require.NoError(t, err)
	// The storage error on p1 is a failure, the zero-size p3 a skip.
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Created)
}

func TestSyncOnceFeedErrorAbortsRun(t *testing.T) {
	feed := &fakeFeed{err: errors.New("feed down")}
	ledger := newFakeLedger()
	e := newTestEngine(feed, ledger)

	_, err := e.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, ledger.calls)

	lastRun, lastErr := e.LastRun()
	require.NotNil(t, lastRun)
	assert.Equal(t, "feed down", lastErr)
}

func TestSyncOnceSingleFlight(t *testing.T) {
	block := make(chan struct{})
	feed := &fakeFeed{snapshots: []exchange.Snapshot{snap("p1", "BTC", "1", "60000")}, block: block}
	e := newTestEngine(feed, newFakeLedger())

	done := make(chan Stats, 1)
	go func() {
		stats, _ := e.SyncOnce(context.Background())
		done <- stats
	}()

	require.Eventually(t, e.IsSyncing, time.Second, time.Millisecond)
	stats, err := e.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Concurrent)
	assert.Zero(t, stats.TotalPositions)

	close(block)
	first := <-done
	assert.False(t, first.Concurrent)
	assert.Equal(t, 1, first.Created)
}

func TestMapSnapshot(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("short side from negative size", func(t *testing.T) {
		ext, err := mapSnapshot(snap("p1", "eth", "-2", "3000"), "hyperliquid", now)
		require.NoError(t, err)
		assert.Equal(t, types.PositionSideShort, ext.Side)
		assert.Equal(t, "ETH", ext.Coin)
		assert.Equal(t, "hyperliquid", ext.Exchange)
		// No leverage reported: spot at notional size * price.
		assert.Equal(t, types.ProductTypeSpot, ext.ProductType)
		assert.True(t, ext.Entry.AmountInvestedUSD.Equal(d("6000")))
		assert.True(t, ext.Entry.Leverage.Equal(d("1")))
		assert.Equal(t, now, ext.Entry.EntryDate)
	})

	t.Run("explicit leverage makes perpetual with collateral margin", func(t *testing.T) {
		s := snap("p1", "BTC", "1", "60000")
		s.Leverage = dp("10")
		s.CollateralUSD = dp("6000")
		opened := now.Add(-24 * time.Hour)
		s.OpenedAt = &opened

		ext, err := mapSnapshot(s, "hyperliquid", now)
		require.NoError(t, err)
		assert.Equal(t, types.ProductTypePerpetual, ext.ProductType)
		assert.True(t, ext.Entry.Leverage.Equal(d("10")))
		assert.True(t, ext.Entry.AmountInvestedUSD.Equal(d("6000")))
		assert.Equal(t, opened, ext.Entry.EntryDate)
	})

	t.Run("leverage derived from notional over collateral", func(t *testing.T) {
		s := snap("p1", "BTC", "1", "60000")
		s.NotionalUSD = dp("60000")
		s.CollateralUSD = dp("12000")

		ext, err := mapSnapshot(s, "hyperliquid", now)
		require.NoError(t, err)
		assert.Equal(t, types.ProductTypePerpetual, ext.ProductType)
		assert.True(t, ext.Entry.Leverage.Equal(d("5")))
		assert.True(t, ext.Entry.AmountInvestedUSD.Equal(d("12000")))
	})

	t.Run("perpetual without collateral is skipped", func(t *testing.T) {
		s := snap("p1", "BTC", "1", "60000")
		s.Leverage = dp("10")
		_, err := mapSnapshot(s, "hyperliquid", now)
		require.Error(t, err)
	})

	t.Run("invalid snapshots are skipped", func(t *testing.T) {
		cases := []exchange.Snapshot{
			snap("p1", "BTC", "0", "60000"),
			snap("p1", "BTC", "1", "0"),
			snap("p1", "BTC", "1", "-5"),
			snap("p1", "  ", "1", "60000"),
			snap("", "BTC", "1", "60000"),
		}
		for _, s := range cases {
			_, err := mapSnapshot(s, "hyperliquid", now)
			assert.Error(t, err)
		}
	})
}
