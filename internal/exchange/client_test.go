package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradejournal/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchOpenPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/positions", r.URL.Path)
		assert.Equal(t, "acc-1", r.URL.Query().Get("account_id"))
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"positions": [
			{"external_id": "p1", "base_asset": "BTC", "signed_size": "1.5", "entry_price": "60000", "leverage": "10"},
			{"external_id": "p2", "base_asset": "ETH", "signed_size": "-2", "entry_price": "3000"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "acc-1")
	snaps, err := c.FetchOpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "p1", snaps[0].ExternalID)
	require.NotNil(t, snaps[0].Leverage)
	assert.Equal(t, "10", snaps[0].Leverage.String())
	assert.True(t, snaps[1].SignedSize.IsNegative())
	assert.Nil(t, snaps[1].Leverage)
}

func TestClientServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.FetchOpenPositions(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsFeed(err))
	assert.True(t, apperr.IsRetryable(err))
}

func TestClientAuthErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "")
	_, err := c.FetchOpenPositions(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsFeed(err))
	assert.False(t, apperr.IsRetryable(err))
}

func TestClientUnreachableIsRetryable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "")
	_, err := c.FetchOpenPositions(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))
}
