package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tradejournal/internal/apperr"
)

// Client polls a pre-normalized position feed over HTTP. Request signing
// and venue-specific payload shapes live behind the feed endpoint, not
// here.
type Client struct {
	baseURL   string
	apiKey    string
	accountID string
	http      *http.Client
}

func NewClient(baseURL, apiKey, accountID string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		accountID: accountID,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

type positionsResponse struct {
	Positions []Snapshot `json:"positions"`
}

func (c *Client) FetchOpenPositions(ctx context.Context) ([]Snapshot, error) {
	endpoint := c.baseURL + "/v1/positions"
	if c.accountID != "" {
		endpoint += "?account_id=" + url.QueryEscape(c.accountID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperr.Feed("build feed request", false, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Feed("position feed unreachable", true, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, apperr.Feed(fmt.Sprintf("position feed returned status %d", resp.StatusCode), retryable, nil)
	}
	var body positionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Feed("decode position feed response", true, err)
	}
	return body.Positions, nil
}
