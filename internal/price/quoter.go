// Package price provides the BTC/USD price source: a pull-based quoter and
// a background refresher that caches the latest value for non-blocking reads.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultQuoteURL is the CoinGecko simple-price endpoint for BTC in USD.
const DefaultQuoteURL = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd"

// Quoter fetches the current BTC price in USD. A failed quote is "no price
// available", never fatal to the caller.
type Quoter interface {
	QuoteUSD(ctx context.Context) (float64, error)
}

// CoinGeckoQuoter fetches the spot price from the CoinGecko public API.
type CoinGeckoQuoter struct {
	url    string
	client *http.Client
}

// NewCoinGeckoQuoter creates a quoter against the CoinGecko API.
// An empty url selects DefaultQuoteURL.
func NewCoinGeckoQuoter(url string) *CoinGeckoQuoter {
	if url == "" {
		url = DefaultQuoteURL
	}
	return &CoinGeckoQuoter{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// QuoteUSD fetches the current BTC price in USD.
func (q *CoinGeckoQuoter) QuoteUSD(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch price: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Bitcoin struct {
			USD *float64 `json:"usd"`
		} `json:"bitcoin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode price response: %w", err)
	}
	if body.Bitcoin.USD == nil {
		return 0, fmt.Errorf("price response missing bitcoin.usd")
	}

	return *body.Bitcoin.USD, nil
}
