package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// CoinGecko quotes SOL/USD from the public simple-price endpoint.
type CoinGecko struct {
	client *resty.Client
}

func NewCoinGecko(baseURL string) *CoinGecko {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &CoinGecko{client: client}
}

type simplePriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

func (c *CoinGecko) USDPerSOL(ctx context.Context) (float64, error) {
	var out simplePriceResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           "solana",
			"vs_currencies": "usd",
		}).
		SetResult(&out).
		Get("/api/v3/simple/price")
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("rate request returned %s", resp.Status())
	}
	if out.Solana.USD <= 0 {
		return 0, fmt.Errorf("rate response missing solana quote")
	}
	return out.Solana.USD, nil
}
