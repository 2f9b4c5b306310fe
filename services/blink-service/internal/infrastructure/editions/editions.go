package editions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Client calls the editions service, which owns master edition state
// and assembles the mint transaction for a new print.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)
	return &Client{client: client}
}

type mintPrintRequest struct {
	Buyer string `json:"buyer"`
}

type mintPrintResponse struct {
	Transaction   string `json:"transaction"`
	EditionNumber int64  `json:"edition_number"`
	EditionMint   string `json:"edition_mint"`
}

func (c *Client) MintPrint(ctx context.Context, tokenID, buyer string) (*domain.PrintMint, error) {
	var out mintPrintResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(mintPrintRequest{Buyer: buyer}).
		SetResult(&out).
		Post(fmt.Sprintf("/v1/editions/%s/prints", tokenID))
	if err != nil {
		return nil, fmt.Errorf("print mint request failed for %s: %w", tokenID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("print mint for %s returned %s", tokenID, resp.Status())
	}
	if out.Transaction == "" || out.EditionMint == "" {
		return nil, fmt.Errorf("print mint for %s returned incomplete response", tokenID)
	}
	return &domain.PrintMint{
		Transaction:   out.Transaction,
		EditionNumber: out.EditionNumber,
		EditionMint:   out.EditionMint,
	}, nil
}
