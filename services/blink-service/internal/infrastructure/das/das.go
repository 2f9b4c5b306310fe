package das

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Index queries a Digital Asset Standard RPC endpoint for token
// metadata the catalog does not carry: descriptions and edition
// lineage.
type Index struct {
	client *resty.Client
}

func NewIndex(endpoint string) *Index {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(8 * time.Second)
	return &Index{client: client}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type getAssetResponse struct {
	Result *assetResult `json:"result"`
	Error  *rpcError    `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type assetResult struct {
	Content struct {
		Metadata struct {
			Description string `json:"description"`
		} `json:"metadata"`
	} `json:"content"`
	Supply *struct {
		PrintMaxSupply    *int64  `json:"print_max_supply"`
		EditionNumber     *int64  `json:"edition_number"`
		MasterEditionMint *string `json:"master_edition_mint"`
	} `json:"supply"`
}

func (i *Index) GetAsset(ctx context.Context, tokenID string) (*domain.IndexedAsset, error) {
	var out getAssetResponse
	resp, err := i.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{
			JSONRPC: "2.0",
			ID:      uuid.NewString(),
			Method:  "getAsset",
			Params:  map[string]any{"id": tokenID},
		}).
		SetResult(&out).
		Post("/")
	if err != nil {
		return nil, fmt.Errorf("asset lookup failed for %s: %w", tokenID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("asset lookup for %s returned %s", tokenID, resp.Status())
	}
	if out.Error != nil {
		return nil, fmt.Errorf("asset lookup for %s failed: %s", tokenID, out.Error.Message)
	}
	if out.Result == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNFTNotFound, tokenID)
	}

	asset := &domain.IndexedAsset{
		Description: out.Result.Content.Metadata.Description,
	}
	if out.Result.Supply != nil {
		asset.MasterEditionMint = out.Result.Supply.MasterEditionMint
		asset.EditionNumber = out.Result.Supply.EditionNumber
		asset.PrintMaxSupply = out.Result.Supply.PrintMaxSupply
	}
	return asset, nil
}
