package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/fosterlabs/blink-engine/shared/logging"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Client wraps the Solana RPC endpoint: blockhash checkpoints, balance
// reads, and payment verification.
type Client struct {
	rpc    *rpc.Client
	logger *logging.Logger
}

func NewClient(endpoint string, logger *logging.Logger) *Client {
	return &Client{rpc: rpc.New(endpoint), logger: logger}
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to fetch latest blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	key, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	out, err := c.rpc.GetBalance(ctx, key, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance for %s: %w", address, err)
	}
	return out.Value, nil
}

// VerifyPayment checks the referenced transaction against the order's
// split: every recipient must have gained at least its lamport share.
// Balance deltas rather than instruction inspection keep the check
// robust to how the wallet composed the final transaction.
func (c *Client) VerifyPayment(ctx context.Context, reference string, order *domain.Order) error {
	signature, err := solana.SignatureFromBase58(reference)
	if err != nil {
		return fmt.Errorf("%w: malformed reference %s", domain.ErrPaymentMismatch, reference)
	}

	out, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, reference)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch transaction %s: %w", reference, err)
	}
	if out == nil || out.Meta == nil {
		return fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, reference)
	}
	if out.Meta.Err != nil {
		return fmt.Errorf("%w: transaction %s failed on chain", domain.ErrPaymentMismatch, reference)
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return fmt.Errorf("failed to decode transaction %s: %w", reference, err)
	}

	gains := make(map[string]uint64, len(tx.Message.AccountKeys))
	for i, key := range tx.Message.AccountKeys {
		if i >= len(out.Meta.PreBalances) || i >= len(out.Meta.PostBalances) {
			break
		}
		pre, post := out.Meta.PreBalances[i], out.Meta.PostBalances[i]
		if post > pre {
			gains[key.String()] += post - pre
		}
	}

	for _, entry := range order.Split {
		if entry.Lamports == 0 {
			continue
		}
		if gains[entry.Address] < entry.Lamports {
			c.logger.WithContext(ctx).
				WithField("order_id", order.ID).
				WithField("recipient", entry.Address).
				WithField("expected", entry.Lamports).
				WithField("received", gains[entry.Address]).
				Warn("payment verification failed")
			return fmt.Errorf("%w: recipient %s received %d of %d lamports",
				domain.ErrPaymentMismatch, entry.Address, gains[entry.Address], entry.Lamports)
		}
	}
	return nil
}
