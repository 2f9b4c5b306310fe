package txbuilder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/fosterlabs/blink-engine/shared/logging"
	"github.com/fosterlabs/blink-engine/shared/metrics"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// ComputeUnitPriceMicroLamports is the priority fee attached to every
// built transaction so confirmations do not stall under load.
const ComputeUnitPriceMicroLamports = 1_000_000

// CheckpointSource provides the recent blockhash a new transaction is
// anchored to.
type CheckpointSource interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// ValidateAddress parses a base58 account address.
func ValidateAddress(address string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
	}
	return key, nil
}

// Builder assembles unsigned payment transactions from a split.
type Builder struct {
	checkpoints CheckpointSource
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

func NewBuilder(checkpoints CheckpointSource, logger *logging.Logger, m *metrics.Metrics) *Builder {
	return &Builder{checkpoints: checkpoints, logger: logger, metrics: m}
}

// BuildPaymentTransaction produces a base64-encoded unsigned
// transaction paying every split entry from the payer, with the
// compute-unit price set ahead of the transfers. All invalid addresses
// are reported together rather than one at a time. Zero-lamport
// entries are skipped.
func (b *Builder) BuildPaymentTransaction(ctx context.Context, payer string, split domain.PaymentSplit) (string, error) {
	payerKey, err := ValidateAddress(payer)
	if err != nil {
		return "", err
	}

	type transfer struct {
		to       solana.PublicKey
		lamports uint64
	}
	transfers := make([]transfer, 0, len(split))
	var invalid []error
	for _, entry := range split {
		key, err := ValidateAddress(entry.Address)
		if err != nil {
			invalid = append(invalid, err)
			continue
		}
		if entry.Lamports == 0 {
			continue
		}
		transfers = append(transfers, transfer{to: key, lamports: entry.Lamports})
	}
	if len(invalid) > 0 {
		return "", fmt.Errorf("invalid split recipients: %w", errors.Join(invalid...))
	}

	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitPriceInstruction(ComputeUnitPriceMicroLamports).Build(),
	}
	for _, t := range transfers {
		instructions = append(instructions, system.NewTransferInstruction(t.lamports, payerKey, t.to).Build())
	}

	blockhash, err := b.checkpoints.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payerKey))
	if err != nil {
		return "", fmt.Errorf("failed to assemble transaction: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	if b.metrics != nil {
		b.metrics.TransactionsBuilt.Inc()
	}
	b.logger.WithContext(ctx).
		WithField("payer", payer).
		WithField("transfers", len(transfers)).
		Debug("built payment transaction")

	return base64.StdEncoding.EncodeToString(raw), nil
}
