package payment

import (
	"fmt"

	"github.com/fosterlabs/blink-engine/services/blink-service/internal/domain"
)

// Beneficiary is one payout target in minor fiat units.
type Beneficiary struct {
	Address   string
	AmountUSD int64
}

// CalculateShares merges seller and platform payouts into a per-address
// total. Entries for the same address accumulate. Any negative amount
// rejects the whole split; the fiat total is otherwise preserved
// exactly.
func CalculateShares(sellers, platform []Beneficiary) (map[string]int64, error) {
	shares := make(map[string]int64, len(sellers)+len(platform))
	for _, b := range append(append([]Beneficiary{}, sellers...), platform...) {
		if b.AmountUSD < 0 {
			return nil, fmt.Errorf("%w: %d for %s", domain.ErrNegativeAmount, b.AmountUSD, b.Address)
		}
		shares[b.Address] += b.AmountUSD
	}
	return shares, nil
}

// BuildSplit converts per-address fiat shares into a payment split at
// the given rate. A non-positive rate converts every share to zero
// lamports; the fiat amounts are kept so the order remains auditable.
func BuildSplit(shares map[string]int64, usdPerSOL float64) domain.PaymentSplit {
	split := make(domain.PaymentSplit, 0, len(shares))
	for address, usd := range shares {
		split = append(split, domain.SplitEntry{
			Address:  address,
			USD:      usd,
			Lamports: USDToLamports(usd, usdPerSOL),
		})
	}
	return split
}
