// Package money provides fixed-point amount arithmetic for the policy
// engines. Amounts are integer minor units; percentages are basis points
// (1/10000). All division floors, so a computed share never exceeds its
// exact fractional value and Σ shares <= amount always holds.
package money

import (
	"errors"
	"math/big"
)

// FullAllocation is 100% expressed in basis points.
const FullAllocation int64 = 10000

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidBasisPts  = errors.New("basis points must be between 0 and 10000")
	ErrAmountOutOfRange = errors.New("amount exceeds supported range")
)

// MaxAmount bounds incoming amounts so single-percentage math never
// overflows int64. Tier-composed math goes through big.Int regardless.
const MaxAmount int64 = (1 << 62) / FullAllocation

// ValidBasisPoints reports whether bps is a legal percentage.
func ValidBasisPoints(bps int64) bool {
	return bps >= 0 && bps <= FullAllocation
}

// ValidateAmount rejects negative or out-of-range amounts.
func ValidateAmount(amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount > MaxAmount {
		return ErrAmountOutOfRange
	}
	return nil
}

// ApplyBasisPoints returns floor(amount * bps / 10000).
func ApplyBasisPoints(amount int64, bps int64) (int64, error) {
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	if !ValidBasisPoints(bps) {
		return 0, ErrInvalidBasisPts
	}
	return amount * bps / FullAllocation, nil
}

// ApplyTieredBasisPoints returns floor(amount * bps * tierBps / 10000^2).
// The tier percentage multiplies the rule percentage rather than replacing
// it, so a 100% tier leaves the rule's own share untouched. The triple
// product can exceed int64, so the computation runs through big.Int.
func ApplyTieredBasisPoints(amount int64, bps int64, tierBps int64) (int64, error) {
	if err := ValidateAmount(amount); err != nil {
		return 0, err
	}
	if !ValidBasisPoints(bps) || !ValidBasisPoints(tierBps) {
		return 0, ErrInvalidBasisPts
	}
	product := new(big.Int).Mul(big.NewInt(amount), big.NewInt(bps))
	product.Mul(product, big.NewInt(tierBps))
	product.Quo(product, big.NewInt(FullAllocation*FullAllocation))
	return product.Int64(), nil
}
