package types

import "math/big"

// MaxBalance is the largest representable balance, 2^128 - 1. Balances travel
// over the wire as unsigned 128-bit integers; any credit that would push an
// account past this ceiling is an arithmetic overflow.
var MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// ValidBalance reports whether v fits the unsigned 128-bit balance domain.
func ValidBalance(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxBalance) <= 0
}

// CloneBalance copies a balance, treating nil as zero.
func CloneBalance(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
