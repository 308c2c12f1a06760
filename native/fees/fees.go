package fees

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/HTTPayer/polkax402/core/types"
)

// MaxBps is the full fee scale: 10000 basis points == 100%.
const MaxBps = 10_000

// ErrOverflow is returned when the fee multiply escapes the unsigned 128-bit
// balance domain. This signals an unreasonable rate or an amount at the
// ceiling, not a retryable condition.
var ErrOverflow = errors.New("fees: arithmetic overflow")

var bpsScale = big.NewInt(MaxBps)

// Result summarises a fee evaluation: the facilitator's cut and the net
// amount left for the recipient.
type Result struct {
	Fee *big.Int
	Net *big.Int
}

// Apply computes the pro-rata facilitator fee for the supplied gross amount,
// fee = floor(amount * feeBps / 10000). The multiply is checked against the
// 128-bit ceiling before dividing. feeBps is clamped to [0, MaxBps] by the
// admin-set path and is not re-validated here.
func Apply(amount *big.Int, feeBps uint32) (Result, error) {
	if amount == nil {
		return Result{Fee: big.NewInt(0), Net: big.NewInt(0)}, nil
	}
	product := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	if product.Cmp(types.MaxBalance) > 0 {
		return Result{}, fmt.Errorf("%w: %s * %d bps", ErrOverflow, amount, feeBps)
	}
	fee := product.Div(product, bpsScale)
	net := new(big.Int).Sub(amount, fee)
	// fee <= amount holds by construction; the sign check is defensive.
	if net.Sign() < 0 {
		return Result{}, fmt.Errorf("%w: fee exceeds amount", ErrOverflow)
	}
	return Result{Fee: fee, Net: net}, nil
}
