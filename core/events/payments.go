package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/HTTPayer/polkax402/core/types"
)

const (
	// TypePaymentExecuted is emitted once a signed payment authorization has
	// settled, after the principal and fee legs have been applied.
	TypePaymentExecuted = "payments.executed"
	// TypePaymentFailed is emitted when an authorization is rejected, with a
	// human-readable reason for facilitators to surface to holders.
	TypePaymentFailed = "payments.failed"
	// TypeSignatureChecked is a diagnostic record of a signature check. It is
	// for operational debugging only and must never drive correctness.
	TypeSignatureChecked = "payments.signature_checked"
)

// PaymentExecuted records a settled payment authorization. Amount is the net
// amount credited to the recipient after the facilitator fee.
type PaymentExecuted struct {
	From           types.Account
	To             types.Account
	Amount         *big.Int
	FacilitatorFee *big.Int
	Nonce          string
}

// EventType satisfies the events.Event interface.
func (PaymentExecuted) EventType() string { return TypePaymentExecuted }

// Event converts the payment into a wire-friendly representation.
func (e PaymentExecuted) Event() *types.Event {
	return &types.Event{Type: TypePaymentExecuted, Attributes: map[string]string{
		"from":           e.From.Hex(),
		"to":             e.To.Hex(),
		"amount":         bigString(e.Amount),
		"facilitatorFee": bigString(e.FacilitatorFee),
		"nonce":          e.Nonce,
	}}
}

// PaymentFailed records a rejected payment authorization.
type PaymentFailed struct {
	From   types.Account
	Nonce  string
	Reason string
}

// EventType satisfies the events.Event interface.
func (PaymentFailed) EventType() string { return TypePaymentFailed }

// Event converts the failure into a wire-friendly representation.
func (e PaymentFailed) Event() *types.Event {
	return &types.Event{Type: TypePaymentFailed, Attributes: map[string]string{
		"from":   e.From.Hex(),
		"nonce":  e.Nonce,
		"reason": e.Reason,
	}}
}

// SignatureChecked captures the digest, outcome and supplied length of a
// signature verification attempt.
type SignatureChecked struct {
	Digest    [32]byte
	Valid     bool
	SigLength int
}

// EventType satisfies the events.Event interface.
func (SignatureChecked) EventType() string { return TypeSignatureChecked }

// Event converts the diagnostic into a wire-friendly representation.
func (e SignatureChecked) Event() *types.Event {
	return &types.Event{Type: TypeSignatureChecked, Attributes: map[string]string{
		"digest":    "0x" + hex.EncodeToString(e.Digest[:]),
		"valid":     strconv.FormatBool(e.Valid),
		"sigLength": strconv.Itoa(e.SigLength),
	}}
}
