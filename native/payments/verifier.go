package payments

import (
	"crypto/ed25519"
	"math/big"

	"github.com/HTTPayer/polkax402/core/types"
)

// SignatureLength is the exact size of a detached authorization signature.
const SignatureLength = ed25519.SignatureSize

// SignatureCheck is the diagnostic outcome of a verification attempt. Only
// Valid carries authority; the rest exists for operational debugging and must
// never be consulted for correctness.
type SignatureCheck struct {
	Digest    [32]byte
	Valid     bool
	SigLength int
}

// VerifySignature checks a detached signature over the payload's canonical
// digest, using the sender's raw account bytes as the Ed25519 public key.
// This is the sole authorization gate for signed payments, so it fails
// closed: any malformed input yields false rather than an error.
func VerifySignature(from, to types.Account, amount *big.Int, nonce string, validUntil uint64, signature []byte) SignatureCheck {
	check := SignatureCheck{
		Digest:    MessageDigest(from, to, amount, nonce, validUntil),
		SigLength: len(signature),
	}
	if len(signature) != SignatureLength {
		return check
	}
	// Amounts outside the unsigned 128-bit domain cannot appear in a signed
	// message, so no signature over them can exist.
	if !types.ValidBalance(amount) {
		return check
	}
	// Account identifier bytes double as the public key. The identity scheme
	// guarantees this equivalence; see crypto.PublicKey.Account.
	check.Valid = ed25519.Verify(from[:], check.Digest[:], signature)
	return check
}
