package payments

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/blake3"

	"github.com/HTTPayer/polkax402/core/types"
)

// The signed authorization message is a fixed-order concatenation of the
// canonical encodings of every payload field:
//
//	from[32] ++ to[32] ++ amount(16-byte little-endian u128) ++
//	nonce(raw UTF-8) ++ validUntil(8-byte little-endian u64)
//
// Signers run off-system, so this layout is a wire contract: both sides must
// reproduce it byte for byte or every signature verifies false.

const uint128Size = 16

// BuildMessage assembles the canonical byte string a holder signs to
// authorize a payment.
func BuildMessage(from, to types.Account, amount *big.Int, nonce string, validUntil uint64) []byte {
	message := make([]byte, 0, 2*types.AccountLength+uint128Size+len(nonce)+8)
	message = append(message, from[:]...)
	message = append(message, to[:]...)
	message = append(message, encodeUint128LE(amount)...)
	message = append(message, nonce...)
	message = append(message, encodeUint64LE(validUntil)...)
	return message
}

// MessageDigest hashes the canonical message down to the 32-byte digest the
// detached signature covers.
func MessageDigest(from, to types.Account, amount *big.Int, nonce string, validUntil uint64) [32]byte {
	return blake3.Sum256(BuildMessage(from, to, amount, nonce, validUntil))
}

// NonceKey derives the replay-protection digest for a (signer, nonce) pair:
// Keccak-256 over the signer's raw 32 bytes followed by the nonce's UTF-8
// bytes. The digest, not the nonce string, is what the registry persists.
func NonceKey(from types.Account, nonce string) [32]byte {
	data := make([]byte, 0, types.AccountLength+len(nonce))
	data = append(data, from[:]...)
	data = append(data, nonce...)
	var key [32]byte
	copy(key[:], ethcrypto.Keccak256(data))
	return key
}

func encodeUint128LE(v *big.Int) []byte {
	buf := make([]byte, uint128Size)
	// Values outside the unsigned 128-bit domain have no encoding; they are
	// rejected at verification, so the zero buffer here is never signed over.
	if !types.ValidBalance(v) {
		return buf
	}
	be := v.Bytes()
	for i, b := range be {
		buf[len(be)-1-i] = b
	}
	return buf
}

func encodeUint64LE(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}
