package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// AccountLength is the size of a raw account identifier in bytes. Account
// identifiers double as Ed25519 public keys when verifying payment
// authorizations, so the length matches the Ed25519 public key size.
const AccountLength = 32

// Account is an opaque 32-byte ledger identity. Accounts have no lifecycle:
// any identifier is a valid account whose balance starts at zero.
type Account [AccountLength]byte

// AccountFromBytes copies the supplied slice into an Account. It rejects any
// length other than AccountLength.
func AccountFromBytes(b []byte) (Account, error) {
	var a Account
	if len(b) != AccountLength {
		return a, fmt.Errorf("types: account must be %d bytes (got %d)", AccountLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAccount decodes a 0x-prefixed (or bare) hex account identifier.
func ParseAccount(s string) (Account, error) {
	var a Account
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return a, fmt.Errorf("types: decode account: %w", err)
	}
	return AccountFromBytes(decoded)
}

// Bytes returns a copy of the raw identifier.
func (a Account) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// Hex renders the identifier as 0x-prefixed hex.
func (a Account) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the identifier is all zero bytes.
func (a Account) IsZero() bool {
	var zero Account
	return bytes.Equal(a[:], zero[:])
}
