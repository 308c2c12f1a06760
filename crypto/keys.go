package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"

	"github.com/HTTPayer/polkax402/core/types"
)

// AddressHRP is the human-readable bech32 prefix for httpusd accounts.
const AddressHRP = "husd"

// Address is the human-readable form of a 32-byte account identifier.
type Address struct {
	account types.Account
}

// NewAddress wraps an account identifier for display.
func NewAddress(account types.Account) Address {
	return Address{account: account}
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.account[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Account returns the raw identifier behind the address.
func (a Address) Account() types.Account {
	return a.account
}

// DecodeAddress parses a bech32 httpusd address back into an account
// identifier, rejecting foreign prefixes and wrong payload lengths.
func DecodeAddress(addrStr string) (Address, error) {
	hrp, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != AddressHRP {
		return Address{}, fmt.Errorf("unexpected address prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	account, err := types.AccountFromBytes(conv)
	if err != nil {
		return Address{}, err
	}
	return Address{account: account}, nil
}

// --- Key Management ---

// PrivateKey wraps an Ed25519 private key. Holders sign authorization digests
// with it off-system; the node itself never stores holder keys.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// PublicKey wraps an Ed25519 public key. Its raw bytes ARE the account
// identifier: the ledger's identity scheme assumes this equivalence.
type PublicKey struct {
	key ed25519.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes accepts either a 32-byte seed or a full 64-byte
// Ed25519 private key.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return &PrivateKey{key: ed25519.NewKeyFromSeed(b)}, nil
	case ed25519.PrivateKeySize:
		return &PrivateKey{key: ed25519.PrivateKey(append([]byte(nil), b...))}, nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes (got %d)",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(b))
	}
}

// Bytes returns the full 64-byte private key.
func (k *PrivateKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Sign produces a 64-byte detached Ed25519 signature over the digest.
func (k *PrivateKey) Sign(digest []byte) []byte {
	return ed25519.Sign(k.key, digest)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

// Bytes returns the raw 32-byte public key.
func (k *PublicKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Account returns the ledger identity derived from the public key. The
// derivation is the identity function over the raw key bytes.
func (k *PublicKey) Account() types.Account {
	account, err := types.AccountFromBytes(k.key)
	if err != nil {
		panic(err)
	}
	return account
}

func (k *PublicKey) Address() Address {
	return NewAddress(k.Account())
}

// ParseAccount accepts an account rendered either as a bech32 address
// (husd1...) or as 0x-prefixed hex, and returns the raw identifier.
func ParseAccount(s string) (types.Account, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, AddressHRP+"1") {
		addr, err := DecodeAddress(trimmed)
		if err != nil {
			return types.Account{}, err
		}
		return addr.Account(), nil
	}
	return types.ParseAccount(trimmed)
}
