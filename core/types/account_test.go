package types

import (
	"math/big"
	"strings"
	"testing"
)

func TestAccountFromBytes(t *testing.T) {
	raw := make([]byte, AccountLength)
	raw[0] = 0xAB
	account, err := AccountFromBytes(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account[0] != 0xAB {
		t.Fatalf("account bytes not copied")
	}
	if _, err := AccountFromBytes(raw[:31]); err == nil {
		t.Fatalf("expected error for short identifier")
	}
}

func TestParseAccountHex(t *testing.T) {
	hex := "0x" + strings.Repeat("ab", AccountLength)
	account, err := ParseAccount(hex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Hex() != hex {
		t.Fatalf("roundtrip mismatch: %s", account.Hex())
	}
	if _, err := ParseAccount("0xzz"); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}

func TestValidBalance(t *testing.T) {
	if !ValidBalance(big.NewInt(0)) {
		t.Fatalf("zero should be valid")
	}
	if !ValidBalance(MaxBalance) {
		t.Fatalf("ceiling should be valid")
	}
	over := new(big.Int).Add(MaxBalance, big.NewInt(1))
	if ValidBalance(over) {
		t.Fatalf("2^128 should be rejected")
	}
	if ValidBalance(big.NewInt(-1)) {
		t.Fatalf("negatives should be rejected")
	}
	if ValidBalance(nil) {
		t.Fatalf("nil should be rejected")
	}
}
