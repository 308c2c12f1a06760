package payments

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/HTTPayer/polkax402/core/types"
)

func testAccount(fill byte) types.Account {
	var a types.Account
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestBuildMessageLayout(t *testing.T) {
	from := testAccount(0x01)
	to := testAccount(0x02)
	nonce := "order-42"
	message := BuildMessage(from, to, big.NewInt(0x0102), nonce, 0x0304)

	wantLen := 32 + 32 + 16 + len(nonce) + 8
	if len(message) != wantLen {
		t.Fatalf("expected %d bytes, got %d", wantLen, len(message))
	}
	if !bytes.Equal(message[:32], from[:]) {
		t.Fatalf("from bytes not first")
	}
	if !bytes.Equal(message[32:64], to[:]) {
		t.Fatalf("to bytes not second")
	}
	// amount 0x0102 little-endian: 02 01 00 ... 00
	amountField := message[64:80]
	if amountField[0] != 0x02 || amountField[1] != 0x01 {
		t.Fatalf("amount not little-endian: % x", amountField)
	}
	for _, b := range amountField[2:] {
		if b != 0 {
			t.Fatalf("amount padding not zero: % x", amountField)
		}
	}
	if string(message[80:80+len(nonce)]) != nonce {
		t.Fatalf("nonce bytes not raw UTF-8")
	}
	untilField := message[80+len(nonce):]
	if untilField[0] != 0x04 || untilField[1] != 0x03 {
		t.Fatalf("validUntil not little-endian: % x", untilField)
	}
}

func TestMessageDigestIsStable(t *testing.T) {
	from := testAccount(0x01)
	to := testAccount(0x02)
	first := MessageDigest(from, to, big.NewInt(1000), "n", 99)
	second := MessageDigest(from, to, big.NewInt(1000), "n", 99)
	if first != second {
		t.Fatalf("digest not deterministic")
	}
	tampered := MessageDigest(from, to, big.NewInt(1001), "n", 99)
	if first == tampered {
		t.Fatalf("digest ignores amount")
	}
}

func TestNonceKey(t *testing.T) {
	from := testAccount(0x01)
	other := testAccount(0x02)
	key := NonceKey(from, "abc")
	if key == (NonceKey(other, "abc")) {
		t.Fatalf("key must bind the signer")
	}
	if key == (NonceKey(from, "abd")) {
		t.Fatalf("key must bind the nonce")
	}
	if key != NonceKey(from, "abc") {
		t.Fatalf("key not deterministic")
	}
}

func TestNonceKeyConcatenationAmbiguity(t *testing.T) {
	// The digest is Hash(from ++ nonce); two different signers never collide
	// because the account segment is fixed width.
	a := testAccount(0x01)
	if NonceKey(a, "xy") == NonceKey(a, "x") {
		t.Fatalf("distinct nonces collided")
	}
}
