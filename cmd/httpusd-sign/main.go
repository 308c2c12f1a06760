// Command httpusd-sign is developer tooling for producing payment
// authorizations off-system: it generates holder keys and signs
// authorization digests that can be submitted via payments_execute.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/HTTPayer/polkax402/crypto"
	"github.com/HTTPayer/polkax402/native/payments"
)

func main() {
	keygen := flag.Bool("keygen", false, "Generate a new holder key pair and exit")
	keyHex := flag.String("key", "", "Holder private key (hex seed or full key)")
	toStr := flag.String("to", "", "Recipient account (bech32 or hex)")
	amountStr := flag.String("amount", "", "Amount as a decimal integer")
	nonce := flag.String("nonce", "", "Caller-chosen nonce string")
	validUntil := flag.Uint64("valid-until", 0, "Expiry as a unix timestamp")
	flag.Parse()

	if *keygen {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			fatal(err)
		}
		pub := key.PubKey()
		fmt.Printf("private key: %s\n", hex.EncodeToString(key.Bytes()))
		fmt.Printf("account:     %s\n", pub.Account().Hex())
		fmt.Printf("address:     %s\n", pub.Address())
		return
	}

	raw, err := hex.DecodeString(*keyHex)
	if err != nil {
		fatal(fmt.Errorf("decode key: %w", err))
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		fatal(err)
	}
	from := key.PubKey().Account()
	to, err := crypto.ParseAccount(*toStr)
	if err != nil {
		fatal(fmt.Errorf("parse recipient: %w", err))
	}
	amount, ok := new(big.Int).SetString(*amountStr, 10)
	if !ok {
		fatal(fmt.Errorf("invalid amount %q", *amountStr))
	}

	digest := payments.MessageDigest(from, to, amount, *nonce, *validUntil)
	signature := key.Sign(digest[:])
	fmt.Printf("from:      %s\n", from.Hex())
	fmt.Printf("digest:    0x%s\n", hex.EncodeToString(digest[:]))
	fmt.Printf("signature: 0x%s\n", hex.EncodeToString(signature))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
