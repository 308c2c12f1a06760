package state

import "github.com/HTTPayer/polkax402/core/types"

// Storage key layout. Every component owns exactly one prefix; nothing else
// reads or writes inside another component's bucket.
const (
	balancePrefix   = "bal/"
	allowancePrefix = "alw/"
	noncePrefix     = "nonce/"

	metaOwnerKey  = "meta/owner"
	metaFeeBpsKey = "meta/feebps"
	metaSupplyKey = "meta/supply"
)

func balanceKey(account types.Account) []byte {
	return append([]byte(balancePrefix), account[:]...)
}

func allowanceKey(owner, spender types.Account) []byte {
	key := make([]byte, 0, len(allowancePrefix)+2*types.AccountLength)
	key = append(key, allowancePrefix...)
	key = append(key, owner[:]...)
	key = append(key, spender[:]...)
	return key
}

func nonceStorageKey(digest [32]byte) []byte {
	return append([]byte(noncePrefix), digest[:]...)
}
