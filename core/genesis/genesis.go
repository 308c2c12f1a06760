package genesis

import (
	"fmt"
	"math/big"

	"github.com/HTTPayer/polkax402/core/state"
	"github.com/HTTPayer/polkax402/core/types"
)

// Apply initializes an empty state store: the full initial supply is minted
// to the owner, who also acts as facilitator and fee admin. Calling it on an
// already-initialized store is an error; genesis runs exactly once.
func Apply(manager *state.Manager, owner types.Account, supply *big.Int, feeBps uint32) error {
	if manager == nil {
		return fmt.Errorf("genesis: state manager required")
	}
	if owner.IsZero() {
		return fmt.Errorf("genesis: owner account required")
	}
	if feeBps > 10_000 {
		return fmt.Errorf("genesis: fee rate %d exceeds 10000 bps", feeBps)
	}
	initialized, err := manager.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return fmt.Errorf("genesis: state already initialized")
	}
	if supply == nil {
		supply = big.NewInt(0)
	}
	if err := manager.SetOwner(owner); err != nil {
		return err
	}
	if err := manager.SetFeeBps(feeBps); err != nil {
		return err
	}
	if err := manager.SetTotalSupply(supply); err != nil {
		return err
	}
	return manager.SetBalance(owner, supply)
}
