package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/storage"
)

// Manager mediates all access to persisted ledger state. Balances and
// allowances are stored as big-endian big.Int bytes, nonce flags as single
// marker bytes under their digest, and process-wide parameters under fixed
// meta keys.
type Manager struct {
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Balance returns the stored balance for an account, zero when absent.
func (m *Manager) Balance(account types.Account) (*big.Int, error) {
	raw, err := m.db.Get(balanceKey(account))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load balance: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// SetBalance persists an account balance. Values outside the unsigned
// 128-bit domain are rejected before anything is written.
func (m *Manager) SetBalance(account types.Account, value *big.Int) error {
	if !types.ValidBalance(value) {
		return fmt.Errorf("state: balance out of range for %s", account.Hex())
	}
	if err := m.db.Put(balanceKey(account), value.Bytes()); err != nil {
		return fmt.Errorf("state: store balance: %w", err)
	}
	return nil
}

// Allowance returns the stored allowance for (owner, spender), zero when
// absent.
func (m *Manager) Allowance(owner, spender types.Account) (*big.Int, error) {
	raw, err := m.db.Get(allowanceKey(owner, spender))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load allowance: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// SetAllowance persists an allowance for (owner, spender).
func (m *Manager) SetAllowance(owner, spender types.Account, value *big.Int) error {
	if !types.ValidBalance(value) {
		return fmt.Errorf("state: allowance out of range for %s", owner.Hex())
	}
	if err := m.db.Put(allowanceKey(owner, spender), value.Bytes()); err != nil {
		return fmt.Errorf("state: store allowance: %w", err)
	}
	return nil
}

// NonceUsed reports whether the nonce digest has ever been consumed.
func (m *Manager) NonceUsed(digest [32]byte) (bool, error) {
	used, err := m.db.Has(nonceStorageKey(digest))
	if err != nil {
		return false, fmt.Errorf("state: load nonce: %w", err)
	}
	return used, nil
}

// MarkNonceUsed flags a nonce digest as consumed. The flag is never cleared:
// replay protection has to hold for the lifetime of the ledger, so consumed
// digests are persisted forever.
func (m *Manager) MarkNonceUsed(digest [32]byte) error {
	if err := m.db.Put(nonceStorageKey(digest), []byte{1}); err != nil {
		return fmt.Errorf("state: mark nonce: %w", err)
	}
	return nil
}

// Owner returns the admin/facilitator account.
func (m *Manager) Owner() (types.Account, error) {
	raw, err := m.db.Get([]byte(metaOwnerKey))
	if err != nil {
		return types.Account{}, fmt.Errorf("state: load owner: %w", err)
	}
	return types.AccountFromBytes(raw)
}

// SetOwner persists the admin/facilitator account.
func (m *Manager) SetOwner(owner types.Account) error {
	if err := m.db.Put([]byte(metaOwnerKey), owner[:]); err != nil {
		return fmt.Errorf("state: store owner: %w", err)
	}
	return nil
}

// FeeBps returns the facilitator fee rate in basis points.
func (m *Manager) FeeBps() (uint32, error) {
	raw, err := m.db.Get([]byte(metaFeeBpsKey))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("state: load fee rate: %w", err)
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("state: corrupt fee rate entry (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}

// SetFeeBps persists the facilitator fee rate.
func (m *Manager) SetFeeBps(bps uint32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, bps)
	if err := m.db.Put([]byte(metaFeeBpsKey), buf); err != nil {
		return fmt.Errorf("state: store fee rate: %w", err)
	}
	return nil
}

// TotalSupply returns the minted token supply.
func (m *Manager) TotalSupply() (*big.Int, error) {
	raw, err := m.db.Get([]byte(metaSupplyKey))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load supply: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// SetTotalSupply persists the minted token supply.
func (m *Manager) SetTotalSupply(value *big.Int) error {
	if !types.ValidBalance(value) {
		return fmt.Errorf("state: supply out of range")
	}
	if err := m.db.Put([]byte(metaSupplyKey), value.Bytes()); err != nil {
		return fmt.Errorf("state: store supply: %w", err)
	}
	return nil
}

// Initialized reports whether genesis has been applied to this store.
func (m *Manager) Initialized() (bool, error) {
	has, err := m.db.Has([]byte(metaOwnerKey))
	if err != nil {
		return false, fmt.Errorf("state: probe owner: %w", err)
	}
	return has, nil
}
