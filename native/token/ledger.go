package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/HTTPayer/polkax402/core/events"
	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/observability"
)

// Decimals is the fixed display precision of the token.
const Decimals uint8 = 12

var (
	ErrNilState              = errors.New("token ledger: state not configured")
	ErrInvalidAmount         = errors.New("token ledger: amount must be a non-negative integer")
	ErrInsufficientBalance   = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	ErrBalanceOverflow       = errors.New("token ledger: balance overflow")
)

// State is the persistence surface the ledger mutates. Only the ledger
// touches balances and allowances; other modules go through it.
type State interface {
	Balance(account types.Account) (*big.Int, error)
	SetBalance(account types.Account, value *big.Int) error
	Allowance(owner, spender types.Account) (*big.Int, error)
	SetAllowance(owner, spender types.Account, value *big.Int) error
	TotalSupply() (*big.Int, error)
}

// Ledger owns all balance and allowance bookkeeping. Every mutation is
// checked: debits fail on insufficient funds, credits fail past the 128-bit
// ceiling, and either both sides of a transfer apply or neither does.
type Ledger struct {
	state   State
	emitter events.Emitter
}

// NewLedger creates a ledger with a no-op event emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the persistence backend used by the ledger.
func (l *Ledger) SetState(state State) { l.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// BalanceOf returns the balance of an account, zero when absent.
func (l *Ledger) BalanceOf(account types.Account) (*big.Int, error) {
	if l.state == nil {
		return nil, ErrNilState
	}
	return l.state.Balance(account)
}

// Allowance returns the amount a spender may still draw from an owner.
func (l *Ledger) Allowance(owner, spender types.Account) (*big.Int, error) {
	if l.state == nil {
		return nil, ErrNilState
	}
	return l.state.Allowance(owner, spender)
}

// TotalSupply returns the minted supply. Transfers redistribute balances and
// never change it.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	if l.state == nil {
		return nil, ErrNilState
	}
	return l.state.TotalSupply()
}

// Transfer moves value between two accounts. Both the debit and the credit
// are validated before either side is written, so a rejected transfer leaves
// no trace.
func (l *Ledger) Transfer(from, to types.Account, value *big.Int) error {
	if l.state == nil {
		return ErrNilState
	}
	if value == nil || value.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.state.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(value) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance, value)
	}
	if from == to {
		// The debit and credit cancel out; nothing is written.
		l.emitter.Emit(events.Transfer{From: from, To: to, Value: types.CloneBalance(value)})
		observability.Ledger().RecordTransfer()
		return nil
	}
	newFromBalance := new(big.Int).Sub(fromBalance, value)

	toBalance, err := l.state.Balance(to)
	if err != nil {
		return err
	}
	newToBalance := new(big.Int).Add(toBalance, value)
	if newToBalance.Cmp(types.MaxBalance) > 0 {
		return fmt.Errorf("%w: crediting %s", ErrBalanceOverflow, to.Hex())
	}

	if err := l.state.SetBalance(from, newFromBalance); err != nil {
		return err
	}
	if err := l.state.SetBalance(to, newToBalance); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, Value: types.CloneBalance(value)})
	observability.Ledger().RecordTransfer()
	return nil
}

// Approve sets the allowance a spender may draw from the caller's account.
func (l *Ledger) Approve(owner, spender types.Account, value *big.Int) error {
	if l.state == nil {
		return ErrNilState
	}
	if !types.ValidBalance(value) {
		return ErrInvalidAmount
	}
	if err := l.state.SetAllowance(owner, spender, value); err != nil {
		return err
	}
	l.emitter.Emit(events.Approval{Owner: owner, Spender: spender, Value: types.CloneBalance(value)})
	return nil
}

// TransferFrom moves value out of an owner's account on the strength of a
// previously approved allowance. The allowance is only decremented once the
// transfer has succeeded, so a failed transfer does not burn allowance.
func (l *Ledger) TransferFrom(spender, from, to types.Account, value *big.Int) error {
	if l.state == nil {
		return ErrNilState
	}
	if value == nil || value.Sign() < 0 {
		return ErrInvalidAmount
	}
	allowance, err := l.state.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(value) < 0 {
		return fmt.Errorf("%w: %s allows %s, needs %s", ErrInsufficientAllowance, from.Hex(), allowance, value)
	}
	if err := l.Transfer(from, to, value); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(allowance, value)
	return l.state.SetAllowance(from, spender, remaining)
}
