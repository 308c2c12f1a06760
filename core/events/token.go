package events

import (
	"math/big"

	"github.com/HTTPayer/polkax402/core/types"
)

const (
	// TypeTransfer is emitted whenever value moves between two accounts,
	// including the principal and fee legs of an authorized payment.
	TypeTransfer = "token.transfer"
	// TypeApproval is emitted when an owner sets a spender allowance.
	TypeApproval = "token.approval"
)

// Transfer records a balance movement between two accounts.
type Transfer struct {
	From  types.Account
	To    types.Account
	Value *big.Int
}

// EventType satisfies the events.Event interface.
func (Transfer) EventType() string { return TypeTransfer }

// Event converts the transfer into a wire-friendly representation.
func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"from":  e.From.Hex(),
		"to":    e.To.Hex(),
		"value": bigString(e.Value),
	}}
}

// Approval records an allowance update by an owner for a spender.
type Approval struct {
	Owner   types.Account
	Spender types.Account
	Value   *big.Int
}

// EventType satisfies the events.Event interface.
func (Approval) EventType() string { return TypeApproval }

// Event converts the approval into a wire-friendly representation.
func (e Approval) Event() *types.Event {
	return &types.Event{Type: TypeApproval, Attributes: map[string]string{
		"owner":   e.Owner.Hex(),
		"spender": e.Spender.Hex(),
		"value":   bigString(e.Value),
	}}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
