package payments

import (
	"errors"
	"math/big"
	"testing"

	"github.com/HTTPayer/polkax402/core/events"
	"github.com/HTTPayer/polkax402/core/state"
	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/crypto"
	"github.com/HTTPayer/polkax402/native/token"
	"github.com/HTTPayer/polkax402/storage"
)

const testNow uint64 = 1_700_000_000

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) byType(eventType string) []events.Event {
	var matched []events.Event
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			matched = append(matched, evt)
		}
	}
	return matched
}

type testEnv struct {
	manager *state.Manager
	ledger  *token.Ledger
	engine  *Engine
	emitter *recordingEmitter

	owner     types.Account
	holderKey *crypto.PrivateKey
	holder    types.Account
	recipient types.Account
}

func newTestEnv(t *testing.T, feeBps uint32, holderFunds int64) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	emitter := &recordingEmitter{}

	owner := testAccount(0xAA)
	if err := manager.SetOwner(owner); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	if err := manager.SetFeeBps(feeBps); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}

	holderKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate holder key: %v", err)
	}
	holder := holderKey.PubKey().Account()
	if err := manager.SetBalance(holder, big.NewInt(holderFunds)); err != nil {
		t.Fatalf("fund holder: %v", err)
	}
	if err := manager.SetTotalSupply(big.NewInt(holderFunds)); err != nil {
		t.Fatalf("set supply: %v", err)
	}

	ledger := token.NewLedger()
	ledger.SetState(manager)
	ledger.SetEmitter(emitter)

	engine := NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetEmitter(emitter)
	engine.SetNowFunc(func() uint64 { return testNow })

	return &testEnv{
		manager:   manager,
		ledger:    ledger,
		engine:    engine,
		emitter:   emitter,
		owner:     owner,
		holderKey: holderKey,
		holder:    holder,
		recipient: testAccount(0xBB),
	}
}

func (env *testEnv) sign(t *testing.T, amount *big.Int, nonce string, validUntil uint64) []byte {
	t.Helper()
	digest := MessageDigest(env.holder, env.recipient, amount, nonce, validUntil)
	return env.holderKey.Sign(digest[:])
}

func (env *testEnv) balance(t *testing.T, account types.Account) *big.Int {
	t.Helper()
	value, err := env.manager.Balance(account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return value
}

func TestExecutePaymentSuccess(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "order-1", testNow+60)

	result, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "order-1", testNow+60, sig)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success result")
	}
	if result.NetAmount.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("expected net 990, got %s", result.NetAmount)
	}
	if result.FacilitatorFee.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected fee 10, got %s", result.FacilitatorFee)
	}
	if result.Nonce != "order-1" {
		t.Fatalf("expected nonce echoed back, got %q", result.Nonce)
	}

	if got := env.balance(t, env.holder); got.Cmp(big.NewInt(4000)) != 0 {
		t.Fatalf("holder debited %s, want 4000 left", got)
	}
	if got := env.balance(t, env.recipient); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("recipient at %s, want 990", got)
	}
	if got := env.balance(t, env.owner); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("facilitator at %s, want 10", got)
	}

	// Pure redistribution: the three balances still sum to the supply.
	sum := new(big.Int).Add(env.balance(t, env.holder), env.balance(t, env.recipient))
	sum.Add(sum, env.balance(t, env.owner))
	if sum.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("supply not conserved: %s", sum)
	}

	if executed := env.emitter.byType(events.TypePaymentExecuted); len(executed) != 1 {
		t.Fatalf("expected one executed event, got %d", len(executed))
	}
	// Principal and fee legs each emit a transfer observation.
	if transfers := env.emitter.byType(events.TypeTransfer); len(transfers) != 2 {
		t.Fatalf("expected two transfer events, got %d", len(transfers))
	}
}

func TestExecutePaymentToSelf(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(1000)
	digest := MessageDigest(env.holder, env.holder, amount, "self-1", testNow+60)
	sig := env.holderKey.Sign(digest[:])

	result, err := env.engine.ExecutePayment(env.holder, env.holder, amount, "self-1", testNow+60, sig)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.NetAmount.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("expected net 990, got %s", result.NetAmount)
	}
	// The principal leg returns to the sender, so only the fee leaves.
	if got := env.balance(t, env.holder); got.Cmp(big.NewInt(4990)) != 0 {
		t.Fatalf("holder at %s, want 4990", got)
	}
	if got := env.balance(t, env.owner); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("facilitator at %s, want 10", got)
	}
	sum := new(big.Int).Add(env.balance(t, env.holder), env.balance(t, env.owner))
	if sum.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("supply not conserved: %s", sum)
	}
}

func TestExecutePaymentExpiryBoundary(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(1000)

	t.Run("validUntil equal to now is accepted", func(t *testing.T) {
		sig := env.sign(t, amount, "boundary-eq", testNow)
		if _, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "boundary-eq", testNow, sig); err != nil {
			t.Fatalf("boundary payment rejected: %v", err)
		}
	})

	t.Run("validUntil one second in the past is expired", func(t *testing.T) {
		sig := env.sign(t, amount, "boundary-past", testNow-1)
		_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "boundary-past", testNow-1, sig)
		if !errors.Is(err, ErrExpired) {
			t.Fatalf("expected expiry, got %v", err)
		}
		// An expired authorization does not consume its nonce.
		used, err := env.engine.IsNonceUsed(env.holder, "boundary-past")
		if err != nil || used {
			t.Fatalf("expired payment consumed nonce")
		}
	})
}

func TestExecutePaymentReplay(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "replay-1", testNow+60)

	if _, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "replay-1", testNow+60, sig); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	// Identical resubmission: the signature is still valid and unexpired, but
	// the nonce is spent.
	_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "replay-1", testNow+60, sig)
	if !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Fatalf("expected replay rejection, got %v", err)
	}
	if got := env.balance(t, env.recipient); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("replay moved funds: recipient at %s", got)
	}
	failed := env.emitter.byType(events.TypePaymentFailed)
	if len(failed) != 1 {
		t.Fatalf("expected one failure event, got %d", len(failed))
	}
}

func TestExecutePaymentInvalidSignature(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "sig-1", testNow+60)

	t.Run("truncated", func(t *testing.T) {
		_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "sig-1", testNow+60, sig[:63])
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected invalid signature, got %v", err)
		}
	})

	t.Run("extended", func(t *testing.T) {
		long := append(append([]byte(nil), sig...), 0x00)
		_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "sig-1", testNow+60, long)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected invalid signature, got %v", err)
		}
	})

	t.Run("tampered amount", func(t *testing.T) {
		_, err := env.engine.ExecutePayment(env.holder, env.recipient, big.NewInt(2000), "sig-1", testNow+60, sig)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected invalid signature, got %v", err)
		}
	})

	// A failed signature check never consumes the nonce.
	used, err := env.engine.IsNonceUsed(env.holder, "sig-1")
	if err != nil || used {
		t.Fatalf("invalid signature consumed nonce")
	}
}

func TestExecutePaymentOutOfRangeAmount(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	over := new(big.Int).Add(types.MaxBalance, big.NewInt(1))
	sig := env.sign(t, over, "over-1", testNow+60)

	_, err := env.engine.ExecutePayment(env.holder, env.recipient, over, "over-1", testNow+60, sig)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	used, probeErr := env.engine.IsNonceUsed(env.holder, "over-1")
	if probeErr != nil || used {
		t.Fatalf("out-of-range amount consumed nonce")
	}
	if got := env.balance(t, env.holder); got.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("holder balance changed: %s", got)
	}
}

func TestExecutePaymentZeroAmount(t *testing.T) {
	env := newTestEnv(t, 100, 5000)
	amount := big.NewInt(0)
	sig := env.sign(t, amount, "zero-1", testNow+60)

	_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "zero-1", testNow+60, sig)
	if !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected zero amount rejection, got %v", err)
	}
}

func TestExecutePaymentZeroFeeRate(t *testing.T) {
	env := newTestEnv(t, 0, 5000)
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "nofee-1", testNow+60)

	result, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "nofee-1", testNow+60, sig)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.FacilitatorFee.Sign() != 0 {
		t.Fatalf("expected zero fee, got %s", result.FacilitatorFee)
	}
	if result.NetAmount.Cmp(amount) != 0 {
		t.Fatalf("expected full amount, got %s", result.NetAmount)
	}
	if got := env.balance(t, env.owner); got.Sign() != 0 {
		t.Fatalf("facilitator credited without fee: %s", got)
	}
	// No fee leg means a single transfer event.
	if transfers := env.emitter.byType(events.TypeTransfer); len(transfers) != 1 {
		t.Fatalf("expected one transfer event, got %d", len(transfers))
	}
}

func TestTransferFailureConsumesNonce(t *testing.T) {
	env := newTestEnv(t, 100, 500) // not enough for a 1000 payment
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "underfunded-1", testNow+60)

	_, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "underfunded-1", testNow+60, sig)
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	// The nonce was committed before the transfer and stays consumed even
	// though no funds moved: the authorization is burned, not retryable.
	used, probeErr := env.engine.IsNonceUsed(env.holder, "underfunded-1")
	if probeErr != nil || !used {
		t.Fatalf("expected nonce to stay consumed")
	}
	if got := env.balance(t, env.holder); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("holder balance changed: %s", got)
	}
	_, replayErr := env.engine.ExecutePayment(env.holder, env.recipient, amount, "underfunded-1", testNow+60, sig)
	if !errors.Is(replayErr, ErrNonceAlreadyUsed) {
		t.Fatalf("burned authorization should reject as replay, got %v", replayErr)
	}
}

func TestFeeLegIsBestEffort(t *testing.T) {
	// Fund exactly the net amount: the principal leg drains the holder, so
	// the fee leg fails. The payment must still settle.
	env := newTestEnv(t, 100, 990)
	amount := big.NewInt(1000)
	sig := env.sign(t, amount, "besteffort-1", testNow+60)

	result, err := env.engine.ExecutePayment(env.holder, env.recipient, amount, "besteffort-1", testNow+60, sig)
	if err != nil {
		t.Fatalf("payment should settle despite fee leg failure: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success")
	}
	if got := env.balance(t, env.recipient); got.Cmp(big.NewInt(990)) != 0 {
		t.Fatalf("recipient at %s, want 990", got)
	}
	if got := env.balance(t, env.owner); got.Sign() != 0 {
		t.Fatalf("facilitator credited despite failed fee leg: %s", got)
	}
}

func TestSetFeeBps(t *testing.T) {
	env := newTestEnv(t, 100, 0)

	t.Run("non-admin rejected", func(t *testing.T) {
		err := env.engine.SetFeeBps(testAccount(0xCC), 250)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		bps, err := env.engine.FeeBps()
		if err != nil || bps != 100 {
			t.Fatalf("rate changed by unauthorized caller: %d", bps)
		}
	})

	t.Run("admin updates", func(t *testing.T) {
		if err := env.engine.SetFeeBps(env.owner, 250); err != nil {
			t.Fatalf("admin update: %v", err)
		}
		bps, err := env.engine.FeeBps()
		if err != nil || bps != 250 {
			t.Fatalf("expected 250 bps, got %d", bps)
		}
	})

	t.Run("rate above full scale rejected", func(t *testing.T) {
		err := env.engine.SetFeeBps(env.owner, 10_001)
		if !errors.Is(err, ErrInvalidFeeBps) {
			t.Fatalf("expected fee rate rejection, got %v", err)
		}
	})
}

func TestOwnerProbe(t *testing.T) {
	env := newTestEnv(t, 100, 0)
	owner, err := env.engine.Owner()
	if err != nil {
		t.Fatalf("owner probe: %v", err)
	}
	if owner != env.owner {
		t.Fatalf("owner mismatch")
	}
}
