package payments

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/HTTPayer/polkax402/core/events"
	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/native/fees"
	"github.com/HTTPayer/polkax402/observability"
)

var (
	ErrNilState           = errors.New("payments engine: state not configured")
	ErrNilLedger          = errors.New("payments engine: ledger not configured")
	ErrExpired            = errors.New("payments engine: authorization expired")
	ErrNonceAlreadyUsed   = errors.New("payments engine: nonce already used")
	ErrInvalidSignature   = errors.New("payments engine: invalid signature")
	ErrZeroAmount         = errors.New("payments engine: amount must be positive")
	ErrArithmeticOverflow = errors.New("payments engine: arithmetic overflow")
	ErrTransferFailed     = errors.New("payments engine: transfer failed")
	ErrUnauthorized       = errors.New("payments engine: caller is not the owner")
	ErrInvalidFeeBps      = errors.New("payments engine: fee rate exceeds 10000 bps")
)

// State is the persistence surface the engine needs beyond balances: the
// nonce registry and the process-wide fee configuration.
type State interface {
	NonceUsed(digest [32]byte) (bool, error)
	MarkNonceUsed(digest [32]byte) error
	Owner() (types.Account, error)
	FeeBps() (uint32, error)
	SetFeeBps(bps uint32) error
}

// Ledger is the balance mutator the engine settles through.
type Ledger interface {
	Transfer(from, to types.Account, value *big.Int) error
}

// Result reports a settled authorization back to the submitting facilitator.
type Result struct {
	Success        bool     `json:"success"`
	NetAmount      *big.Int `json:"netAmount"`
	FacilitatorFee *big.Int `json:"facilitatorFee"`
	Nonce          string   `json:"nonce"`
}

// Engine runs the authorization pipeline: expiry check, nonce check,
// signature verification, fee split, nonce commit, then the two transfer
// legs. Invocations are serialized by a single mutex so each call observes a
// consistent snapshot and its mutations land atomically for the next call.
type Engine struct {
	mu      sync.Mutex
	state   State
	ledger  Ledger
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() uint64
}

// NewEngine creates a payments engine with a no-op emitter and the wall
// clock as its time source.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the nonce/fee state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the balance mutator used for settlement.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// SetNowFunc overrides the time source. Primarily intended for tests to
// provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// ExecutePayment settles a signed payment authorization submitted by a
// facilitator on the holder's behalf. The pipeline runs strictly forward and
// terminates at the first rejection; a consumed nonce is never released, even
// when the principal transfer later fails.
func (e *Engine) ExecutePayment(from, to types.Account, amount *big.Int, nonce string, validUntil uint64, signature []byte) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.ledger == nil {
		return nil, ErrNilLedger
	}

	// 1. Expiry. A validUntil equal to the current time is still acceptable.
	if now := e.nowFn(); now > validUntil {
		return nil, e.reject(from, nonce, "authorization expired", ErrExpired)
	}

	// 2. Replay protection.
	key := NonceKey(from, nonce)
	used, err := e.state.NonceUsed(key)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, e.reject(from, nonce, "nonce already used", ErrNonceAlreadyUsed)
	}

	// 3. Signature.
	check := VerifySignature(from, to, amount, nonce, validUntil, signature)
	e.emitter.Emit(events.SignatureChecked{Digest: check.Digest, Valid: check.Valid, SigLength: check.SigLength})
	e.logger.Debug("signature checked",
		slog.String("from", from.Hex()),
		slog.Bool("valid", check.Valid),
		slog.Int("sigLength", check.SigLength))
	if !check.Valid {
		return nil, e.reject(from, nonce, "invalid signature", ErrInvalidSignature)
	}

	// 4. Amount.
	if amount == nil || amount.Sign() <= 0 {
		return nil, e.reject(from, nonce, "zero amount", ErrZeroAmount)
	}

	// 5. Fee split.
	feeBps, err := e.state.FeeBps()
	if err != nil {
		return nil, err
	}
	split, err := fees.Apply(amount, feeBps)
	if err != nil {
		return nil, e.reject(from, nonce, "arithmetic overflow", fmt.Errorf("%w: %v", ErrArithmeticOverflow, err))
	}

	// 6. Commit the nonce before any balance mutation. If a transfer leg
	// re-enters the engine, step 2 already sees the nonce as consumed.
	if err := e.state.MarkNonceUsed(key); err != nil {
		return nil, err
	}

	// 7. Principal leg. The nonce stays consumed on failure: a rejected
	// authorization is burned rather than left open to retry.
	if err := e.ledger.Transfer(from, to, split.Net); err != nil {
		return nil, e.reject(from, nonce, "transfer failed", fmt.Errorf("%w: %v", ErrTransferFailed, err))
	}

	// 8. Fee leg, best effort. A failure here must not unwind the principal.
	if split.Fee.Sign() > 0 {
		owner, err := e.state.Owner()
		if err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(from, owner, split.Fee); err != nil {
			e.logger.Warn("facilitator fee transfer failed",
				slog.String("from", from.Hex()),
				slog.String("fee", split.Fee.String()),
				slog.Any("error", err))
		}
	}

	e.emitter.Emit(events.PaymentExecuted{
		From:           from,
		To:             to,
		Amount:         types.CloneBalance(split.Net),
		FacilitatorFee: types.CloneBalance(split.Fee),
		Nonce:          nonce,
	})
	observability.Payments().RecordExecuted()
	return &Result{
		Success:        true,
		NetAmount:      split.Net,
		FacilitatorFee: split.Fee,
		Nonce:          nonce,
	}, nil
}

// IsNonceUsed reports whether a (signer, nonce) pair has been consumed.
func (e *Engine) IsNonceUsed(from types.Account, nonce string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return false, ErrNilState
	}
	return e.state.NonceUsed(NonceKey(from, nonce))
}

// FeeBps returns the current facilitator fee rate in basis points.
func (e *Engine) FeeBps() (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0, ErrNilState
	}
	return e.state.FeeBps()
}

// Owner returns the admin/facilitator account.
func (e *Engine) Owner() (types.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return types.Account{}, ErrNilState
	}
	return e.state.Owner()
}

// SetFeeBps updates the facilitator fee rate. Only the owner may call it,
// and rates past the full 10000 bps scale are rejected before any write.
func (e *Engine) SetFeeBps(caller types.Account, bps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	owner, err := e.state.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrUnauthorized
	}
	if bps > fees.MaxBps {
		return fmt.Errorf("%w: %d", ErrInvalidFeeBps, bps)
	}
	return e.state.SetFeeBps(bps)
}

func (e *Engine) reject(from types.Account, nonce, reason string, err error) error {
	e.emitter.Emit(events.PaymentFailed{From: from, Nonce: nonce, Reason: reason})
	observability.Payments().RecordFailed(reason)
	e.logger.Info("payment rejected",
		slog.String("from", from.Hex()),
		slog.String("nonce", nonce),
		slog.String("reason", reason))
	return err
}
