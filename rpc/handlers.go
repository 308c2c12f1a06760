package rpc

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/crypto"
	"github.com/HTTPayer/polkax402/native/payments"
	"github.com/HTTPayer/polkax402/native/token"
)

type rpcHandler func(s *Server, logger *slog.Logger, w http.ResponseWriter, req *RPCRequest)

var methodTable = map[string]rpcHandler{
	"token_balanceOf":      (*Server).handleBalanceOf,
	"token_totalSupply":    (*Server).handleTotalSupply,
	"token_allowance":      (*Server).handleAllowance,
	"token_transfer":       (*Server).handleTransfer,
	"token_approve":        (*Server).handleApprove,
	"token_transferFrom":   (*Server).handleTransferFrom,
	"payments_execute":     (*Server).handleExecutePayment,
	"payments_isNonceUsed": (*Server).handleIsNonceUsed,
	"payments_getFeeBps":   (*Server).handleGetFeeBps,
	"payments_setFeeBps":   (*Server).handleSetFeeBps,
	"payments_getOwner":    (*Server).handleGetOwner,
}

var mutatingMethods = map[string]bool{
	"token_transfer":     true,
	"token_approve":      true,
	"token_transferFrom": true,
	"payments_execute":   true,
	"payments_setFeeBps": true,
}

func parseAccountParam(raw string) (types.Account, error) {
	return crypto.ParseAccount(raw)
}

func parseAmountParam(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, errors.New("amount must be a decimal integer")
	}
	if !types.ValidBalance(amount) {
		return nil, errors.New("amount out of range")
	}
	return amount, nil
}

func parseSignatureParam(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	sig, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.New("signature must be hex encoded")
	}
	return sig, nil
}

func renderAccount(account types.Account) string {
	return crypto.NewAddress(account).String()
}

func writeDomainError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, payments.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, payments.ErrExpired),
		errors.Is(err, payments.ErrNonceAlreadyUsed),
		errors.Is(err, payments.ErrInvalidSignature),
		errors.Is(err, payments.ErrZeroAmount),
		errors.Is(err, payments.ErrArithmeticOverflow),
		errors.Is(err, payments.ErrTransferFailed),
		errors.Is(err, payments.ErrInvalidFeeBps):
		writeError(w, http.StatusOK, id, codePaymentFailed, err.Error(), nil)
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrBalanceOverflow),
		errors.Is(err, token.ErrInvalidAmount):
		writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

// --- token module ---

type balanceOfParams struct {
	Account string `json:"account"`
}

func (s *Server) handleBalanceOf(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params balanceOfParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := parseAccountParam(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.ledger.BalanceOf(account)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"account": renderAccount(account),
		"balance": balance.String(),
	})
}

func (s *Server) handleTotalSupply(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"totalSupply": supply.String(),
		"decimals":    token.Decimals,
	})
}

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

func (s *Server) handleAllowance(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params allowanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAccountParam(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "owner: "+err.Error(), nil)
		return
	}
	spender, err := parseAccountParam(params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "spender: "+err.Error(), nil)
		return
	}
	allowance, err := s.ledger.Allowance(owner, spender)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"allowance": allowance.String()})
}

type transferParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Value  string `json:"value"`
}

func (s *Server) handleTransfer(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params transferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAccountParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "caller: "+err.Error(), nil)
		return
	}
	to, err := parseAccountParam(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "to: "+err.Error(), nil)
		return
	}
	value, err := parseAmountParam(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Transfer(caller, to, value); err != nil {
		logger.Info("transfer rejected", slog.Any("error", err))
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"success": true})
}

type approveParams struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Value   string `json:"value"`
}

func (s *Server) handleApprove(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params approveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAccountParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "caller: "+err.Error(), nil)
		return
	}
	spender, err := parseAccountParam(params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "spender: "+err.Error(), nil)
		return
	}
	value, err := parseAmountParam(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Approve(caller, spender, value); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"success": true})
}

type transferFromParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Value  string `json:"value"`
}

func (s *Server) handleTransferFrom(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params transferFromParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAccountParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "caller: "+err.Error(), nil)
		return
	}
	from, err := parseAccountParam(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "from: "+err.Error(), nil)
		return
	}
	to, err := parseAccountParam(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "to: "+err.Error(), nil)
		return
	}
	value, err := parseAmountParam(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.TransferFrom(caller, from, to, value); err != nil {
		logger.Info("transferFrom rejected", slog.Any("error", err))
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"success": true})
}

// --- payments module ---

type executePaymentParams struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	Nonce      string `json:"nonce"`
	ValidUntil uint64 `json:"validUntil"`
	Signature  string `json:"signature"`
}

func (s *Server) handleExecutePayment(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params executePaymentParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	from, err := parseAccountParam(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "from: "+err.Error(), nil)
		return
	}
	to, err := parseAccountParam(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "to: "+err.Error(), nil)
		return
	}
	amount, err := parseAmountParam(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	signature, err := parseSignatureParam(params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.engine.ExecutePayment(from, to, amount, params.Nonce, params.ValidUntil, signature)
	if err != nil {
		logger.Info("payment rejected", slog.Any("error", err))
		writeDomainError(w, req.ID, err)
		return
	}
	logger.Info("payment executed",
		slog.String("net", result.NetAmount.String()),
		slog.String("fee", result.FacilitatorFee.String()))
	// Amounts travel as decimal strings: u128 values do not fit JSON numbers.
	writeResult(w, req.ID, map[string]interface{}{
		"success":        result.Success,
		"netAmount":      result.NetAmount.String(),
		"facilitatorFee": result.FacilitatorFee.String(),
		"nonce":          result.Nonce,
	})
}

type nonceParams struct {
	From  string `json:"from"`
	Nonce string `json:"nonce"`
}

func (s *Server) handleIsNonceUsed(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params nonceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	from, err := parseAccountParam(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "from: "+err.Error(), nil)
		return
	}
	used, err := s.engine.IsNonceUsed(from, params.Nonce)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"used": used})
}

func (s *Server) handleGetFeeBps(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	bps, err := s.engine.FeeBps()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint32{"feeBps": bps})
}

type setFeeBpsParams struct {
	Caller string `json:"caller"`
	FeeBps uint32 `json:"feeBps"`
}

func (s *Server) handleSetFeeBps(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	var params setFeeBpsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAccountParam(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "caller: "+err.Error(), nil)
		return
	}
	if err := s.engine.SetFeeBps(caller, params.FeeBps); err != nil {
		logger.Warn("setFeeBps rejected", slog.Any("error", err))
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"success": true})
}

func (s *Server) handleGetOwner(logger *slog.Logger, w http.ResponseWriter, req *RPCRequest) {
	owner, err := s.engine.Owner()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"owner": renderAccount(owner)})
}
