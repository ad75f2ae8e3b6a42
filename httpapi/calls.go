package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/bitfsorg/tiersplit-go/envelope"
	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/ledger"
	"github.com/bitfsorg/tiersplit-go/splitter"
)

// Call methods accepted by POST /v1/contracts/{contract}/calls.
const (
	MethodMakePayment              = "make-payment"
	MethodApproveRelease           = "approve-release"
	MethodUpdatePrice              = "update-price"
	MethodUpdatePayerAdmin         = "update-payer-admin"
	MethodUpdateContentAdmin       = "update-content-admin"
	MethodUpdateContentSubAdmin    = "update-content-sub-admin"
	MethodUpdateRevenueShareWallet = "update-revenue-share-wallet"
)

// MethodTransfer is the method of envelopes POSTed to /v1/transfers. Their
// contract field is the zero address.
const MethodTransfer = "transfer"

// Argument names.
const (
	ArgTier    = "tier"
	ArgAmount  = "amount"
	ArgPrice   = "price"
	ArgAccount = "account"
	ArgAsset   = "asset"
	ArgTo      = "to"
)

// CallResponse is the result of a successful call. Exactly one of the
// payload fields is set, depending on the method.
type CallResponse struct {
	Method   string             `json:"method"`
	Caller   identity.Address   `json:"caller"`
	Payment  *splitter.Event    `json:"payment,omitempty"`
	Approval *splitter.Approval `json:"approval,omitempty"`
}

func arg(env *envelope.Envelope, name string) (string, error) {
	v, ok := env.Args[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing argument %q", errBadRequest, name)
	}
	return v, nil
}

func uintArg(env *envelope.Envelope, name string) (uint64, error) {
	s, err := arg(env, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %q: %w", errBadRequest, name, err)
	}
	return v, nil
}

func tierArg(env *envelope.Envelope) (splitter.Tier, error) {
	s, err := arg(env, ArgTier)
	if err != nil {
		return 0, err
	}
	return splitter.ParseTier(s)
}

func addressArg(env *envelope.Envelope, name string) (identity.Address, error) {
	s, err := arg(env, name)
	if err != nil {
		return identity.Zero, err
	}
	return identity.Parse(s)
}

var roleMethods = map[string]splitter.Role{
	MethodUpdatePayerAdmin:         splitter.RolePayerAdmin,
	MethodUpdateContentAdmin:       splitter.RoleContentAdmin,
	MethodUpdateContentSubAdmin:    splitter.RoleContentSubAdmin,
	MethodUpdateRevenueShareWallet: splitter.RoleRevenueShareWallet,
}

func (s *Server) postCall(w http.ResponseWriter, r *http.Request) {
	c, err := s.contract(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	env, caller, err := s.readEnvelope(w, r, c.Address())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := dispatch(c, env, caller)
	if err != nil {
		s.log.Info("call rejected",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", env.Method),
			zap.Stringer("caller", caller),
			zap.Error(err),
		)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func dispatch(c *splitter.Contract, env *envelope.Envelope, caller identity.Address) (*CallResponse, error) {
	resp := &CallResponse{Method: env.Method, Caller: caller}

	switch env.Method {
	case MethodMakePayment:
		t, err := tierArg(env)
		if err != nil {
			return nil, err
		}
		amount, err := uintArg(env, ArgAmount)
		if err != nil {
			return nil, err
		}
		ev, err := c.MakePayment(caller, t, amount)
		if err != nil {
			return nil, err
		}
		resp.Payment = &ev

	case MethodApproveRelease:
		a, err := c.ApproveRelease(caller)
		if err != nil {
			return nil, err
		}
		resp.Approval = &a

	case MethodUpdatePrice:
		t, err := tierArg(env)
		if err != nil {
			return nil, err
		}
		price, err := uintArg(env, ArgPrice)
		if err != nil {
			return nil, err
		}
		if err := c.UpdatePrice(caller, t, price); err != nil {
			return nil, err
		}

	default:
		role, ok := roleMethods[env.Method]
		if !ok {
			return nil, fmt.Errorf("%w: unknown method %q", errBadRequest, env.Method)
		}
		next, err := addressArg(env, ArgAccount)
		if err != nil {
			return nil, err
		}
		if err := c.UpdateRole(caller, role, next); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// TransferResponse is the result of a successful transfer.
type TransferResponse struct {
	Asset  string           `json:"asset"`
	From   identity.Address `json:"from"`
	To     identity.Address `json:"to"`
	Amount uint64           `json:"amount"`
}

// postTransfer moves value between accounts. Transfers into a contract
// account always fail; contracts are paid through make-payment only.
func (s *Server) postTransfer(w http.ResponseWriter, r *http.Request) {
	env, caller, err := s.readEnvelope(w, r, identity.Zero)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if env.Method != MethodTransfer {
		s.fail(w, r, fmt.Errorf("%w: unknown method %q", errBadRequest, env.Method))
		return
	}

	asset, err := ledger.ForID(env.Args[ArgAsset])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := addressArg(env, ArgTo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := uintArg(env, ArgAmount)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	err = s.transfer(asset, caller, to, amount)
	if err != nil {
		s.log.Info("transfer rejected",
			zap.String("request_id", RequestID(r.Context())),
			zap.Stringer("from", caller),
			zap.Stringer("to", to),
			zap.Error(err),
		)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResponse{Asset: asset.ID(), From: caller, To: to, Amount: amount})
}

// transfer moves value between accounts. Value sent to a contract is
// offered to the contract itself, which refuses it.
func (s *Server) transfer(asset ledger.Asset, from, to identity.Address, amount uint64) error {
	c, err := s.open(to)
	switch {
	case err == nil:
		return c.Receive(from, amount)
	case !errors.Is(err, splitter.ErrContractNotFound):
		return err
	}
	return ledger.New(s.store, asset).Transfer(from, to, amount)
}
