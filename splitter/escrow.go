package splitter

import (
	"fmt"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/revshare"
)

// EscrowState is the contract-wide escrow: one running balance and one
// approval flag per approver role.
type EscrowState struct {
	Retained             uint64 `json:"retained"`
	SubAdminApproved     bool   `json:"sub_admin_approved"`
	ContentAdminApproved bool   `json:"content_admin_approved"`
}

// Phase names the escrow state machine position.
type Phase string

const (
	PhaseEmpty    Phase = "empty"
	PhaseFunded   Phase = "funded"
	PhaseAwaiting Phase = "awaiting-second-approval"
)

// Phase returns the current state machine position. Release is never an
// observable resting phase: it drains and resets within the approving call.
func (e EscrowState) Phase() Phase {
	if e.SubAdminApproved || e.ContentAdminApproved {
		return PhaseAwaiting
	}
	if e.Retained > 0 {
		return PhaseFunded
	}
	return PhaseEmpty
}

// Approvals returns how many of the two approvers have approved.
func (e EscrowState) Approvals() int {
	n := 0
	if e.SubAdminApproved {
		n++
	}
	if e.ContentAdminApproved {
		n++
	}
	return n
}

// State is everything a contract persists.
type State struct {
	Roles  Roles       `json:"roles"`
	Prices PriceBook   `json:"prices"`
	Escrow EscrowState `json:"escrow"`
	Asset  string      `json:"asset"`
}

// Payout is one outbound transfer owed by the contract.
type Payout struct {
	To     identity.Address
	Amount uint64
}

// acceptPayment validates paid against t and books the retained remainder.
// It returns the split and the two immediate payouts. The caller performs
// the transfers after this state change, inside the same transaction.
func (s *State) acceptPayment(t Tier, paid uint64) (revshare.Split, []Payout, error) {
	list, err := s.Prices.Price(t)
	if err != nil {
		return revshare.Split{}, nil, err
	}
	expected := revshare.DiscountedPrice(list)
	if paid != expected {
		return revshare.Split{}, nil, fmt.Errorf("%w: %s requires %d, got %d",
			ErrIncorrectPaymentAmount, t, expected, paid)
	}

	split, err := revshare.SplitPayment(list, paid)
	if err != nil {
		return revshare.Split{}, nil, err
	}

	retained := s.Escrow.Retained + split.Retained
	if retained < s.Escrow.Retained {
		return revshare.Split{}, nil, fmt.Errorf("%w: retained balance", ErrArithmeticOverflow)
	}
	s.Escrow.Retained = retained

	payouts := []Payout{
		{To: s.Roles.RevenueShareWallet, Amount: split.JVShare},
		{To: s.Roles.PayerAdmin, Amount: split.Bonus},
	}
	return split, payouts, nil
}

// approve records caller's approval. When both flags are set it drains the
// retained balance and resets both flags, returning the release payout.
func (s *State) approve(caller identity.Address) (Role, *Payout, error) {
	role, err := s.Roles.authorize(OpApproveRelease, caller)
	if err != nil {
		return 0, nil, err
	}

	switch role {
	case RoleContentAdmin:
		s.Escrow.ContentAdminApproved = true
	case RoleContentSubAdmin:
		s.Escrow.SubAdminApproved = true
	}

	if !s.Escrow.ContentAdminApproved || !s.Escrow.SubAdminApproved {
		return role, nil, nil
	}

	payout := &Payout{To: s.Roles.ContentAdmin, Amount: s.Escrow.Retained}
	s.Escrow = EscrowState{}
	return role, payout, nil
}
