package splitter

import (
	"fmt"
	"strings"

	"github.com/bitfsorg/tiersplit-go/identity"
)

// Role names one of the four identities a contract is configured with.
type Role uint8

const (
	// RolePayerAdmin owns pricing, its own rotation and the revenue-share
	// wallet's rotation. Receives the bonus share.
	RolePayerAdmin Role = iota
	// RoleContentAdmin is a release approver and the release recipient.
	RoleContentAdmin
	// RoleContentSubAdmin is the second release approver.
	RoleContentSubAdmin
	// RoleRevenueShareWallet is a passive payee of the JV share.
	RoleRevenueShareWallet

	numRoles = 4
)

var roleNames = [numRoles]string{"payer-admin", "content-admin", "content-sub-admin", "revenue-share-wallet"}

// AllRoles returns every role in enumeration order.
func AllRoles() []Role {
	return []Role{RolePayerAdmin, RoleContentAdmin, RoleContentSubAdmin, RoleRevenueShareWallet}
}

func (r Role) String() string {
	if r >= numRoles {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// ParseRole accepts a role name as printed by String.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range roleNames {
		if s == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r >= numRoles {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Operation is a state-mutating entry point subject to role authorization.
type Operation uint8

const (
	OpUpdatePrice Operation = iota
	OpUpdatePayerAdmin
	OpUpdateRevenueShareWallet
	OpUpdateContentAdmin
	OpUpdateContentSubAdmin
	OpApproveRelease
)

var opNames = map[Operation]string{
	OpUpdatePrice:              "updatePrice",
	OpUpdatePayerAdmin:         "updatePayerAdmin",
	OpUpdateRevenueShareWallet: "updateRevenueShareWallet",
	OpUpdateContentAdmin:       "updateContentAdmin",
	OpUpdateContentSubAdmin:    "updateContentSubAdmin",
	OpApproveRelease:           "approveRelease",
}

func (op Operation) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// authority lists, per operation, the roles allowed to call it. This table is
// the whole authorization policy.
var authority = map[Operation][]Role{
	OpUpdatePrice:              {RolePayerAdmin},
	OpUpdatePayerAdmin:         {RolePayerAdmin},
	OpUpdateRevenueShareWallet: {RolePayerAdmin},
	OpUpdateContentAdmin:       {RoleContentAdmin},
	OpUpdateContentSubAdmin:    {RoleContentAdmin},
	OpApproveRelease:           {RoleContentAdmin, RoleContentSubAdmin},
}

// rotates maps each role-update operation to the role it overwrites.
var rotates = map[Operation]Role{
	OpUpdatePayerAdmin:         RolePayerAdmin,
	OpUpdateRevenueShareWallet: RoleRevenueShareWallet,
	OpUpdateContentAdmin:       RoleContentAdmin,
	OpUpdateContentSubAdmin:    RoleContentSubAdmin,
}

// UpdateOperation returns the operation that rotates r.
func UpdateOperation(r Role) (Operation, error) {
	for op, role := range rotates {
		if role == r {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(r))
}

// Authority returns the roles allowed to call op.
func Authority(op Operation) []Role {
	return append([]Role(nil), authority[op]...)
}

// Roles holds the four configured identities.
type Roles struct {
	PayerAdmin         identity.Address `json:"payer_admin" yaml:"payer_admin"`
	ContentAdmin       identity.Address `json:"content_admin" yaml:"content_admin"`
	ContentSubAdmin    identity.Address `json:"content_sub_admin" yaml:"content_sub_admin"`
	RevenueShareWallet identity.Address `json:"revenue_share_wallet" yaml:"revenue_share_wallet"`
}

// Get returns the holder of r.
func (r *Roles) Get(role Role) (identity.Address, error) {
	switch role {
	case RolePayerAdmin:
		return r.PayerAdmin, nil
	case RoleContentAdmin:
		return r.ContentAdmin, nil
	case RoleContentSubAdmin:
		return r.ContentSubAdmin, nil
	case RoleRevenueShareWallet:
		return r.RevenueShareWallet, nil
	}
	return identity.Zero, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(role))
}

func (r *Roles) set(role Role, addr identity.Address) {
	switch role {
	case RolePayerAdmin:
		r.PayerAdmin = addr
	case RoleContentAdmin:
		r.ContentAdmin = addr
	case RoleContentSubAdmin:
		r.ContentSubAdmin = addr
	case RoleRevenueShareWallet:
		r.RevenueShareWallet = addr
	}
}

// Validate checks the invariants every stored Roles value satisfies: no
// zero holder, no role held by the contract itself, and two distinct
// approvers.
func (r *Roles) Validate(self identity.Address) error {
	for _, role := range AllRoles() {
		addr, _ := r.Get(role)
		if addr.IsZero() {
			return fmt.Errorf("%w: %s", ErrZeroAddress, role)
		}
		if addr == self {
			return fmt.Errorf("%w: %s", ErrReservedAddress, role)
		}
	}
	if r.ContentAdmin == r.ContentSubAdmin {
		return ErrDuplicateApprover
	}
	return nil
}

// authorize returns the first role in op's authority list held by caller.
func (r *Roles) authorize(op Operation, caller identity.Address) (Role, error) {
	if !caller.IsZero() {
		for _, role := range authority[op] {
			holder, _ := r.Get(role)
			if holder == caller {
				return role, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s may not call %s", ErrUnauthorized, caller, op)
}

// rotate applies a role-update operation to the in-memory state.
func (s *State) rotate(op Operation, caller, next identity.Address, self identity.Address) error {
	role, ok := rotates[op]
	if !ok {
		return fmt.Errorf("%w: %s is not a role update", ErrInvalidRole, op)
	}
	if _, err := s.Roles.authorize(op, caller); err != nil {
		return err
	}

	updated := s.Roles
	updated.set(role, next)
	if err := updated.Validate(self); err != nil {
		return err
	}
	// Approval flags belong to the role, not the holder, so a pending
	// approval carries over to the new holder.
	s.Roles = updated
	return nil
}
