package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/tiersplit-go/identity"
)

func TestUpdatePrice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.contract.UpdatePrice(payerAdmin, TierBasic, 200_000_000))

	got, err := f.contract.Price(TierBasic)
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000_000), got)

	// Other tiers are independent.
	got, err = f.contract.Price(TierStandard)
	require.NoError(t, err)
	assert.Equal(t, listPrice, got)

	quote, err := f.contract.QuotePrice(TierBasic)
	require.NoError(t, err)
	assert.Equal(t, uint64(180_000_000), quote)

	// The new quote applies to the next payment.
	_, err = f.contract.MakePayment(user1, TierBasic, quotedPrice)
	assert.ErrorIs(t, err, ErrIncorrectPaymentAmount)
	_, err = f.contract.MakePayment(user1, TierBasic, quote)
	require.NoError(t, err)
}

func TestUpdatePrice_Unauthorized(t *testing.T) {
	f := newFixture(t)
	for _, caller := range []identity.Address{user1, contentAdmin, subAdmin, jvWallet} {
		err := f.contract.UpdatePrice(caller, TierBasic, 200_000_000)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	got, err := f.contract.Price(TierBasic)
	require.NoError(t, err)
	assert.Equal(t, listPrice, got)
}

func TestUpdatePrice_InvalidTier(t *testing.T) {
	f := newFixture(t)
	err := f.contract.UpdatePrice(payerAdmin, Tier(3), 1)
	assert.ErrorIs(t, err, ErrInvalidTier)
}

func TestRoleUpdates(t *testing.T) {
	tests := []struct {
		name      string
		authority identity.Address
		update    func(c *Contract, caller, next identity.Address) error
		role      Role
		self      bool // the authority rotates itself
	}{
		{"payer admin", payerAdmin, (*Contract).UpdatePayerAdmin, RolePayerAdmin, true},
		{"revenue share wallet", payerAdmin, (*Contract).UpdateRevenueShareWallet, RoleRevenueShareWallet, false},
		{"content admin", contentAdmin, (*Contract).UpdateContentAdmin, RoleContentAdmin, true},
		{"content sub admin", contentAdmin, (*Contract).UpdateContentSubAdmin, RoleContentSubAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/authorized", func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, tt.update(f.contract, tt.authority, fakeUser))

			roles, err := f.contract.Roles()
			require.NoError(t, err)
			got, err := roles.Get(tt.role)
			require.NoError(t, err)
			assert.Equal(t, fakeUser, got)

			// Setting the same holder again is not an error.
			caller := tt.authority
			if tt.self {
				caller = fakeUser
				assert.ErrorIs(t, tt.update(f.contract, tt.authority, user1), ErrUnauthorized)
			}
			require.NoError(t, tt.update(f.contract, caller, fakeUser))
		})

		t.Run(tt.name+"/unauthorized", func(t *testing.T) {
			f := newFixture(t)
			before, err := f.contract.Roles()
			require.NoError(t, err)

			for _, caller := range []identity.Address{user1, fakeUser, subAdmin, jvWallet} {
				if caller == tt.authority {
					continue
				}
				err := tt.update(f.contract, caller, user1)
				assert.ErrorIs(t, err, ErrUnauthorized, "caller=%s", caller)
			}

			after, err := f.contract.Roles()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		t.Run(tt.name+"/zero address", func(t *testing.T) {
			f := newFixture(t)
			err := tt.update(f.contract, tt.authority, identity.Zero)
			assert.ErrorIs(t, err, ErrZeroAddress)
		})

		t.Run(tt.name+"/contract address", func(t *testing.T) {
			f := newFixture(t)
			err := tt.update(f.contract, tt.authority, f.contract.Address())
			assert.ErrorIs(t, err, ErrReservedAddress)
		})
	}
}

func TestUpdateRole_Dispatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.contract.UpdateRole(contentAdmin, RoleContentSubAdmin, fakeUser))

	roles, err := f.contract.Roles()
	require.NoError(t, err)
	assert.Equal(t, fakeUser, roles.ContentSubAdmin)

	err = f.contract.UpdateRole(contentAdmin, Role(9), fakeUser)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRoleUpdate_DuplicateApprover(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.contract.UpdateContentSubAdmin(contentAdmin, contentAdmin), ErrDuplicateApprover)
	assert.ErrorIs(t, f.contract.UpdateContentAdmin(contentAdmin, subAdmin), ErrDuplicateApprover)
}

func TestRoleUpdate_CarriesPendingApproval(t *testing.T) {
	f := newFixture(t)
	_, err := f.contract.MakePayment(user1, TierBasic, quotedPrice)
	require.NoError(t, err)
	_, err = f.contract.ApproveRelease(subAdmin)
	require.NoError(t, err)

	require.NoError(t, f.contract.UpdateContentSubAdmin(contentAdmin, fakeUser))
	assert.True(t, f.escrow(t).SubAdminApproved)

	// The rotated-out approver lost its right to approve.
	_, err = f.contract.ApproveRelease(subAdmin)
	assert.ErrorIs(t, err, ErrUnauthorized)

	a, err := f.contract.ApproveRelease(contentAdmin)
	require.NoError(t, err)
	assert.True(t, a.Released)
	assert.Equal(t, retained, f.balance(t, contentAdmin))
}

func TestRoleUpdate_ReleaseGoesToCurrentContentAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.contract.MakePayment(user1, TierBasic, quotedPrice)
	require.NoError(t, err)
	_, err = f.contract.ApproveRelease(contentAdmin)
	require.NoError(t, err)

	require.NoError(t, f.contract.UpdateContentAdmin(contentAdmin, fakeUser))

	a, err := f.contract.ApproveRelease(subAdmin)
	require.NoError(t, err)
	assert.True(t, a.Released)
	assert.Equal(t, retained, f.balance(t, fakeUser))
	assert.Zero(t, f.balance(t, contentAdmin))
}

func TestRoleUpdate_PayoutsFollowRotation(t *testing.T) {
	f := newFixture(t)
	newJV, newPayer := makeAddr(0x41), makeAddr(0x42)
	require.NoError(t, f.contract.UpdateRevenueShareWallet(payerAdmin, newJV))
	require.NoError(t, f.contract.UpdatePayerAdmin(payerAdmin, newPayer))

	_, err := f.contract.MakePayment(user1, TierBasic, quotedPrice)
	require.NoError(t, err)
	assert.Equal(t, jvShare, f.balance(t, newJV))
	assert.Equal(t, bonusShare, f.balance(t, newPayer))
	assert.Zero(t, f.balance(t, jvWallet))
	assert.Zero(t, f.balance(t, payerAdmin))
}

func TestAuthority(t *testing.T) {
	assert.Equal(t, []Role{RolePayerAdmin}, Authority(OpUpdatePrice))
	assert.Equal(t, []Role{RoleContentAdmin}, Authority(OpUpdateContentSubAdmin))
	assert.Equal(t, []Role{RoleContentAdmin, RoleContentSubAdmin}, Authority(OpApproveRelease))
}

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles() {
		got, err := ParseRole(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseRole("owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"basic", TierBasic},
		{"Standard", TierStandard},
		{" PREMIUM ", TierPremium},
		{"0", TierBasic},
		{"2", TierPremium},
	}
	for _, tt := range tests {
		got, err := ParseTier(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, in := range []string{"", "gold", "3", "-1"} {
		_, err := ParseTier(in)
		assert.ErrorIs(t, err, ErrInvalidTier, in)
	}
	assert.Equal(t, "tier(9)", Tier(9).String())
}
