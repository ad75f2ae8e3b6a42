package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeState_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		state *State
	}{
		{"fresh native", &State{Roles: testRoles(), Prices: PriceBook{1, 2, 3}, Asset: "native"}},
		{"funded with one approval", &State{
			Roles:  testRoles(),
			Prices: PriceBook{listPrice, 0, ^uint64(0)},
			Escrow: EscrowState{Retained: retained, ContentAdminApproved: true},
			Asset:  "0xaad8f5f8c36a5cda9840d9f6d893caa64d72aa29",
		}},
		{"both flags", &State{Roles: testRoles(), Escrow: EscrowState{SubAdminApproved: true, ContentAdminApproved: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeState(tt.state)
			require.NoError(t, err)
			assert.Len(t, data, stateHeaderSize+len(tt.state.Asset))

			decoded, err := DecodeState(data)
			require.NoError(t, err)
			assert.Equal(t, tt.state, decoded)
		})
	}
}

func TestDecodeState_Invalid(t *testing.T) {
	good, err := EncodeState(&State{Roles: testRoles(), Asset: "native"})
	require.NoError(t, err)

	badVersion := append([]byte(nil), good...)
	badVersion[0] = 9

	badFlags := append([]byte(nil), good...)
	badFlags[stateHeaderSize-3] = 0x80

	for name, data := range map[string][]byte{
		"too short":   good[:10],
		"bad version": badVersion,
		"bad flags":   badFlags,
		"truncated":   good[:len(good)-1],
		"trailing":    append(append([]byte(nil), good...), 0x00),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeState(data)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}
