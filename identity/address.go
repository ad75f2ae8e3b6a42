// Package identity defines the opaque fixed-length account identities used by
// tiersplit: role holders, payers, payees and the contract account itself.
//
// An Address is the 20-byte HASH160 of a compressed secp256k1 public key, the
// same value that backs a P2PKH address. Addresses are accepted either in
// base58check form ("1A1zP1...", "mzBc4X...") or as 0x-prefixed hex.
package identity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/ethereum/go-ethereum/common"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// AddressSize is the length of an Address in bytes.
const AddressSize = 20

// Address is an opaque account identity.
type Address [AddressSize]byte

// Zero is the all-zero address. It never identifies a real account.
var Zero Address

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Zero }

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// Hex returns the 0x-prefixed lowercase hex form.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer using the hex form.
func (a Address) String() string { return a.Hex() }

// Base58 renders the address as a P2PKH base58check string for the given network.
func (a Address) Base58(mainnet bool) (string, error) {
	addr, err := script.NewAddressFromPublicKeyHash(a[:], mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr.AddressString, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// FromBytes converts a 20-byte slice into an Address.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// FromPublicKey returns HASH160 of the compressed public key.
func FromPublicKey(pub *ec.PublicKey) Address {
	var a Address
	copy(a[:], bsvhash.Hash160(pub.Compressed()))
	return a
}

// Derive returns HASH160 over the concatenation of parts. Used to allocate
// contract account addresses that no private key controls.
func Derive(parts ...[]byte) Address {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	var a Address
	copy(a[:], bsvhash.Hash160(buf))
	return a
}

// Parse decodes a hex (with or without 0x) or base58check address.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty string", ErrInvalidAddress)
	}

	if common.IsHexAddress(s) {
		return Address(common.HexToAddress(s)), nil
	}

	addr, err := script.NewAddressFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, s, err)
	}
	a, err := FromBytes([]byte(addr.PublicKeyHash))
	if err != nil {
		return Zero, err
	}
	// NewAddressFromString does not verify the checksum; re-encoding does.
	for _, mainnet := range []bool{true, false} {
		if enc, err := a.Base58(mainnet); err == nil && enc == s {
			return a, nil
		}
	}
	return Zero, fmt.Errorf("%w: %q: checksum mismatch", ErrInvalidAddress, s)
}

// ParseNonZero is Parse followed by a zero-address check.
func ParseNonZero(s string) (Address, error) {
	a, err := Parse(s)
	if err != nil {
		return Zero, err
	}
	if a.IsZero() {
		return Zero, ErrZeroAddress
	}
	return a, nil
}
