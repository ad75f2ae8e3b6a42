package identity

import "errors"

var (
	// ErrInvalidAddress indicates the input is neither a valid base58 nor a hex address.
	ErrInvalidAddress = errors.New("identity: invalid address")

	// ErrZeroAddress indicates the all-zero address was supplied where a real identity is required.
	ErrZeroAddress = errors.New("identity: zero address")
)
