package x402

import "errors"

var (
	// ErrQuoteExpired indicates the quote has passed its expiry time.
	ErrQuoteExpired = errors.New("x402: quote expired")

	// ErrAmountMismatch indicates the offered amount differs from the quoted price.
	ErrAmountMismatch = errors.New("x402: amount does not match quoted price")

	// ErrTierMismatch indicates the payment names a tier other than the quoted one.
	ErrTierMismatch = errors.New("x402: tier does not match quote")

	// ErrInvalidParams indicates one or more parameters are invalid.
	ErrInvalidParams = errors.New("x402: invalid parameters")

	// ErrMissingHeaders indicates required x402 payment headers are missing.
	ErrMissingHeaders = errors.New("x402: missing payment headers")
)
