package revshare

import "errors"

var (
	// ErrArithmeticOverflow indicates an intermediate product does not fit the result width.
	ErrArithmeticOverflow = errors.New("revshare: arithmetic overflow")

	// ErrInsufficientPayment indicates the collected amount cannot cover the immediate shares.
	ErrInsufficientPayment = errors.New("revshare: payment does not cover shares")

	// ErrSplitConservationViolation indicates split parts do not add up to the collected amount.
	ErrSplitConservationViolation = errors.New("revshare: split conservation violated")

	// ErrInvalidPercent indicates a percentage larger than Precision.
	ErrInvalidPercent = errors.New("revshare: percent exceeds precision")

	// ErrInvalidCoinAmount indicates a coin string that is not a non-negative amount
	// representable in base units.
	ErrInvalidCoinAmount = errors.New("revshare: invalid coin amount")
)
