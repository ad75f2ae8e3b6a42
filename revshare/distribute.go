// Package revshare implements the fixed-point percentage arithmetic behind a
// tier payment: the discounted price a payer must send, and the immediate
// shares carved out of the list price before the remainder goes to escrow.
//
// All percentages are expressed in parts per Precision. Products are computed
// in 128 bits so no uint64 list price can overflow an intermediate.
package revshare

import (
	"fmt"
	"math/bits"
)

const (
	// Precision is the fixed-point denominator for every percentage.
	Precision uint64 = 1_000_000

	// DiscountPercent is the concession applied to the list price (10%).
	DiscountPercent uint64 = 100_000

	// BonusPercent is the payer admin's share of the list price (10%).
	BonusPercent uint64 = 100_000

	// JVPercent is the revenue-share wallet's share of the list price (20%).
	JVPercent uint64 = 200_000
)

// mulDiv returns a*b/d, truncated, with a 128-bit intermediate.
func mulDiv(a, b, d uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrArithmeticOverflow, a, b, d)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}

// ShareOf returns amount * percent / Precision.
func ShareOf(amount, percent uint64) (uint64, error) {
	if percent > Precision {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercent, percent)
	}
	return mulDiv(amount, percent, Precision)
}

// DiscountedPrice returns the exact amount a payer must send for listPrice.
func DiscountedPrice(listPrice uint64) uint64 {
	// Precision-DiscountPercent < Precision, so mulDiv cannot overflow.
	p, _ := mulDiv(listPrice, Precision-DiscountPercent, Precision)
	return p
}

// SplitPayment computes the shares for a payment of paid against listPrice.
// Shares are taken from the list price, not from paid; the remainder of paid
// is retained.
func SplitPayment(listPrice, paid uint64) (Split, error) {
	jv, err := ShareOf(listPrice, JVPercent)
	if err != nil {
		return Split{}, err
	}
	bonus, err := ShareOf(listPrice, BonusPercent)
	if err != nil {
		return Split{}, err
	}

	immediate, carry := bits.Add64(jv, bonus, 0)
	if carry != 0 {
		return Split{}, fmt.Errorf("%w: shares sum", ErrArithmeticOverflow)
	}
	if immediate > paid {
		return Split{}, fmt.Errorf("%w: shares %d exceed paid %d", ErrInsufficientPayment, immediate, paid)
	}

	return Split{
		ListPrice: listPrice,
		Paid:      paid,
		JVShare:   jv,
		Bonus:     bonus,
		Retained:  paid - immediate,
	}, nil
}
