package revshare

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// CoinDecimals is the number of base units per coin as a power of ten.
const CoinDecimals = 8

// UnitsPerCoin is the number of base units in one coin.
const UnitsPerCoin uint64 = 100_000_000

var maxUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseCoins converts a decimal coin string ("1.5") to base units.
// Amounts with more than CoinDecimals fractional digits are rejected rather
// than rounded.
func ParseCoins(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidCoinAmount, s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidCoinAmount, s)
	}
	units := d.Shift(CoinDecimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidCoinAmount, s, CoinDecimals)
	}
	if units.GreaterThan(maxUnits) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidCoinAmount, s)
	}
	return units.BigInt().Uint64(), nil
}

// FormatCoins renders base units as a decimal coin string without trailing zeros.
func FormatCoins(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -CoinDecimals).String()
}
