package splitter

import (
	"fmt"
	"strings"
)

// Tier is one of the purchasable price levels.
type Tier uint8

const (
	TierBasic Tier = iota
	TierStandard
	TierPremium

	// NumTiers is the number of enumerated tiers.
	NumTiers = 3
)

var tierNames = [NumTiers]string{"basic", "standard", "premium"}

// AllTiers returns every tier in enumeration order.
func AllTiers() []Tier { return []Tier{TierBasic, TierStandard, TierPremium} }

// Valid reports whether t is an enumerated tier.
func (t Tier) Valid() bool { return t < NumTiers }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return tierNames[t]
}

// ParseTier accepts a tier name (case-insensitive) or its numeric selector.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range tierNames {
		if s == name || s == fmt.Sprint(i) {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
