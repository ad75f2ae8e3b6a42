package splitter

import (
	"fmt"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/revshare"
)

// PriceBook holds the list price of every tier in base units. Zero is a
// legal price.
type PriceBook [NumTiers]uint64

// Price returns the list price of t.
func (p PriceBook) Price(t Tier) (uint64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	return p[t], nil
}

// Quote returns the exact amount a payer must attach for t.
func (p PriceBook) Quote(t Tier) (uint64, error) {
	list, err := p.Price(t)
	if err != nil {
		return 0, err
	}
	return revshare.DiscountedPrice(list), nil
}

// updatePrice applies OpUpdatePrice to the in-memory state.
func (s *State) updatePrice(caller identity.Address, t Tier, price uint64) error {
	if _, err := s.Roles.authorize(OpUpdatePrice, caller); err != nil {
		return err
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	s.Prices[t] = price
	return nil
}
