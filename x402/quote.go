// Package x402 advertises tier prices with HTTP 402 Payment Required.
//
// A Quote carries everything a payer needs to build an exact payment: the
// contract, the tier, its list price, the discounted amount due and the
// asset. Quotes are informational; the contract recomputes the price when
// the payment arrives.
package x402

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/revshare"
)

// Quote is a priced offer for one tier.
type Quote struct {
	ID        string           `json:"id"`
	Contract  identity.Address `json:"contract"`
	Tier      string           `json:"tier"`
	ListPrice uint64           `json:"list_price"`
	Price     uint64           `json:"price"` // discounted amount due
	Asset     string           `json:"asset"`
	Expiry    int64            `json:"expiry"` // Unix timestamp
}

// NewQuote prices tier at listPrice for the given contract and asset.
// ttl of zero yields a quote that never expires.
func NewQuote(contract identity.Address, tier string, listPrice uint64, asset string, ttl time.Duration) (*Quote, error) {
	if tier == "" {
		return nil, fmt.Errorf("%w: empty tier", ErrInvalidParams)
	}
	if asset == "" {
		return nil, fmt.Errorf("%w: empty asset", ErrInvalidParams)
	}
	q := &Quote{
		ID:        uuid.NewString(),
		Contract:  contract,
		Tier:      tier,
		ListPrice: listPrice,
		Price:     revshare.DiscountedPrice(listPrice),
		Asset:     asset,
	}
	if ttl > 0 {
		q.Expiry = time.Now().Add(ttl).Unix()
	}
	return q, nil
}

// IsExpired reports whether the quote has passed its expiry time.
func (q *Quote) IsExpired() bool {
	return q.Expiry != 0 && time.Now().Unix() > q.Expiry
}

// Check verifies that paying amount for tier satisfies the quote.
func (q *Quote) Check(tier string, amount uint64) error {
	if q == nil {
		return fmt.Errorf("%w: nil quote", ErrInvalidParams)
	}
	if q.IsExpired() {
		return ErrQuoteExpired
	}
	if tier != q.Tier {
		return fmt.Errorf("%w: %q, quoted %q", ErrTierMismatch, tier, q.Tier)
	}
	if amount != q.Price {
		return fmt.Errorf("%w: %d, quoted %d", ErrAmountMismatch, amount, q.Price)
	}
	return nil
}
