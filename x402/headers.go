package x402

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bitfsorg/tiersplit-go/identity"
)

// x402 HTTP header names.
const (
	HeaderPrice     = "X-Price"
	HeaderListPrice = "X-List-Price"
	HeaderTier      = "X-Tier"
	HeaderAsset     = "X-Asset"
	HeaderContract  = "X-Contract"
	HeaderQuoteID   = "X-Quote-Id"
	HeaderExpiry    = "X-Expiry"
)

// SetQuoteHeaders sets x402 headers on an HTTP response.
// Also sets the status code to 402 Payment Required.
func SetQuoteHeaders(w http.ResponseWriter, q *Quote) {
	h := w.Header()
	h.Set(HeaderPrice, strconv.FormatUint(q.Price, 10))
	h.Set(HeaderListPrice, strconv.FormatUint(q.ListPrice, 10))
	h.Set(HeaderTier, q.Tier)
	h.Set(HeaderAsset, q.Asset)
	h.Set(HeaderContract, q.Contract.Hex())
	h.Set(HeaderQuoteID, q.ID)
	h.Set(HeaderExpiry, strconv.FormatInt(q.Expiry, 10))
	w.WriteHeader(http.StatusPaymentRequired)
}

func requireHeader(h http.Header, name string) (string, error) {
	v := h.Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s header missing", ErrMissingHeaders, name)
	}
	return v, nil
}

func uintHeader(h http.Header, name string) (uint64, error) {
	s, err := requireHeader(h, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s value: %w", ErrMissingHeaders, name, err)
	}
	return v, nil
}

// ParseQuoteHeaders extracts x402 headers from an HTTP response.
func ParseQuoteHeaders(resp *http.Response) (*Quote, error) {
	price, err := uintHeader(resp.Header, HeaderPrice)
	if err != nil {
		return nil, err
	}
	listPrice, err := uintHeader(resp.Header, HeaderListPrice)
	if err != nil {
		return nil, err
	}
	tier, err := requireHeader(resp.Header, HeaderTier)
	if err != nil {
		return nil, err
	}
	asset, err := requireHeader(resp.Header, HeaderAsset)
	if err != nil {
		return nil, err
	}
	contractStr, err := requireHeader(resp.Header, HeaderContract)
	if err != nil {
		return nil, err
	}
	contract, err := identity.Parse(contractStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s value: %w", ErrMissingHeaders, HeaderContract, err)
	}
	id, err := requireHeader(resp.Header, HeaderQuoteID)
	if err != nil {
		return nil, err
	}

	var expiry int64
	if s := resp.Header.Get(HeaderExpiry); s != "" {
		expiry, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s value: %w", ErrMissingHeaders, HeaderExpiry, err)
		}
	}

	return &Quote{
		ID:        id,
		Contract:  contract,
		Tier:      tier,
		ListPrice: listPrice,
		Price:     price,
		Asset:     asset,
		Expiry:    expiry,
	}, nil
}
