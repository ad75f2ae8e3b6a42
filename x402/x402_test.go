package x402

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/tiersplit-go/identity"
)

var testContract = identity.Derive([]byte("tiersplit/contract"), []byte("x402-test"))

// --- Quote Tests ---

func TestNewQuote(t *testing.T) {
	q, err := NewQuote(testContract, "standard", 150_000_000, "native", time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, testContract, q.Contract)
	assert.Equal(t, "standard", q.Tier)
	assert.Equal(t, uint64(150_000_000), q.ListPrice)
	assert.Equal(t, uint64(135_000_000), q.Price)
	assert.Equal(t, "native", q.Asset)
	assert.Greater(t, q.Expiry, time.Now().Unix())
	assert.False(t, q.IsExpired())
}

func TestNewQuote_UniqueIDs(t *testing.T) {
	a, err := NewQuote(testContract, "basic", 1, "native", 0)
	require.NoError(t, err)
	b, err := NewQuote(testContract, "basic", 1, "native", 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewQuote_NoTTLNeverExpires(t *testing.T) {
	q, err := NewQuote(testContract, "basic", 100, "native", 0)
	require.NoError(t, err)
	assert.Zero(t, q.Expiry)
	assert.False(t, q.IsExpired())
}

func TestNewQuote_InvalidParams(t *testing.T) {
	_, err := NewQuote(testContract, "", 100, "native", 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewQuote(testContract, "basic", 100, "", 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestQuote_Check(t *testing.T) {
	q, err := NewQuote(testContract, "premium", 200_000_000, "native", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		tier    string
		amount  uint64
		wantErr error
	}{
		{"exact", "premium", 180_000_000, nil},
		{"list price", "premium", 200_000_000, ErrAmountMismatch},
		{"one short", "premium", 179_999_999, ErrAmountMismatch},
		{"wrong tier", "basic", 180_000_000, ErrTierMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := q.Check(tt.tier, tt.amount)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestQuote_CheckExpired(t *testing.T) {
	q := &Quote{Tier: "basic", Price: 9, Expiry: time.Now().Add(-time.Minute).Unix()}
	assert.True(t, q.IsExpired())
	assert.ErrorIs(t, q.Check("basic", 9), ErrQuoteExpired)
}

func TestQuote_CheckNil(t *testing.T) {
	var q *Quote
	assert.ErrorIs(t, q.Check("basic", 0), ErrInvalidParams)
}

// --- Header Tests ---

func TestQuoteHeaders_RoundTrip(t *testing.T) {
	q, err := NewQuote(testContract, "basic", 100_000_000, "token:gold", time.Hour)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	SetQuoteHeaders(rec, q)
	resp := rec.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "90000000", resp.Header.Get(HeaderPrice))
	assert.Equal(t, testContract.Hex(), resp.Header.Get(HeaderContract))

	got, err := ParseQuoteHeaders(resp)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestParseQuoteHeaders_Missing(t *testing.T) {
	full := http.Header{}
	full.Set(HeaderPrice, "90")
	full.Set(HeaderListPrice, "100")
	full.Set(HeaderTier, "basic")
	full.Set(HeaderAsset, "native")
	full.Set(HeaderContract, testContract.Hex())
	full.Set(HeaderQuoteID, "q-1")

	for _, name := range []string{HeaderPrice, HeaderListPrice, HeaderTier, HeaderAsset, HeaderContract, HeaderQuoteID} {
		t.Run(name, func(t *testing.T) {
			h := full.Clone()
			h.Del(name)
			_, err := ParseQuoteHeaders(&http.Response{Header: h})
			assert.ErrorIs(t, err, ErrMissingHeaders)
		})
	}

	q, err := ParseQuoteHeaders(&http.Response{Header: full})
	require.NoError(t, err)
	assert.Zero(t, q.Expiry)
}

func TestParseQuoteHeaders_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"price", HeaderPrice, "ninety"},
		{"list price", HeaderListPrice, "-1"},
		{"contract", HeaderContract, "nowhere"},
		{"expiry", HeaderExpiry, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(HeaderPrice, "90")
			h.Set(HeaderListPrice, "100")
			h.Set(HeaderTier, "basic")
			h.Set(HeaderAsset, "native")
			h.Set(HeaderContract, testContract.Hex())
			h.Set(HeaderQuoteID, "q-1")
			h.Set(tt.header, tt.value)
			_, err := ParseQuoteHeaders(&http.Response{Header: h})
			assert.ErrorIs(t, err, ErrMissingHeaders)
		})
	}
}
