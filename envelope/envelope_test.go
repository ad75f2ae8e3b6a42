package envelope

import (
	"encoding/hex"
	"math"
	"strings"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/store"
)

func newKey(t *testing.T) *ec.PrivateKey {
	t.Helper()
	priv, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func sampleCall() Call {
	return Call{
		Contract: identity.Derive([]byte("contract")),
		Method:   "make-payment",
		Args:     map[string]string{"tier": "basic", "amount": "9000000"},
		Nonce:    1,
	}
}

// --- Digest ---

func TestDigest_Deterministic(t *testing.T) {
	a := sampleCall()
	b := sampleCall()
	assert.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 32)
}

func TestDigest_CoversEveryField(t *testing.T) {
	base := sampleCall().Digest()

	mutations := map[string]func(c *Call){
		"contract": func(c *Call) { c.Contract = identity.Derive([]byte("other")) },
		"method":   func(c *Call) { c.Method = "approve-release" },
		"arg":      func(c *Call) { c.Args["tier"] = "premium" },
		"new arg":  func(c *Call) { c.Args["extra"] = "" },
		"nonce":    func(c *Call) { c.Nonce = 2 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := sampleCall()
			mutate(&c)
			assert.NotEqual(t, base, c.Digest())
		})
	}
}

func TestDigest_NoFieldBoundaryAmbiguity(t *testing.T) {
	a := Call{Method: "m", Args: map[string]string{"ab": "c"}}
	b := Call{Method: "m", Args: map[string]string{"a": "bc"}}
	assert.NotEqual(t, a.Digest(), b.Digest())
}

// --- Sign / Verify ---

func TestSignVerify_RecoversCaller(t *testing.T) {
	priv := newKey(t)
	env, err := Sign(sampleCall(), priv)
	require.NoError(t, err)

	caller, err := env.Verify()
	require.NoError(t, err)
	assert.Equal(t, identity.FromPublicKey(priv.PubKey()), caller)
}

func TestVerify_TamperedCall(t *testing.T) {
	env, err := Sign(sampleCall(), newKey(t))
	require.NoError(t, err)

	env.Args = map[string]string{"tier": "premium", "amount": "9000000"}
	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_SwappedPublicKey(t *testing.T) {
	env, err := Sign(sampleCall(), newKey(t))
	require.NoError(t, err)

	other, err := Sign(sampleCall(), newKey(t))
	require.NoError(t, err)
	env.PublicKey = other.PublicKey

	_, err = env.Verify()
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_Malformed(t *testing.T) {
	good, err := Sign(sampleCall(), newKey(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(e *Envelope)
	}{
		{"empty method", func(e *Envelope) { e.Method = "" }},
		{"bad pubkey hex", func(e *Envelope) { e.PublicKey = "zz" }},
		{"short pubkey", func(e *Envelope) { e.PublicKey = "02abcd" }},
		{"bad sig hex", func(e *Envelope) { e.Signature = "xyz" }},
		{"garbage sig", func(e *Envelope) { e.Signature = "0102" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := *good
			tt.mutate(&env)
			_, err := env.Verify()
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
}

func TestSign_NilKey(t *testing.T) {
	_, err := Sign(sampleCall(), nil)
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestPrivateKeyFromBytes(t *testing.T) {
	priv := newKey(t)
	got, err := privateKeyFromBytes(priv.Serialize())
	require.NoError(t, err)
	assert.Equal(t, priv.Serialize(), got.Serialize())

	_, err = privateKeyFromBytes([]byte{0xab, 0xcd})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestPrivateKeyFromBytes_OutOfRange(t *testing.T) {
	for name, key := range map[string]string{
		"zero":  strings.Repeat("00", 32),
		"order": "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
		"max":   strings.Repeat("ff", 32),
	} {
		t.Run(name, func(t *testing.T) {
			b, err := hex.DecodeString(key)
			require.NoError(t, err)
			_, err = privateKeyFromBytes(b)
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}

	b, err := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140")
	require.NoError(t, err)
	got, err := privateKeyFromBytes(b)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

// --- Nonces ---

func TestNonces_StrictlyIncreasing(t *testing.T) {
	n := NewNonces(store.NewMemStore())
	caller := identity.Derive([]byte("caller"))

	next, err := n.Next(caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), next)

	require.NoError(t, n.Consume(caller, 5))
	assert.ErrorIs(t, n.Consume(caller, 5), ErrStaleNonce)
	assert.ErrorIs(t, n.Consume(caller, 4), ErrStaleNonce)
	require.NoError(t, n.Consume(caller, 7))

	last, ok, err := n.Last(caller)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(7), last)

	next, err = n.Next(caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), next)
}

func TestNonces_Exhausted(t *testing.T) {
	n := NewNonces(store.NewMemStore())
	caller := identity.Derive([]byte("caller"))

	require.NoError(t, n.Consume(caller, math.MaxUint64-1))
	next, err := n.Next(caller)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), next)

	require.NoError(t, n.Consume(caller, math.MaxUint64))
	_, err = n.Next(caller)
	assert.ErrorIs(t, err, ErrNonceExhausted)
	assert.ErrorIs(t, n.Consume(caller, math.MaxUint64), ErrStaleNonce)
}

func TestNonces_PerCaller(t *testing.T) {
	n := NewNonces(store.NewMemStore())
	require.NoError(t, n.Consume(identity.Derive([]byte("a")), 3))
	require.NoError(t, n.Consume(identity.Derive([]byte("b")), 1))
}

func TestAuthenticate(t *testing.T) {
	n := NewNonces(store.NewMemStore())
	priv := newKey(t)
	call := sampleCall()

	env, err := Sign(call, priv)
	require.NoError(t, err)

	caller, err := n.Authenticate(env, call.Contract)
	require.NoError(t, err)
	assert.Equal(t, identity.FromPublicKey(priv.PubKey()), caller)

	// Replay.
	_, err = n.Authenticate(env, call.Contract)
	assert.ErrorIs(t, err, ErrStaleNonce)

	call.Nonce = 2
	env, err = Sign(call, priv)
	require.NoError(t, err)
	_, err = n.Authenticate(env, identity.Derive([]byte("elsewhere")))
	assert.ErrorIs(t, err, ErrWrongContract)
}
