// Package envelope authenticates callers of contract operations.
//
// A Call names the target contract, the method, its arguments and a
// per-caller nonce. The caller signs the call digest with a secp256k1 key;
// the verifier derives the caller's identity as HASH160 of the public key,
// so a caller can only ever act as the address its key controls.
package envelope

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/bitfsorg/tiersplit-go/identity"
)

// digestDomain prefixes every call digest.
const digestDomain = "tiersplit/call/v1"

// Call is an unsigned contract invocation.
type Call struct {
	Contract identity.Address `json:"contract"`
	Method   string            `json:"method"`
	Args     map[string]string `json:"args,omitempty"`
	Nonce    uint64            `json:"nonce"`
}

// Envelope is a Call with the caller's public key and signature.
type Envelope struct {
	Call
	PublicKey string `json:"public_key"` // compressed, hex
	Signature string `json:"signature"`  // DER, hex
}

func appendField(buf []byte, field string) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(field)))
	buf = append(buf, n[:]...)
	return append(buf, field...)
}

// Digest returns SHA-256 over a length-prefixed canonical encoding of c.
// Arguments are encoded in key order.
func (c Call) Digest() []byte {
	buf := appendField(nil, digestDomain)
	buf = append(buf, c.Contract[:]...)
	buf = appendField(buf, c.Method)

	keys := make([]string, 0, len(c.Args))
	for k := range c.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(keys)))
	buf = append(buf, n[:]...)
	for _, k := range keys {
		buf = appendField(buf, k)
		buf = appendField(buf, c.Args[k])
	}

	binary.BigEndian.PutUint64(n[:], c.Nonce)
	buf = append(buf, n[:]...)
	return bsvhash.Sha256(buf)
}

// Sign signs call with priv.
func Sign(call Call, priv *ec.PrivateKey) (*Envelope, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrInvalidEnvelope)
	}
	sig, err := priv.Sign(call.Digest())
	if err != nil {
		return nil, fmt.Errorf("envelope: sign: %w", err)
	}
	return &Envelope{
		Call:      call,
		PublicKey: hex.EncodeToString(priv.PubKey().Compressed()),
		Signature: hex.EncodeToString(sig.Serialize()),
	}, nil
}

// Verify checks the signature and returns the caller's address.
func (e *Envelope) Verify() (identity.Address, error) {
	if e.Method == "" {
		return identity.Zero, fmt.Errorf("%w: empty method", ErrInvalidEnvelope)
	}

	pubBytes, err := hex.DecodeString(e.PublicKey)
	if err != nil {
		return identity.Zero, fmt.Errorf("%w: public key hex: %w", ErrInvalidEnvelope, err)
	}
	pub, err := ec.PublicKeyFromBytes(pubBytes)
	if err != nil {
		return identity.Zero, fmt.Errorf("%w: public key: %w", ErrInvalidEnvelope, err)
	}

	sigBytes, err := hex.DecodeString(e.Signature)
	if err != nil {
		return identity.Zero, fmt.Errorf("%w: signature hex: %w", ErrInvalidEnvelope, err)
	}
	sig, err := ec.ParseDERSignature(sigBytes)
	if err != nil {
		return identity.Zero, fmt.Errorf("%w: signature: %w", ErrInvalidEnvelope, err)
	}

	if !sig.Verify(e.Digest(), pub) {
		return identity.Zero, ErrBadSignature
	}
	return identity.FromPublicKey(pub), nil
}

// curveOrder is the order N of the secp256k1 group.
var curveOrder, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)

// privateKeyFromBytes accepts only scalars in [1, N-1].
func privateKeyFromBytes(b []byte) (*ec.PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: private key must be 32 bytes, got %d", ErrInvalidEnvelope, len(b))
	}
	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(curveOrder) >= 0 {
		return nil, fmt.Errorf("%w: private key out of range", ErrInvalidEnvelope)
	}
	priv, _ := ec.PrivateKeyFromBytes(b)
	return priv, nil
}
