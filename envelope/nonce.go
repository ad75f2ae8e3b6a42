package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/store"
)

// Nonces tracks the last accepted nonce of every caller. A nonce is consumed
// even when the operation it authorized later fails, so a signed envelope
// can be used at most once.
type Nonces struct {
	store store.Store
}

// NewNonces returns a tracker backed by st.
func NewNonces(st store.Store) *Nonces { return &Nonces{store: st} }

func lastNonce(tx store.Tx, caller identity.Address) (uint64, bool, error) {
	v, err := tx.Get(store.BucketNonces, caller[:])
	if errors.Is(err, store.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(v) != 8 {
		return 0, false, fmt.Errorf("envelope: corrupt nonce record for %s", caller)
	}
	return binary.BigEndian.Uint64(v), true, nil
}

// Last returns the caller's last accepted nonce and whether one exists.
func (n *Nonces) Last(caller identity.Address) (uint64, bool, error) {
	var (
		last uint64
		ok   bool
	)
	err := n.store.View(func(tx store.Tx) error {
		var err error
		last, ok, err = lastNonce(tx, caller)
		return err
	})
	return last, ok, err
}

// Next returns the smallest nonce Consume would accept for caller. It fails
// once the caller has used the largest nonce.
func (n *Nonces) Next(caller identity.Address) (uint64, error) {
	last, ok, err := n.Last(caller)
	if err != nil || !ok {
		return 0, err
	}
	if last == math.MaxUint64 {
		return 0, fmt.Errorf("%w: %s", ErrNonceExhausted, caller)
	}
	return last + 1, nil
}

// Consume accepts nonce if it is greater than the caller's last one.
func (n *Nonces) Consume(caller identity.Address, nonce uint64) error {
	return n.store.Update(func(tx store.Tx) error {
		last, ok, err := lastNonce(tx, caller)
		if err != nil {
			return err
		}
		if ok && nonce <= last {
			return fmt.Errorf("%w: %d <= %d", ErrStaleNonce, nonce, last)
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)
		return tx.Put(store.BucketNonces, caller[:], buf[:])
	})
}

// Authenticate verifies e, checks it targets contract and consumes its nonce.
func (n *Nonces) Authenticate(e *Envelope, contract identity.Address) (identity.Address, error) {
	caller, err := e.Verify()
	if err != nil {
		return identity.Zero, err
	}
	if e.Contract != contract {
		return identity.Zero, fmt.Errorf("%w: %s", ErrWrongContract, e.Contract)
	}
	if err := n.Consume(caller, e.Nonce); err != nil {
		return identity.Zero, err
	}
	return caller, nil
}
