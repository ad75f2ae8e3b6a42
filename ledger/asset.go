// Package ledger holds account balances and the value-transfer primitive used
// by contracts. Two assets exist: the environment's native coin and tokens
// named by an identifier. Both keep uint64 balances in base units inside the
// store's balances bucket, so a transfer is just another write in the
// caller's transaction and rolls back with it.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/store"
)

// NativeAssetID identifies the native coin.
const NativeAssetID = "native"

// Asset moves value between accounts inside a store transaction.
type Asset interface {
	// ID returns the stable asset identifier.
	ID() string

	// BalanceOf returns who's balance; unknown accounts hold zero.
	BalanceOf(tx store.Tx, who identity.Address) (uint64, error)

	// Transfer moves amount from one account to another. Any failure is
	// reported wrapped with ErrTransferFailed and leaves both balances as they
	// were within tx.
	Transfer(tx store.Tx, from, to identity.Address, amount uint64) error
}

type bucketAsset struct {
	id string
}

// Native returns the native coin asset.
func Native() Asset { return bucketAsset{id: NativeAssetID} }

// Token returns the asset for a token identifier (for example the token
// contract's address). The identifier is case-insensitive.
func Token(id string) (Asset, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" || id == NativeAssetID || strings.ContainsRune(id, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssetID, id)
	}
	return bucketAsset{id: id}, nil
}

// ForID returns Native for "" or NativeAssetID and Token(id) otherwise.
func ForID(id string) (Asset, error) {
	if id == "" || id == NativeAssetID {
		return Native(), nil
	}
	return Token(id)
}

func (a bucketAsset) ID() string { return a.id }

func (a bucketAsset) key(who identity.Address) []byte {
	k := make([]byte, 0, len(a.id)+1+identity.AddressSize)
	k = append(k, a.id...)
	k = append(k, 0)
	return append(k, who[:]...)
}

func (a bucketAsset) BalanceOf(tx store.Tx, who identity.Address) (uint64, error) {
	v, err := tx.Get(store.BucketBalances, a.key(who))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: %d bytes for %s", ErrCorruptBalance, len(v), who)
	}
	return binary.BigEndian.Uint64(v), nil
}

func (a bucketAsset) setBalance(tx store.Tx, who identity.Address, amount uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	return tx.Put(store.BucketBalances, a.key(who), buf[:])
}

// credit adds amount to who without a matching debit.
func (a bucketAsset) credit(tx store.Tx, who identity.Address, amount uint64) error {
	bal, err := a.BalanceOf(tx, who)
	if err != nil {
		return err
	}
	if bal+amount < bal {
		return fmt.Errorf("%w: %w: %s", ErrTransferFailed, ErrBalanceOverflow, who)
	}
	return a.setBalance(tx, who, bal+amount)
}

func (a bucketAsset) Transfer(tx store.Tx, from, to identity.Address, amount uint64) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: %w", ErrTransferFailed, identity.ErrZeroAddress)
	}
	if from == to {
		return fmt.Errorf("%w: %w: %s", ErrTransferFailed, ErrSelfTransfer, from)
	}
	if amount == 0 {
		return nil
	}

	fromBal, err := a.BalanceOf(tx, from)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %w: %s has %d, need %d",
			ErrTransferFailed, ErrInsufficientFunds, from, fromBal, amount)
	}
	toBal, err := a.BalanceOf(tx, to)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if toBal+amount < toBal {
		return fmt.Errorf("%w: %w: %s", ErrTransferFailed, ErrBalanceOverflow, to)
	}

	if err := a.setBalance(tx, from, fromBal-amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if err := a.setBalance(tx, to, toBal+amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
