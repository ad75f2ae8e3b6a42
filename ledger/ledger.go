package ledger

import (
	"errors"
	"fmt"

	"github.com/bitfsorg/tiersplit-go/identity"
	"github.com/bitfsorg/tiersplit-go/store"
)

// Guard marks addr as a contract account. Guarded accounts can only be
// credited or debited by the contract that owns them, from inside its own
// transactions, never through Ledger.
func Guard(tx store.Tx, addr identity.Address) error {
	return tx.Put(store.BucketGuarded, addr[:], []byte{1})
}

// IsGuarded reports whether addr is a contract account.
func IsGuarded(tx store.Tx, addr identity.Address) (bool, error) {
	_, err := tx.Get(store.BucketGuarded, addr[:])
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Ledger is the externally initiated transfer path for one asset.
type Ledger struct {
	store store.Store
	asset Asset
}

// New returns a Ledger for asset backed by st.
func New(st store.Store, asset Asset) *Ledger {
	return &Ledger{store: st, asset: asset}
}

// Asset returns the ledger's asset.
func (l *Ledger) Asset() Asset { return l.asset }

// Balance returns who's balance.
func (l *Ledger) Balance(who identity.Address) (uint64, error) {
	var bal uint64
	err := l.store.View(func(tx store.Tx) error {
		var err error
		bal, err = l.asset.BalanceOf(tx, who)
		return err
	})
	return bal, err
}

// Mint creates amount out of thin air in to's account. It exists for funding
// test and development accounts; it refuses contract accounts like Transfer.
func (l *Ledger) Mint(to identity.Address, amount uint64) error {
	ba, ok := l.asset.(bucketAsset)
	if !ok {
		return fmt.Errorf("%w: asset %q does not support minting", ErrInvalidAssetID, l.asset.ID())
	}
	if to.IsZero() {
		return fmt.Errorf("%w: %w", ErrTransferFailed, identity.ErrZeroAddress)
	}
	return l.store.Update(func(tx store.Tx) error {
		if err := rejectGuarded(tx, to); err != nil {
			return err
		}
		return ba.credit(tx, to, amount)
	})
}

// Transfer moves amount between two ordinary accounts. A contract account on
// either side is rejected with ErrTransferFailed: value reaches a contract
// only through its payment operation.
func (l *Ledger) Transfer(from, to identity.Address, amount uint64) error {
	return l.store.Update(func(tx store.Tx) error {
		if err := rejectGuarded(tx, from); err != nil {
			return err
		}
		if err := rejectGuarded(tx, to); err != nil {
			return err
		}
		return l.asset.Transfer(tx, from, to, amount)
	})
}

func rejectGuarded(tx store.Tx, addr identity.Address) error {
	guarded, err := IsGuarded(tx, addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if guarded {
		return fmt.Errorf("%w: %w: %s", ErrTransferFailed, ErrGuardedAccount, addr)
	}
	return nil
}
