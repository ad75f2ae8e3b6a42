// Package store provides the transactional key/value boundary every state
// change in tiersplit runs inside. A function passed to Update either commits
// all of its writes or none of them, and Update calls never interleave.
package store

// Well-known buckets. Both implementations create them on open.
var (
	BucketContracts = []byte("contracts")
	BucketBalances  = []byte("balances")
	BucketNonces    = []byte("nonces")
	BucketGuarded   = []byte("guarded")
)

var allBuckets = [][]byte{BucketContracts, BucketBalances, BucketNonces, BucketGuarded}

// Tx is a view of the store inside one transaction.
type Tx interface {
	// Get returns a copy of the value stored at key, or ErrNotFound.
	Get(bucket, key []byte) ([]byte, error)

	// Put stores value at key. Returns ErrReadOnly inside View.
	Put(bucket, key, value []byte) error

	// ForEach visits every key in bucket in ascending key order.
	ForEach(bucket []byte, fn func(key, value []byte) error) error
}

// Store runs functions inside read-only or read-write transactions.
// An error returned from an Update function rolls back every write it made.
type Store interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx Tx) error) error
	Close() error
}
