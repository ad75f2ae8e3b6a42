package store

import "errors"

var (
	// ErrNotFound indicates the key does not exist in the bucket.
	ErrNotFound = errors.New("store: key not found")

	// ErrUnknownBucket indicates the bucket was never created.
	ErrUnknownBucket = errors.New("store: unknown bucket")

	// ErrReadOnly indicates a write was attempted inside a View transaction.
	ErrReadOnly = errors.New("store: write in read-only transaction")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")
)
