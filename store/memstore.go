package store

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory Store. Writes made inside Update are staged in an
// overlay and applied only when the function returns nil.
type MemStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store with all buckets present.
func NewMemStore() *MemStore {
	s := &MemStore{buckets: make(map[string]map[string][]byte)}
	for _, name := range allBuckets {
		s.buckets[string(name)] = make(map[string][]byte)
	}
	return s
}

// Close marks the store closed; later transactions fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// View runs fn against the committed state.
func (s *MemStore) View(fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memTx{store: s})
}

// Update runs fn with exclusive access and commits its writes on success.
func (s *MemStore) Update(fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx := &memTx{store: s, writable: true, staged: make(map[string]map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for bucket, kv := range tx.staged {
		for k, v := range kv {
			s.buckets[bucket][k] = v
		}
	}
	return nil
}

type memTx struct {
	store    *MemStore
	writable bool
	staged   map[string]map[string][]byte
}

func (t *memTx) committed(bucket []byte) (map[string][]byte, error) {
	b, ok := t.store.buckets[string(bucket)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}
	return b, nil
}

func (t *memTx) Get(bucket, key []byte) ([]byte, error) {
	b, err := t.committed(bucket)
	if err != nil {
		return nil, err
	}
	v, ok := t.staged[string(bucket)][string(key)]
	if !ok {
		v, ok = b[string(key)]
	}
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memTx) Put(bucket, key, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	if _, err := t.committed(bucket); err != nil {
		return err
	}
	kv, ok := t.staged[string(bucket)]
	if !ok {
		kv = make(map[string][]byte)
		t.staged[string(bucket)] = kv
	}
	v := make([]byte, len(value))
	copy(v, value)
	kv[string(key)] = v
	return nil
}

func (t *memTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	b, err := t.committed(bucket)
	if err != nil {
		return err
	}
	merged := make(map[string][]byte, len(b))
	for k, v := range b {
		merged[k] = v
	}
	for k, v := range t.staged[string(bucket)] {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}
