package storage

import (
	"bytes"
	"sort"
	"sync"
)

// WriteLog is an in-memory overlay on top of a backing KVStore: reads see
// pending writes and deletes before falling through to the underlying
// snapshot, and nothing is visible to other readers of the backing store
// until Commit is called. The PoS core (pkg/pos) does not use it.
type WriteLog struct {
	mu      sync.RWMutex
	backing KVStore
	dirty   map[string][]byte
	deleted map[string]struct{}
}

// NewWriteLog creates a WriteLog overlaying the given backing store.
func NewWriteLog(backing KVStore) *WriteLog {
	return &WriteLog{
		backing: backing,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

// Get returns the value for key, preferring the overlay over the backing
// store. Returns ErrKVNotFound if the key is absent or was deleted in the
// overlay.
func (w *WriteLog) Get(key []byte) ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	k := string(key)
	if _, gone := w.deleted[k]; gone {
		return nil, ErrKVNotFound
	}
	if v, ok := w.dirty[k]; ok {
		cp := make([]byte, len(v))
		copy(cp, v)
		return cp, nil
	}
	return w.backing.Get(key)
}

// Put buffers a write in the overlay. It is not visible to the backing
// store until Commit.
func (w *WriteLog) Put(key, value []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := string(key)
	delete(w.deleted, k)
	cp := make([]byte, len(value))
	copy(cp, value)
	w.dirty[k] = cp
	return nil
}

// Delete buffers a deletion in the overlay.
func (w *WriteLog) Delete(key []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := string(key)
	delete(w.dirty, k)
	w.deleted[k] = struct{}{}
	return nil
}

// Has reports whether key is visible through the overlay.
func (w *WriteLog) Has(key []byte) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	k := string(key)
	if _, gone := w.deleted[k]; gone {
		return false, nil
	}
	if _, ok := w.dirty[k]; ok {
		return true, nil
	}
	return w.backing.Has(key)
}

// Dirty reports whether the overlay has any uncommitted writes or deletes.
func (w *WriteLog) Dirty() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.dirty) > 0 || len(w.deleted) > 0
}

// Commit applies all buffered writes and deletes to the backing store in a
// single batch and clears the overlay. It is the only place overlay state
// becomes visible outside the WriteLog.
func (w *WriteLog) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := w.backing.NewBatch()
	for k, v := range w.dirty {
		batch.Put([]byte(k), v)
	}
	for k := range w.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	w.dirty = make(map[string][]byte)
	w.deleted = make(map[string]struct{})
	return nil
}

// Drop discards all buffered writes and deletes without touching the
// backing store. Used to roll back a block that failed validation.
func (w *WriteLog) Drop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = make(map[string][]byte)
	w.deleted = make(map[string]struct{})
}

// IteratePrefix returns the keys matching prefix visible through the
// overlay, merging pending writes with the backing store in ascending
// lexicographic order. It materializes the full result rather than
// streaming, since PoS core iteration ranges (validator sets, bonds for an
// address) are small.
func (w *WriteLog) IteratePrefix(prefix []byte) []KVPair {
	w.mu.RLock()
	defer w.mu.RUnlock()

	merged := make(map[string][]byte)

	it := w.backing.NewKVIterator(prefix, nil)
	for it.Next() {
		k := string(it.Key())
		if _, gone := w.deleted[k]; gone {
			continue
		}
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		merged[k] = v
	}
	it.Release()

	for k, v := range w.dirty {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]KVPair, len(keys))
	for i, k := range keys {
		out[i] = KVPair{Key: []byte(k), Value: merged[k]}
	}
	return out
}

// KVPair is a single key-value pair returned by IteratePrefix.
type KVPair struct {
	Key   []byte
	Value []byte
}
