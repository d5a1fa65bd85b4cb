package pos

import "sync"

// Summable is the constraint satisfied by types usable inside an
// EpochedDelta: a value that can be combined with another of the same type.
// Amount and Change both implement it via Add.
type Summable[T any] interface {
	Add(T) T
}

// EpochedPlain holds a value of type T that persists unchanged at an epoch
// until overwritten, with a fixed lookahead window of maxOffset epochs past
// the epoch of the most recent write. This is the "plain" epoched-data
// primitive (§4.1); validator state and commission rate are stored this way.
//
// Physically this models the sparse-deltas-by-epoch storage layout the data
// model calls for: callers persisting this to the storage facade should key
// each write by its own epoch rather than holding the whole map resident,
// but the in-memory representation here is the map itself for simplicity of
// the reference implementation.
type EpochedPlain[T any] struct {
	mu         sync.RWMutex
	values     map[Epoch]T
	lastUpdate Epoch
	maxOffset  uint64
	written    bool
}

// NewEpochedPlain creates an EpochedPlain with the given lookahead window.
func NewEpochedPlain[T any](maxOffset uint64) *EpochedPlain[T] {
	return &EpochedPlain[T]{
		values:    make(map[Epoch]T),
		maxOffset: maxOffset,
	}
}

// Init writes v at offset 0 from eC, marking it as the most recent update.
func (e *EpochedPlain[T]) Init(v T, eC Epoch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[eC] = v
	e.lastUpdate = eC
	e.written = true
}

// Set writes v at eC+offset and updates last_update. Offsets beyond
// maxOffset are rejected with ErrInvalidOffset.
func (e *EpochedPlain[T]) Set(v T, eC Epoch, offset uint64) error {
	if offset > e.maxOffset {
		return ErrInvalidOffset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	target := eC + Epoch(offset)
	e.values[target] = v
	e.lastUpdate = target
	e.written = true
	return nil
}

// Get returns the value at the greatest stored epoch <= e. If nothing has
// been written, if e is above last_update+maxOffset, or if no value is
// stored at or before e, Get returns the zero value and false rather than an
// error. Epochs below last_update are answered from the stored history.
func (e *EpochedPlain[T]) Get(epoch Epoch) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var zero T
	if !e.written {
		return zero, false
	}
	if epoch > e.lastUpdate+Epoch(e.maxOffset) {
		return zero, false
	}
	best, found := Epoch(0), false
	for k := range e.values {
		if k > epoch {
			continue
		}
		if !found || k > best {
			best, found = k, true
		}
	}
	if !found {
		return zero, false
	}
	return e.values[best], true
}

// LastUpdate returns the epoch of the most recent write.
func (e *EpochedPlain[T]) LastUpdate() Epoch {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUpdate
}

// CopyForward deep-copies the value effective at srcEpoch into dstEpoch,
// used by the epoch transition driver to materialize the next pipeline
// epoch so reads at unwritten epochs never occur.
func (e *EpochedPlain[T]) CopyForward(srcEpoch, dstEpoch Epoch) {
	v, ok := e.Get(srcEpoch)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[dstEpoch] = v
	if dstEpoch > e.lastUpdate {
		e.lastUpdate = dstEpoch
	}
}

// EpochedDelta holds signed-delta values of type T keyed by the epoch they
// were written at; Get sums every delta with key <= e. Validator and bond
// stake deltas are modeled this way.
type EpochedDelta[T Summable[T]] struct {
	mu         sync.RWMutex
	deltas     map[Epoch]T
	lastUpdate Epoch
	maxOffset  uint64
}

// NewEpochedDelta creates an EpochedDelta with the given lookahead window.
func NewEpochedDelta[T Summable[T]](maxOffset uint64) *EpochedDelta[T] {
	return &EpochedDelta[T]{
		deltas:    make(map[Epoch]T),
		maxOffset: maxOffset,
	}
}

// Add accumulates delta at eC+offset, shifting last_update forward.
func (e *EpochedDelta[T]) Add(delta T, eC Epoch, offset uint64) error {
	if offset > e.maxOffset {
		return ErrInvalidOffset
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	target := eC + Epoch(offset)
	e.deltas[target] = e.deltas[target].Add(delta)
	if target > e.lastUpdate {
		e.lastUpdate = target
	}
	return nil
}

// Get sums every delta stored at an epoch <= e.
func (e *EpochedDelta[T]) Get(epoch Epoch) T {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var sum T
	for k, v := range e.deltas {
		if k <= epoch {
			sum = sum.Add(v)
		}
	}
	return sum
}

// DeltaAt returns the raw (unsummed) delta written exactly at epoch e, used
// by the bond ledger to walk individual bond-start-epoch chunks.
func (e *EpochedDelta[T]) DeltaAt(epoch Epoch) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.deltas[epoch]
	return v, ok
}

// SetDeltaAt overwrites the raw delta stored at epoch e, used when an unbond
// decrements a specific bond-start-epoch chunk.
func (e *EpochedDelta[T]) SetDeltaAt(epoch Epoch, v T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deltas[epoch] = v
}

// Epochs returns every epoch with a stored delta, in ascending order; a
// delta set to zero stays stored and is included. chunksDescending (bond.go)
// reverses it to walk bond chunks in descending start-epoch order.
func (e *EpochedDelta[T]) Epochs() []Epoch {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Epoch, 0, len(e.deltas))
	for k := range e.deltas {
		out = append(out, k)
	}
	sortEpochs(out)
	return out
}

func sortEpochs(s []Epoch) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
