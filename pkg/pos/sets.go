package pos

import "sync"

// stakeBucket groups every validator sharing the same stake at a given
// epoch, ordered by insertion position. Equal-stake validators are broken by
// insertion order: front = first-positioned, back = last-positioned.
type stakeBucket struct {
	stake   Amount
	addrs   []Address
}

// bucketSet is an ordered-by-stake collection of stakeBuckets, ascending.
// Consensus and BelowCapacity are both represented this way; BelowCapacity's
// "largest stake" query is simply its last bucket, giving the same
// structure both the ascending and reverse-ordered views the design notes
// call for.
type bucketSet struct {
	buckets []*stakeBucket
}

func (bs *bucketSet) find(stake Amount) (*stakeBucket, int) {
	for i, b := range bs.buckets {
		if !b.stake.LessThan(stake) && !stake.LessThan(b.stake) {
			return b, i
		}
	}
	return nil, -1
}

func (bs *bucketSet) insertionIndex(stake Amount) int {
	i := 0
	for i < len(bs.buckets) && bs.buckets[i].stake.LessThan(stake) {
		i++
	}
	return i
}

// insert appends addr to stake's bucket, creating it if necessary, as the
// new last-positioned entry.
func (bs *bucketSet) insert(stake Amount, addr Address) {
	if b, _ := bs.find(stake); b != nil {
		b.addrs = append(b.addrs, addr)
		return
	}
	idx := bs.insertionIndex(stake)
	nb := &stakeBucket{stake: stake, addrs: []Address{addr}}
	bs.buckets = append(bs.buckets, nil)
	copy(bs.buckets[idx+1:], bs.buckets[idx:])
	bs.buckets[idx] = nb
}

// remove deletes addr from stake's bucket, pruning the bucket if it becomes
// empty. Returns false if the entry was not found.
func (bs *bucketSet) remove(stake Amount, addr Address) bool {
	b, idx := bs.find(stake)
	if b == nil {
		return false
	}
	found := -1
	for i, a := range b.addrs {
		if a == addr {
			found = i
			break
		}
	}
	if found == -1 {
		return false
	}
	b.addrs = append(b.addrs[:found], b.addrs[found+1:]...)
	if len(b.addrs) == 0 {
		bs.buckets = append(bs.buckets[:idx], bs.buckets[idx+1:]...)
	}
	return true
}

// minStake returns the smallest stake bucket's stake, if any.
func (bs *bucketSet) minStake() (Amount, bool) {
	if len(bs.buckets) == 0 {
		return ZeroAmount(), false
	}
	return bs.buckets[0].stake, true
}

// maxStake returns the largest stake bucket's stake, if any.
func (bs *bucketSet) maxStake() (Amount, bool) {
	if len(bs.buckets) == 0 {
		return ZeroAmount(), false
	}
	return bs.buckets[len(bs.buckets)-1].stake, true
}

// firstPositioned returns the longest-standing entry in stake's bucket.
func (bs *bucketSet) firstPositioned(stake Amount) (Address, bool) {
	b, _ := bs.find(stake)
	if b == nil || len(b.addrs) == 0 {
		return Address{}, false
	}
	return b.addrs[0], true
}

// lastPositioned returns the most-recently-inserted entry in stake's bucket.
func (bs *bucketSet) lastPositioned(stake Amount) (Address, bool) {
	b, _ := bs.find(stake)
	if b == nil || len(b.addrs) == 0 {
		return Address{}, false
	}
	return b.addrs[len(b.addrs)-1], true
}

// size returns the total number of entries across all buckets.
func (bs *bucketSet) size() int {
	n := 0
	for _, b := range bs.buckets {
		n += len(b.addrs)
	}
	return n
}

// descending returns every (stake, addr) pair in descending-stake order,
// the iteration order the Tendermint diff (§4.9) requires.
func (bs *bucketSet) descending() []struct {
	Stake Amount
	Addr  Address
} {
	var out []struct {
		Stake Amount
		Addr  Address
	}
	for i := len(bs.buckets) - 1; i >= 0; i-- {
		b := bs.buckets[i]
		for _, a := range b.addrs {
			out = append(out, struct {
				Stake Amount
				Addr  Address
			}{b.stake, a})
		}
	}
	return out
}

// epochSet holds the Consensus and BelowCapacity sets for a single epoch.
type epochSet struct {
	consensus     bucketSet
	belowCapacity bucketSet
	// location records which set (and at what stake) each validator
	// currently occupies, replacing an O(n) scan with O(1) removal lookup.
	location map[Address]setLocation
}

type setLocation struct {
	inConsensus bool
	stake       Amount
}

func newEpochSet() *epochSet {
	return &epochSet{location: make(map[Address]setLocation)}
}

// clone deep-copies the epoch set, used when the epoch transition driver
// materializes the next pipeline epoch.
func (es *epochSet) clone() *epochSet {
	out := newEpochSet()
	for _, b := range es.consensus.buckets {
		nb := &stakeBucket{stake: b.stake, addrs: append([]Address(nil), b.addrs...)}
		out.consensus.buckets = append(out.consensus.buckets, nb)
	}
	for _, b := range es.belowCapacity.buckets {
		nb := &stakeBucket{stake: b.stake, addrs: append([]Address(nil), b.addrs...)}
		out.belowCapacity.buckets = append(out.belowCapacity.buckets, nb)
	}
	for a, l := range es.location {
		out.location[a] = l
	}
	return out
}

// ValidatorSets is the dual-ordered-set structure (C4), epoched across the
// lookahead window. It owns one epochSet per writable epoch.
type ValidatorSets struct {
	mu     sync.RWMutex
	params Params
	epochs map[Epoch]*epochSet
}

// NewValidatorSets creates an empty, per-epoch validator set tracker.
func NewValidatorSets(params Params) *ValidatorSets {
	return &ValidatorSets{params: params, epochs: make(map[Epoch]*epochSet)}
}

func (vs *ValidatorSets) epochSetLocked(e Epoch) *epochSet {
	es, ok := vs.epochs[e]
	if !ok {
		es = newEpochSet()
		vs.epochs[e] = es
	}
	return es
}

// CopyForward deep-copies the contents of srcEpoch into dstEpoch: both sets
// and the position index, per the epoch transition driver's requirement
// that reads at unwritten epochs never occur.
func (vs *ValidatorSets) CopyForward(srcEpoch, dstEpoch Epoch) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	src, ok := vs.epochs[srcEpoch]
	if !ok {
		vs.epochs[dstEpoch] = newEpochSet()
		return
	}
	vs.epochs[dstEpoch] = src.clone()
}

// Insert runs the §4.4 insertion protocol for a newly placed or re-promoted
// validator at epoch e. It returns the validator's resulting state and,
// when an eviction/promotion occurred as a side effect, the address and new
// state of the displaced validator.
func (vs *ValidatorSets) Insert(e Epoch, addr Address, stake Amount) (ValidatorState, *Address, ValidatorState) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	es := vs.epochSetLocked(e)

	if uint64(es.consensus.size()) < vs.params.MaxConsensusValidators {
		es.consensus.insert(stake, addr)
		es.location[addr] = setLocation{inConsensus: true, stake: stake}
		return StateConsensus, nil, 0
	}

	minC, ok := es.consensus.minStake()
	if ok && stake.GreaterThan(minC) {
		evicted, found := es.consensus.lastPositioned(minC)
		if found {
			es.consensus.remove(minC, evicted)
			es.belowCapacity.insert(minC, evicted)
			es.location[evicted] = setLocation{inConsensus: false, stake: minC}
		}
		es.consensus.insert(stake, addr)
		es.location[addr] = setLocation{inConsensus: true, stake: stake}
		if found {
			return StateConsensus, &evicted, StateBelowCapacity
		}
		return StateConsensus, nil, 0
	}

	es.belowCapacity.insert(stake, addr)
	es.location[addr] = setLocation{inConsensus: false, stake: stake}
	return StateBelowCapacity, nil, 0
}

// ChangeStake runs the §4.4 stake-change protocol for an already-placed
// validator. It returns the validator's new state and, if a swap occurred,
// the swap partner's address and new state.
func (vs *ValidatorSets) ChangeStake(e Epoch, addr Address, newStake Amount) (ValidatorState, *Address, ValidatorState) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	es := vs.epochSetLocked(e)

	loc, ok := es.location[addr]
	if !ok {
		// Not currently placed; treat as a fresh insertion using the same
		// protocol Insert runs, inlined here to avoid re-acquiring the lock.
		if uint64(es.consensus.size()) < vs.params.MaxConsensusValidators {
			es.consensus.insert(newStake, addr)
			es.location[addr] = setLocation{inConsensus: true, stake: newStake}
			return StateConsensus, nil, 0
		}
		minC, hasC := es.consensus.minStake()
		if hasC && newStake.GreaterThan(minC) {
			evicted, found := es.consensus.lastPositioned(minC)
			if found {
				es.consensus.remove(minC, evicted)
				es.belowCapacity.insert(minC, evicted)
				es.location[evicted] = setLocation{inConsensus: false, stake: minC}
			}
			es.consensus.insert(newStake, addr)
			es.location[addr] = setLocation{inConsensus: true, stake: newStake}
			if found {
				return StateConsensus, &evicted, StateBelowCapacity
			}
			return StateConsensus, nil, 0
		}
		es.belowCapacity.insert(newStake, addr)
		es.location[addr] = setLocation{inConsensus: false, stake: newStake}
		return StateBelowCapacity, nil, 0
	}

	if loc.inConsensus {
		es.consensus.remove(loc.stake, addr)
		maxBC, hasBC := es.belowCapacity.maxStake()
		if hasBC && newStake.LessThan(maxBC) {
			promoted, found := es.belowCapacity.firstPositioned(maxBC)
			if found {
				es.belowCapacity.remove(maxBC, promoted)
				es.consensus.insert(maxBC, promoted)
				es.location[promoted] = setLocation{inConsensus: true, stake: maxBC}
			}
			es.belowCapacity.insert(newStake, addr)
			es.location[addr] = setLocation{inConsensus: false, stake: newStake}
			if found {
				return StateBelowCapacity, &promoted, StateConsensus
			}
			return StateBelowCapacity, nil, 0
		}
		es.consensus.insert(newStake, addr)
		es.location[addr] = setLocation{inConsensus: true, stake: newStake}
		return StateConsensus, nil, 0
	}

	es.belowCapacity.remove(loc.stake, addr)
	minC, hasC := es.consensus.minStake()
	if hasC && newStake.GreaterThan(minC) {
		demoted, found := es.consensus.lastPositioned(minC)
		if found {
			es.consensus.remove(minC, demoted)
			es.belowCapacity.insert(minC, demoted)
			es.location[demoted] = setLocation{inConsensus: false, stake: minC}
		}
		es.consensus.insert(newStake, addr)
		es.location[addr] = setLocation{inConsensus: true, stake: newStake}
		if found {
			return StateConsensus, &demoted, StateBelowCapacity
		}
		return StateConsensus, nil, 0
	}
	es.belowCapacity.insert(newStake, addr)
	es.location[addr] = setLocation{inConsensus: false, stake: newStake}
	return StateBelowCapacity, nil, 0
}

// Remove takes a validator out of whichever set it occupies at epoch e
// (used when jailing). If it was removed from Consensus, the strongest
// below-capacity validator is promoted into the freed slot and its address
// is returned alongside its new state.
func (vs *ValidatorSets) Remove(e Epoch, addr Address) (*Address, ValidatorState) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	es := vs.epochSetLocked(e)

	loc, ok := es.location[addr]
	if !ok {
		return nil, 0
	}
	delete(es.location, addr)

	if loc.inConsensus {
		es.consensus.remove(loc.stake, addr)
		maxBC, hasBC := es.belowCapacity.maxStake()
		if hasBC {
			promoted, found := es.belowCapacity.firstPositioned(maxBC)
			if found {
				es.belowCapacity.remove(maxBC, promoted)
				es.consensus.insert(maxBC, promoted)
				es.location[promoted] = setLocation{inConsensus: true, stake: maxBC}
				return &promoted, StateConsensus
			}
		}
		return nil, 0
	}
	es.belowCapacity.remove(loc.stake, addr)
	return nil, 0
}

// ConsensusSize returns the number of validators in the Consensus set at e.
func (vs *ValidatorSets) ConsensusSize(e Epoch) int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	es, ok := vs.epochs[e]
	if !ok {
		return 0
	}
	return es.consensus.size()
}

// BelowCapacitySize returns the number of validators in the BelowCapacity
// set at e.
func (vs *ValidatorSets) BelowCapacitySize(e Epoch) int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	es, ok := vs.epochs[e]
	if !ok {
		return 0
	}
	return es.belowCapacity.size()
}

// ConsensusDescending returns (stake, address) pairs in the Consensus set at
// e, ordered by descending stake, the order the Tendermint diff requires.
func (vs *ValidatorSets) ConsensusDescending(e Epoch) []struct {
	Stake Amount
	Addr  Address
} {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	es, ok := vs.epochs[e]
	if !ok {
		return nil
	}
	return es.consensus.descending()
}

// BelowCapacityDescending returns (stake, address) pairs in the
// BelowCapacity set at e, ordered by descending stake.
func (vs *ValidatorSets) BelowCapacityDescending(e Epoch) []struct {
	Stake Amount
	Addr  Address
} {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	es, ok := vs.epochs[e]
	if !ok {
		return nil
	}
	return es.belowCapacity.descending()
}

// InConsensus reports whether addr is in the Consensus set at epoch e.
func (vs *ValidatorSets) InConsensus(e Epoch, addr Address) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	es, ok := vs.epochs[e]
	if !ok {
		return false
	}
	loc, ok := es.location[addr]
	return ok && loc.inConsensus
}
