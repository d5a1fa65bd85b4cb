package pos

import "testing"

func TestBucketSetInsertFindRemove(t *testing.T) {
	bs := &bucketSet{}
	a1, a2 := testAddr(1), testAddr(2)
	bs.insert(AmountFromUint64(100), a1)
	bs.insert(AmountFromUint64(100), a2)

	if got := bs.size(); got != 2 {
		t.Fatalf("size() = %d, want 2", got)
	}
	if first, ok := bs.firstPositioned(AmountFromUint64(100)); !ok || first != a1 {
		t.Fatalf("firstPositioned = %v, %v, want %v", first, ok, a1)
	}
	if last, ok := bs.lastPositioned(AmountFromUint64(100)); !ok || last != a2 {
		t.Fatalf("lastPositioned = %v, %v, want %v", last, ok, a2)
	}

	if !bs.remove(AmountFromUint64(100), a1) {
		t.Fatal("remove(a1) should succeed")
	}
	if got := bs.size(); got != 1 {
		t.Fatalf("size() after remove = %d, want 1", got)
	}
	if bs.remove(AmountFromUint64(100), a1) {
		t.Fatal("removing an already-removed address should fail")
	}
}

func TestBucketSetMinMaxStake(t *testing.T) {
	bs := &bucketSet{}
	bs.insert(AmountFromUint64(300), testAddr(1))
	bs.insert(AmountFromUint64(100), testAddr(2))
	bs.insert(AmountFromUint64(200), testAddr(3))

	min, ok := bs.minStake()
	if !ok || min.Uint64() != 100 {
		t.Fatalf("minStake = %d, %v, want 100", min.Uint64(), ok)
	}
	max, ok := bs.maxStake()
	if !ok || max.Uint64() != 300 {
		t.Fatalf("maxStake = %d, %v, want 300", max.Uint64(), ok)
	}
}

func TestBucketSetDescendingOrder(t *testing.T) {
	bs := &bucketSet{}
	bs.insert(AmountFromUint64(100), testAddr(1))
	bs.insert(AmountFromUint64(300), testAddr(2))
	bs.insert(AmountFromUint64(200), testAddr(3))

	got := bs.descending()
	want := []uint64{300, 200, 100}
	if len(got) != len(want) {
		t.Fatalf("descending() length = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Stake.Uint64() != w {
			t.Fatalf("descending()[%d].Stake = %d, want %d", i, got[i].Stake.Uint64(), w)
		}
	}
}

// Scenario S2: K=3, genesis V1=100,V2=200,V3=300, become_validator(V4) with
// bond to 150 must displace V1 to BelowCapacity.
func TestValidatorSetsInsertEvictsWeakest(t *testing.T) {
	params := DefaultParams()
	params.MaxConsensusValidators = 3
	vs := NewValidatorSets(params)

	v1, v2, v3, v4 := testAddr(1), testAddr(2), testAddr(3), testAddr(4)

	state, evicted, _ := vs.Insert(0, v1, AmountFromUint64(100))
	if state != StateConsensus || evicted != nil {
		t.Fatalf("insert v1: state=%v evicted=%v", state, evicted)
	}
	if state, _, _ := vs.Insert(0, v2, AmountFromUint64(200)); state != StateConsensus {
		t.Fatalf("insert v2: state=%v", state)
	}
	if state, _, _ := vs.Insert(0, v3, AmountFromUint64(300)); state != StateConsensus {
		t.Fatalf("insert v3: state=%v", state)
	}

	state, evictedAddr, evictedState := vs.Insert(0, v4, AmountFromUint64(150))
	if state != StateConsensus {
		t.Fatalf("insert v4: state=%v, want Consensus", state)
	}
	if evictedAddr == nil || *evictedAddr != v1 {
		t.Fatalf("expected v1 evicted, got %v", evictedAddr)
	}
	if evictedState != StateBelowCapacity {
		t.Fatalf("evicted state=%v, want BelowCapacity", evictedState)
	}
	if !vs.InConsensus(0, v4) {
		t.Fatal("v4 should be in Consensus")
	}
	if vs.InConsensus(0, v1) {
		t.Fatal("v1 should have been displaced out of Consensus")
	}
	if vs.ConsensusSize(0) != 3 {
		t.Fatalf("ConsensusSize = %d, want 3", vs.ConsensusSize(0))
	}
	if vs.BelowCapacitySize(0) != 1 {
		t.Fatalf("BelowCapacitySize = %d, want 1", vs.BelowCapacitySize(0))
	}
}

func TestValidatorSetsChangeStakePromotesAndDemotes(t *testing.T) {
	params := DefaultParams()
	params.MaxConsensusValidators = 2
	vs := NewValidatorSets(params)

	v1, v2, v3 := testAddr(1), testAddr(2), testAddr(3)
	vs.Insert(0, v1, AmountFromUint64(100))
	vs.Insert(0, v2, AmountFromUint64(200))
	vs.Insert(0, v3, AmountFromUint64(50))

	if vs.InConsensus(0, v3) {
		t.Fatal("v3 should start in BelowCapacity")
	}

	state, swapAddr, swapState := vs.ChangeStake(0, v3, AmountFromUint64(500))
	if state != StateConsensus {
		t.Fatalf("v3 after stake bump: state=%v, want Consensus", state)
	}
	if swapAddr == nil || *swapAddr != v1 {
		t.Fatalf("expected v1 demoted, got %v", swapAddr)
	}
	if swapState != StateBelowCapacity {
		t.Fatalf("demoted state=%v, want BelowCapacity", swapState)
	}
}

func TestValidatorSetsRemovePromotesStrongestBelowCapacity(t *testing.T) {
	params := DefaultParams()
	params.MaxConsensusValidators = 1
	vs := NewValidatorSets(params)

	v1, v2 := testAddr(1), testAddr(2)
	vs.Insert(0, v1, AmountFromUint64(100))
	vs.Insert(0, v2, AmountFromUint64(50))

	promoted, state := vs.Remove(0, v1)
	if promoted == nil || *promoted != v2 {
		t.Fatalf("expected v2 promoted, got %v", promoted)
	}
	if state != StateConsensus {
		t.Fatalf("promoted state=%v, want Consensus", state)
	}
	if !vs.InConsensus(0, v2) {
		t.Fatal("v2 should now be in Consensus")
	}
}

func TestValidatorSetsCopyForward(t *testing.T) {
	params := DefaultParams()
	vs := NewValidatorSets(params)
	v1 := testAddr(1)
	vs.Insert(0, v1, AmountFromUint64(100))

	vs.CopyForward(0, 1)
	if !vs.InConsensus(1, v1) {
		t.Fatal("v1 should remain in Consensus after CopyForward")
	}

	// Mutating the copied-forward epoch must not affect the source epoch.
	vs.Remove(1, v1)
	if !vs.InConsensus(0, v1) {
		t.Fatal("CopyForward must deep-copy, not alias, the source epoch")
	}
}
