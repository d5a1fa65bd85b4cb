package pos

import "testing"

func TestBondLedgerBondAccumulates(t *testing.T) {
	params := DefaultParams()
	l := NewBondLedger(params)
	src, val := testAddr(1), testAddr(2)

	if err := l.Bond(src, val, AmountFromUint64(500), 0); err != nil {
		t.Fatal(err)
	}
	b, ok := l.Lookup(src, val)
	if !ok {
		t.Fatal("expected bond to exist after Bond")
	}
	if got := b.ActiveAt(params.PipelineLen).Uint64(); got != 500 {
		t.Fatalf("ActiveAt(pipeline) = %d, want 500", got)
	}
	// Before the pipeline offset, the bond is not yet active.
	if got := b.ActiveAt(0).Uint64(); got != 0 {
		t.Fatalf("ActiveAt(0) = %d, want 0", got)
	}
}

func TestBondLedgerUnbondMissingBond(t *testing.T) {
	l := NewBondLedger(DefaultParams())
	src, val := testAddr(1), testAddr(2)
	if _, err := l.Unbond(src, val, AmountFromUint64(100), 0); err != ErrNoBondFound {
		t.Fatalf("expected ErrNoBondFound, got %v", err)
	}
}

func TestBondLedgerUnbondExceedsBond(t *testing.T) {
	params := DefaultParams()
	l := NewBondLedger(params)
	src, val := testAddr(1), testAddr(2)
	_ = l.Bond(src, val, AmountFromUint64(100), 0)

	if _, err := l.Unbond(src, val, AmountFromUint64(200), 0); err != ErrUnbondAmountExceedsBond {
		t.Fatalf("expected ErrUnbondAmountExceedsBond, got %v", err)
	}
}

// Unbond must consume the newest chunks first.
func TestBondLedgerUnbondConsumesNewestFirst(t *testing.T) {
	params := DefaultParams()
	l := NewBondLedger(params)
	src, val := testAddr(1), testAddr(2)

	_ = l.Bond(src, val, AmountFromUint64(100), 0) // start epoch = 0 + pipeline
	_ = l.Bond(src, val, AmountFromUint64(200), 3) // start epoch = 3 + pipeline

	consumed, err := l.Unbond(src, val, AmountFromUint64(150), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(consumed) != 1 {
		t.Fatalf("consumed = %v, want a single chunk", consumed)
	}
	newestStart := Epoch(3) + Epoch(params.PipelineLen)
	if consumed[0].StartEpoch != newestStart {
		t.Fatalf("consumed[0].StartEpoch = %v, want %v (newest chunk)", consumed[0].StartEpoch, newestStart)
	}
	if consumed[0].Amount.Uint64() != 150 {
		t.Fatalf("consumed[0].Amount = %d, want 150", consumed[0].Amount.Uint64())
	}

	b, _ := l.Lookup(src, val)
	if got := b.ActiveAt(20).Uint64(); got != 150 {
		t.Fatalf("remaining active bond = %d, want 150 (100 untouched + 50 left of newest)", got)
	}
}

func TestBondLedgerUnbondSpansMultipleChunks(t *testing.T) {
	params := DefaultParams()
	l := NewBondLedger(params)
	src, val := testAddr(1), testAddr(2)

	_ = l.Bond(src, val, AmountFromUint64(100), 0)
	_ = l.Bond(src, val, AmountFromUint64(50), 3)

	consumed, err := l.Unbond(src, val, AmountFromUint64(120), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(consumed) != 2 {
		t.Fatalf("consumed = %v, want 2 chunks", consumed)
	}
	var total uint64
	for _, c := range consumed {
		total += c.Amount.Uint64()
	}
	if total != 120 {
		t.Fatalf("total consumed = %d, want 120", total)
	}

	b, _ := l.Lookup(src, val)
	if got := b.ActiveAt(20).Uint64(); got != 30 {
		t.Fatalf("remaining active bond = %d, want 30", got)
	}
}
