package pos

import "testing"

func testAddr(b byte) Address {
	var a Address
	a[len(a)-1] = b
	return a
}

func TestNewValidatorDefaults(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromFloat(0.1), DefaultValidatorConfig(), 0, 2)
	if v.StateAt(0) != StateBelowCapacity {
		t.Fatalf("initial state = %v, want BelowCapacity", v.StateAt(0))
	}
	if v.StakeAt(0).Uint64() != 0 {
		t.Fatalf("initial stake = %d, want 0", v.StakeAt(0).Uint64())
	}
	if v.CommissionAt(0).Cmp(DecimalFromFloat(0.1)) != 0 {
		t.Fatalf("initial commission = %v, want 0.1", v.CommissionAt(0))
	}
}

func TestValidatorStateAtUndefinedIsInactive(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 2)
	if got := v.StateAt(100); got != StateInactive {
		t.Fatalf("StateAt far future = %v, want Inactive", got)
	}
}

func TestValidatorSetStateAt(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 2)
	if err := v.SetStateAt(StateConsensus, 0, 2); err != nil {
		t.Fatal(err)
	}
	if v.StateAt(1) != StateBelowCapacity {
		t.Fatalf("StateAt(1) = %v, want BelowCapacity", v.StateAt(1))
	}
	if v.StateAt(2) != StateConsensus {
		t.Fatalf("StateAt(2) = %v, want Consensus", v.StateAt(2))
	}
}

func TestValidatorAddDeltaAccumulates(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 2)
	if err := v.AddDelta(ChangeFromAmount(AmountFromUint64(1000)), 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := v.AddDelta(ChangeFromAmount(AmountFromUint64(500)), 0, 2); err != nil {
		t.Fatal(err)
	}
	if got := v.StakeAt(0).Uint64(); got != 1000 {
		t.Fatalf("StakeAt(0) = %d, want 1000", got)
	}
	if got := v.StakeAt(2).Uint64(); got != 1500 {
		t.Fatalf("StakeAt(2) = %d, want 1500", got)
	}
}

func TestValidatorRecordInfractionTracksMax(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 2)
	if _, ok := v.LastSlashEpoch(); ok {
		t.Fatal("expected no last slash epoch before any infraction")
	}
	v.RecordInfraction(4)
	v.RecordInfraction(2)
	e, ok := v.LastSlashEpoch()
	if !ok || e != 4 {
		t.Fatalf("LastSlashEpoch = %v, %v, want 4, true", e, ok)
	}
	v.RecordInfraction(9)
	e, _ = v.LastSlashEpoch()
	if e != 9 {
		t.Fatalf("LastSlashEpoch after later infraction = %v, want 9", e)
	}
}

func TestValidatorIsFrozen(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 4)
	if v.IsFrozen(5, 4) {
		t.Fatal("validator with no infractions must never be frozen")
	}
	v.RecordInfraction(4)
	// last_slash_epoch + unbonding_len + 1 = 4+4+1 = 9
	if !v.IsFrozen(8, 4) {
		t.Fatal("expected frozen at epoch 8")
	}
	if v.IsFrozen(9, 4) {
		t.Fatal("expected unfrozen at epoch 9")
	}
}

func TestValidatorUnbondRecordsLifecycle(t *testing.T) {
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig(), 0, 2)
	v.AddUnbondRecord(7, UnbondRecord{StartEpoch: 3, Amount: AmountFromUint64(200)})
	v.AddUnbondRecord(7, UnbondRecord{StartEpoch: 3, Amount: AmountFromUint64(50)})

	recs := v.UnbondRecordsAt(7)
	if len(recs) != 2 {
		t.Fatalf("UnbondRecordsAt(7) = %d records, want 2", len(recs))
	}

	epochs := v.AllUnbondWithdrawEpochs()
	if len(epochs) != 1 || epochs[0] != 7 {
		t.Fatalf("AllUnbondWithdrawEpochs = %v, want [7]", epochs)
	}

	v.ClearUnbondRecordsAt(7)
	if recs := v.UnbondRecordsAt(7); len(recs) != 0 {
		t.Fatalf("UnbondRecordsAt(7) after clear = %d records, want 0", len(recs))
	}
}

func TestValidatorConfigCeilings(t *testing.T) {
	cfg := ValidatorConfig{
		MaxCommissionChangePerEpoch: DecimalFromFloat(0.02),
		MaxCommissionRate:           DecimalFromFloat(0.5),
	}
	v := NewValidator(testAddr(1), []byte("key1"), DecimalFromInt(0), cfg, 0, 2)
	if v.MaxCommissionChangePerEpoch().Cmp(DecimalFromFloat(0.02)) != 0 {
		t.Fatal("MaxCommissionChangePerEpoch mismatch")
	}
	if v.MaxCommissionRate().Cmp(DecimalFromFloat(0.5)) != 0 {
		t.Fatal("MaxCommissionRate mismatch")
	}
}
