package pos

import "testing"

func TestBondsAndUnbondsReflectsActivity(t *testing.T) {
	core, tok := newTestCore(DefaultParams())
	val, src := testAddr(1), testAddr(2)
	tok.credit(stakingTokenAddr, src, 1000)

	if err := core.BecomeValidator(val, []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig()); err != nil {
		t.Fatal(err)
	}
	if err := core.Bond(src, val, AmountFromUint64(500)); err != nil {
		t.Fatal(err)
	}

	bonds, unbonds := core.BondsAndUnbonds(src, val)
	if len(bonds) != 1 || bonds[0].Amount.Uint64() != 500 {
		t.Fatalf("BondsAndUnbonds bonds = %v, want one 500 entry", bonds)
	}
	if len(unbonds) != 0 {
		t.Fatalf("BondsAndUnbonds unbonds = %v, want none yet", unbonds)
	}
}

func TestValidatorStateAtUnknownValidator(t *testing.T) {
	core, _ := newTestCore(DefaultParams())
	if _, err := core.ValidatorStateAt(testAddr(9), 0); err != ErrNotAValidator {
		t.Fatalf("expected ErrNotAValidator, got %v", err)
	}
}

func TestAllValidatorAddressesListsEveryRegisteredValidator(t *testing.T) {
	core, _ := newTestCore(DefaultParams())
	v1, v2 := testAddr(1), testAddr(2)
	_ = core.BecomeValidator(v1, []byte("k1"), DecimalFromInt(0), DefaultValidatorConfig())
	_ = core.BecomeValidator(v2, []byte("k2"), DecimalFromInt(0), DefaultValidatorConfig())

	addrs := core.AllValidatorAddresses()
	if len(addrs) != 2 {
		t.Fatalf("AllValidatorAddresses = %v, want 2 entries", addrs)
	}
	seen := map[Address]bool{}
	for _, a := range addrs {
		seen[a] = true
	}
	if !seen[v1] || !seen[v2] {
		t.Fatalf("AllValidatorAddresses missing an expected address: %v", addrs)
	}
}

func TestValidatorSlashesEmptyBeforeAnyInfraction(t *testing.T) {
	core, _ := newTestCore(DefaultParams())
	val := testAddr(1)
	_ = core.BecomeValidator(val, []byte("k1"), DecimalFromInt(0), DefaultValidatorConfig())
	if got := core.ValidatorSlashes(val); len(got) != 0 {
		t.Fatalf("ValidatorSlashes before any infraction = %v, want empty", got)
	}
}
