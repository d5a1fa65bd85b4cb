package pos

import "testing"

func TestAdvanceEpochIncrementsCurrentEpoch(t *testing.T) {
	core, _ := newTestCore(DefaultParams())
	if core.CurrentEpoch() != 0 {
		t.Fatalf("initial epoch = %d, want 0", core.CurrentEpoch())
	}
	if _, err := core.AdvanceEpoch(); err != nil {
		t.Fatal(err)
	}
	if core.CurrentEpoch() != 1 {
		t.Fatalf("epoch after AdvanceEpoch = %d, want 1", core.CurrentEpoch())
	}
}

func TestAdvanceEpochCopiesValidatorSetForward(t *testing.T) {
	core, _ := newTestCore(DefaultParams())
	val := testAddr(1)
	if err := core.BecomeValidator(val, []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig()); err != nil {
		t.Fatal(err)
	}
	pipeline := core.Pipeline()
	if _, err := core.ValidatorStateAt(val, pipeline); err != nil {
		t.Fatal(err)
	}

	if _, err := core.AdvanceEpoch(); err != nil {
		t.Fatal(err)
	}
	// The newly materialized pipeline epoch at the new current epoch must be
	// defined without an explicit write, since AdvanceEpoch copies it forward.
	newPipeline := core.Pipeline()
	state, err := core.ValidatorStateAt(val, newPipeline)
	if err != nil {
		t.Fatalf("ValidatorStateAt(newPipeline) failed after AdvanceEpoch: %v", err)
	}
	if state == StateInactive {
		t.Fatalf("ValidatorStateAt(newPipeline) = %v after AdvanceEpoch, want the copied-forward state", state)
	}
}

func TestValidatorSetUpdateTendermintEmitsActivation(t *testing.T) {
	core, tok := newTestCore(DefaultParams())
	val, src := testAddr(1), testAddr(2)
	tok.credit(stakingTokenAddr, src, 1000)

	if err := core.BecomeValidator(val, []byte("key1"), DecimalFromInt(0), DefaultValidatorConfig()); err != nil {
		t.Fatal(err)
	}
	if err := core.Bond(src, val, AmountFromUint64(500)); err != nil {
		t.Fatal(err)
	}

	// Advance to e_c+1 so e_c+1 is "new epoch - 2" relative to the
	// materialized pipeline epoch the bond wrote at (pipeline=2).
	if _, err := core.AdvanceEpoch(); err != nil {
		t.Fatal(err)
	}

	updates := core.ValidatorSetUpdateTendermint()
	found := false
	for _, u := range updates {
		if string(u.ConsensusKey) == "key1" && u.VotingPower == 500 && !u.Deactivated {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an activation update for key1 with voting power 500, got %v", updates)
	}
}
