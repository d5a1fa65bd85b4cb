package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valterra/pos/pkg/types"
)

type validatorFlag []genesisValidatorRecord

func (v *validatorFlag) String() string { return "" }

func (v *validatorFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return fmt.Errorf("--validator wants address,consensus_key_hex,stake,commission, got %q", s)
	}
	stake, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid stake %q: %w", parts[2], err)
	}
	*v = append(*v, genesisValidatorRecord{
		Address:      parts[0],
		ConsensusKey: parts[1],
		Stake:        stake,
		Commission:   parts[3],
	})
	return nil
}

func cmdGenesis(args []string) error {
	fs := newCustomFlagSet("genesis")
	state := fs.String("state", "posd-state.json", "path to the state file to create")
	var validators validatorFlag
	fs.Var(&validators, "validator", "address,consensus_key_hex,stake,commission (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(validators) == 0 {
		return fmt.Errorf("genesis requires at least one --validator")
	}

	sf := &stateFile{Params: defaultParamsRecord(), Genesis: validators}
	if _, _, err := rebuildCore(sf); err != nil {
		return fmt.Errorf("genesis validators rejected: %w", err)
	}
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("initialized %s with %d validator(s)\n", *state, len(validators))
	return nil
}

func cmdBond(args []string) error {
	fs := newCustomFlagSet("bond")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var src, val types.Address
	fs.AddressVar(&src, "src", "", "bond source address")
	fs.AddressVar(&val, "val", "", "validator address")
	var amount uint64
	fs.Uint64Var(&amount, "amount", 0, "amount to bond")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "bond", Src: src.Hex(), Val: val.Hex(), Amount: amount}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("bonded %d from %s to %s\n", amount, src.Hex(), val.Hex())
	return nil
}

func cmdUnbond(args []string) error {
	fs := newCustomFlagSet("unbond")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var src, val types.Address
	fs.AddressVar(&src, "src", "", "bond source address")
	fs.AddressVar(&val, "val", "", "validator address")
	var amount uint64
	fs.Uint64Var(&amount, "amount", 0, "amount to unbond")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "unbond", Src: src.Hex(), Val: val.Hex(), Amount: amount}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("unbonded %d from %s to %s\n", amount, src.Hex(), val.Hex())
	return nil
}

func cmdWithdraw(args []string) error {
	fs := newCustomFlagSet("withdraw")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var src, val types.Address
	fs.AddressVar(&src, "src", "", "bond source address")
	fs.AddressVar(&val, "val", "", "validator address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "withdraw", Src: src.Hex(), Val: val.Hex()}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("withdrew matured unbonds for %s from %s\n", src.Hex(), val.Hex())
	return nil
}

func cmdBecomeValidator(args []string) error {
	fs := newCustomFlagSet("become-validator")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var val types.Address
	fs.AddressVar(&val, "val", "", "new validator address")
	consensusKey := fs.String("consensus-key", "", "hex-encoded consensus public key")
	commission := fs.String("commission", "0", "initial commission rate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "become-validator", Val: val.Hex(), ConsensusKey: *consensusKey, Commission: *commission}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("registered validator %s\n", val.Hex())
	return nil
}

func cmdUnjail(args []string) error {
	fs := newCustomFlagSet("unjail")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var val types.Address
	fs.AddressVar(&val, "val", "", "validator address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "unjail", Val: val.Hex()}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("unjailed %s\n", val.Hex())
	return nil
}

func cmdChangeCommissionRate(args []string) error {
	fs := newCustomFlagSet("change-commission-rate")
	state := fs.String("state", "posd-state.json", "path to the state file")
	var val types.Address
	fs.AddressVar(&val, "val", "", "validator address")
	rate := fs.String("rate", "0", "new commission rate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	op := opRecord{Kind: "change-commission-rate", Val: val.Hex(), Rate: *rate}
	core, token, err := rebuildCore(sf)
	if err != nil {
		return err
	}
	if err := applyOp(core, token, op); err != nil {
		return err
	}
	sf.Ops = append(sf.Ops, op)
	if err := saveState(*state, sf); err != nil {
		return err
	}
	fmt.Printf("changed commission rate for %s to %s\n", val.Hex(), *rate)
	return nil
}

func cmdQuery(args []string) error {
	fs := newCustomFlagSet("query")
	state := fs.String("state", "posd-state.json", "path to the state file")
	what := fs.String("what", "addresses", "one of: bonds, unbonds, state, slashes, addresses")
	var src, val types.Address
	fs.AddressVar(&src, "src", "", "bond source address (bonds/unbonds)")
	fs.AddressVar(&val, "val", "", "validator address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sf, err := loadState(*state)
	if err != nil {
		return err
	}
	core, _, err := rebuildCore(sf)
	if err != nil {
		return err
	}

	switch *what {
	case "addresses":
		for _, a := range core.AllValidatorAddresses() {
			fmt.Println(a.Hex())
		}
	case "state":
		s, err := core.ValidatorStateAt(val, core.CurrentEpoch())
		if err != nil {
			return err
		}
		fmt.Println(s.String())
	case "slashes":
		for _, s := range core.ValidatorSlashes(val) {
			fmt.Printf("epoch=%d height=%d type=%s rate=%s\n", uint64(s.Epoch), s.Height, s.Type.String(), s.Rate.String())
		}
	case "bonds":
		bonds, _ := core.BondsAndUnbonds(src, val)
		for _, b := range bonds {
			fmt.Printf("start_epoch=%d amount=%d\n", uint64(b.StartEpoch), b.Amount.Uint64())
		}
	case "unbonds":
		_, unbonds := core.BondsAndUnbonds(src, val)
		for _, u := range unbonds {
			fmt.Printf("start_epoch=%d withdraw_epoch=%d amount=%d\n", uint64(u.StartEpoch), uint64(u.WithdrawEpoch), u.Amount.Uint64())
		}
	default:
		return fmt.Errorf("unknown --what %q", *what)
	}
	return nil
}
