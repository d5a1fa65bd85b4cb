package main

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"github.com/valterra/pos/pkg/pos"
	"github.com/valterra/pos/pkg/types"
)

// genesisValidatorRecord is the on-disk form of a pos.GenesisValidator.
type genesisValidatorRecord struct {
	Address      string `json:"address"`
	ConsensusKey string `json:"consensus_key"`
	Stake        uint64 `json:"stake"`
	Commission   string `json:"commission"`
}

// opRecord is one previously accepted operation, replayed in order to
// rebuild the in-memory Core on every posd invocation. This is a demo
// stand-in for the real persisted state layout described in the external
// interfaces (pos/validator/..., pos/bond/..., etc.) which a host's actual
// storage facade would maintain directly.
type opRecord struct {
	Kind         string `json:"kind"`
	Src          string `json:"src,omitempty"`
	Val          string `json:"val,omitempty"`
	Amount       uint64 `json:"amount,omitempty"`
	ConsensusKey string `json:"consensus_key,omitempty"`
	Commission   string `json:"commission,omitempty"`
	Rate         string `json:"rate,omitempty"`
}

type paramsRecord struct {
	PipelineLen               uint64 `json:"pipeline_len"`
	UnbondingLen              uint64 `json:"unbonding_len"`
	MaxConsensusValidators    uint64 `json:"max_consensus_validators"`
	CubicSlashingWindowLength uint64 `json:"cubic_slashing_window_length"`
}

type stateFile struct {
	Params  paramsRecord             `json:"params"`
	Genesis []genesisValidatorRecord `json:"genesis"`
	Ops     []opRecord               `json:"ops"`
}

func defaultParamsRecord() paramsRecord {
	p := pos.DefaultParams()
	return paramsRecord{
		PipelineLen:               p.PipelineLen,
		UnbondingLen:              p.UnbondingLen,
		MaxConsensusValidators:    p.MaxConsensusValidators,
		CubicSlashingWindowLength: p.CubicSlashingWindowLength,
	}
}

func loadState(path string) (*stateFile, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	var sf stateFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return nil, err
	}
	return &sf, nil
}

func saveState(path string, sf *stateFile) error {
	b, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

var (
	stakingTokenAddr  = types.HexToAddress("0x0000000000000000000000000000000000000a")
	posAccountAddr    = types.HexToAddress("0x0000000000000000000000000000000000000b")
	slashPoolAddr     = types.HexToAddress("0x0000000000000000000000000000000000000c")
)

// rebuildCore replays a state file's genesis and operation log into a fresh
// Core. Every posd subcommand that reads or mutates state does this first:
// the CLI has no long-running process to hold state across invocations.
func rebuildCore(sf *stateFile) (*pos.Core, *inMemoryToken, error) {
	params := pos.Params{
		PipelineLen:               sf.Params.PipelineLen,
		UnbondingLen:              sf.Params.UnbondingLen,
		MaxConsensusValidators:    sf.Params.MaxConsensusValidators,
		CubicSlashingWindowLength: sf.Params.CubicSlashingWindowLength,
		VotesPerToken:             pos.DecimalFromInt(1),
		SlashRateByType: map[pos.SlashType]pos.Decimal{
			pos.SlashDuplicateVote:     pos.DecimalFromFloat(0.05),
			pos.SlashLightClientAttack: pos.DecimalFromFloat(0.05),
		},
		BlockProposerReward: pos.DecimalFromFloat(0.05),
		BlockVoteReward:     pos.DecimalFromFloat(0.05),
	}

	token := newInMemoryToken()

	var gvs []pos.GenesisValidator
	for _, g := range sf.Genesis {
		commission, err := pos.DecimalFromString(g.Commission)
		if err != nil {
			return nil, nil, err
		}
		key, err := hex.DecodeString(g.ConsensusKey)
		if err != nil {
			return nil, nil, err
		}
		gvs = append(gvs, pos.GenesisValidator{
			Address:      types.HexToAddress(g.Address),
			ConsensusKey: key,
			Stake:        pos.AmountFromUint64(g.Stake),
			Commission:   commission,
			Config:       pos.DefaultValidatorConfig(),
		})
	}

	core, err := pos.InitGenesis(params, gvs, token, stakingTokenAddr, posAccountAddr, slashPoolAddr)
	if err != nil {
		return nil, nil, err
	}

	for _, op := range sf.Ops {
		if err := applyOp(core, token, op); err != nil {
			return nil, nil, err
		}
	}
	return core, token, nil
}

// applyOp replays (or freshly applies) a single recorded operation against
// core. For bond ops it mints the bonded amount to the source first: in a
// real deployment the source already holds a balance in the host's token
// ledger, which posd has no access to outside this demo.
func applyOp(core *pos.Core, token *inMemoryToken, op opRecord) error {
	switch op.Kind {
	case "bond":
		src := types.HexToAddress(op.Src)
		token.credit(src, pos.AmountFromUint64(op.Amount))
		return core.Bond(src, types.HexToAddress(op.Val), pos.AmountFromUint64(op.Amount))
	case "unbond":
		return core.Unbond(types.HexToAddress(op.Src), types.HexToAddress(op.Val), pos.AmountFromUint64(op.Amount))
	case "withdraw":
		_, err := core.Withdraw(types.HexToAddress(op.Src), types.HexToAddress(op.Val))
		return err
	case "become-validator":
		key, err := hex.DecodeString(op.ConsensusKey)
		if err != nil {
			return err
		}
		commission, err := pos.DecimalFromString(op.Commission)
		if err != nil {
			return err
		}
		return core.BecomeValidator(types.HexToAddress(op.Val), key, commission, pos.DefaultValidatorConfig())
	case "unjail":
		return core.Unjail(types.HexToAddress(op.Val))
	case "change-commission-rate":
		rate, err := pos.DecimalFromString(op.Rate)
		if err != nil {
			return err
		}
		return core.ChangeCommissionRate(types.HexToAddress(op.Val), rate)
	default:
		return nil
	}
}
