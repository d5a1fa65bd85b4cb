package pos

// GenesisValidator describes one validator present at chain genesis.
type GenesisValidator struct {
	Address      Address
	ConsensusKey []byte
	Stake        Amount
	Commission   Decimal
	Config       ValidatorConfig
}

// InitGenesis implements §4.12/D3 init_genesis(params, validators, epoch=0):
// constructs a fresh Core and, for a pre-shuffled validator list, writes each
// validator's state, commission and set membership at every epoch in
// [0, pipeline_len] so that reads at any pipeline offset during the chain's
// first pipeline_len epochs are always defined. The stake delta, the total
// delta and the genesis self-bond are written once, at epoch 0.
func InitGenesis(params Params, validators []GenesisValidator, token TokenFacade, stakingToken, posAccount, slashPoolAccount Address) (*Core, error) {
	core, err := NewCore(params, token, stakingToken, posAccount, slashPoolAccount)
	if err != nil {
		return nil, err
	}

	core.mu.Lock()
	defer core.mu.Unlock()

	for _, gv := range validators {
		v := NewValidator(gv.Address, gv.ConsensusKey, gv.Commission, gv.Config, 0, params.PipelineLen)
		core.validators[gv.Address] = v
		core.byConsHash[v.ConsensusHash] = gv.Address

		// The stake delta and total delta are cumulative sums over every
		// epoch <= the queried one (EpochedDelta.Get), so each is written
		// exactly once at epoch 0: writing it again at every offset would
		// have the genesis stake compound on itself at every later epoch.
		if err := v.AddDelta(ChangeFromAmount(gv.Stake), 0, 0); err != nil {
			return nil, err
		}
		if err := core.totalDeltas.Add(ChangeFromAmount(gv.Stake), 0, 0); err != nil {
			return nil, err
		}
		if !gv.Stake.IsZero() {
			// Registers the genesis stake as a self-bond so a validator can
			// later self-unbond against its own genesis stake the same way
			// it would unbond a delegation received through Bond.
			selfBond := core.bonds.get(gv.Address, gv.Address)
			if err := selfBond.appendDelta(0, 0, ChangeFromAmount(gv.Stake)); err != nil {
				return nil, err
			}
		}

		// Validator state and set membership are plain per-epoch values, so
		// each pipeline-offset epoch needs its own write to stay defined.
		for off := uint64(0); off <= params.PipelineLen; off++ {
			if off > 0 {
				v.commission.Set(gv.Commission, 0, off)
			}
			state, evictedAddr, evictedState := core.sets.Insert(Epoch(off), gv.Address, gv.Stake)
			v.SetStateAt(state, Epoch(off), 0)
			if evictedAddr != nil {
				if ev, ok := core.validator(*evictedAddr); ok {
					ev.SetStateAt(evictedState, Epoch(off), 0)
				}
			}
		}
	}

	core.metrics.Gauge("pos_validators_total").Set(int64(len(validators)))
	return core, nil
}
