package pos

import "github.com/valterra/pos/pkg/crypto"

// BecomeValidator registers addr as a validator effective at the pipeline
// epoch, in BelowCapacity or Consensus per the §4.4 insertion protocol
// applied to its genesis stake of zero (any stake arrives later via bond).
func (c *Core) BecomeValidator(addr Address, consensusKey []byte, commission Decimal, cfg ValidatorConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := crypto.Keccak256Hash(consensusKey)
	if existing, ok := c.byConsHash[hash]; ok && existing != addr {
		return ErrDuplicateConsensusKeyHash
	}
	if _, ok := c.validators[addr]; ok {
		return ErrDuplicateConsensusKeyHash
	}

	pipeline := c.epoch + Epoch(c.params.PipelineLen)
	v := NewValidator(addr, consensusKey, commission, cfg, pipeline, c.params.PipelineLen)
	c.validators[addr] = v
	c.byConsHash[hash] = addr

	state, evictedAddr, evictedState := c.sets.Insert(pipeline, addr, ZeroAmount())
	v.SetStateAt(state, pipeline, 0)
	if evictedAddr != nil {
		if ev, ok := c.validator(*evictedAddr); ok {
			ev.SetStateAt(evictedState, pipeline, 0)
		}
	}
	c.log.Info("validator registered", "address", addr.Hex(), "state", state.String())
	c.metrics.Counter("pos_validators_registered_total").Inc()
	c.metrics.Gauge("pos_validators_total").Set(int64(len(c.validators)))
	return nil
}

// Bond implements §4.5 bond(src, val, amount, e_c).
func (c *Core) Bond(src, val Address, amount Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}
	if _, isValidator := c.validators[src]; isValidator && src != val {
		return ErrSourceMustNotBeAValidator
	}

	pipeline := c.epoch + Epoch(c.params.PipelineLen)

	if err := c.bonds.Bond(src, val, amount, c.epoch); err != nil {
		return err
	}
	if err := v.AddDelta(ChangeFromAmount(amount), c.epoch, c.params.PipelineLen); err != nil {
		return err
	}
	if err := c.totalDeltas.Add(ChangeFromAmount(amount), c.epoch, c.params.PipelineLen); err != nil {
		return err
	}

	if v.StateAt(pipeline) != StateJailed {
		newStake := v.StakeAt(pipeline)
		state, evictedAddr, evictedState := c.sets.ChangeStake(pipeline, val, newStake)
		v.SetStateAt(state, pipeline, 0)
		if evictedAddr != nil {
			if ev, ok := c.validator(*evictedAddr); ok {
				ev.SetStateAt(evictedState, pipeline, 0)
			}
		}
	}

	if err := c.token.Transfer(c.stakingToken, src, c.posAccount, amount); err != nil {
		return WithCode(ErrStorageFailure)
	}
	c.metrics.Counter("pos_bonds_total").Inc()
	c.metrics.Histogram("pos_bond_amount").Observe(float64(amount.Uint64()))
	return nil
}

// Unbond implements §4.5 unbond(src, val, amount, e_c).
func (c *Core) Unbond(src, val Address, amount Amount) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}
	if v.IsFrozen(c.epoch, c.params.UnbondingLen) {
		return ErrValidatorFrozen
	}

	consumed, err := c.bonds.Unbond(src, val, amount, c.epoch)
	if err != nil {
		return err
	}

	withdrawEpoch := c.epoch + Epoch(c.params.PipelineLen) + Epoch(c.params.UnbondingLen)
	pipeline := c.epoch + Epoch(c.params.PipelineLen)

	amountAfterSlashing := ZeroAmount()
	for _, chunk := range consumed {
		v.AddUnbondRecord(withdrawEpoch, UnbondRecord{StartEpoch: chunk.StartEpoch, Amount: chunk.Amount})

		var applicable []Slash
		for _, s := range c.slashes.FinalizedSlashes(val) {
			if s.Epoch >= chunk.StartEpoch {
				applicable = append(applicable, s)
			}
		}
		realized := chunk.Amount.CheckedSub(SlashedAmount(chunk.Amount, c.params.UnbondingLen, applicable))
		amountAfterSlashing = amountAfterSlashing.Add(realized)
	}

	if err := v.AddDelta(ChangeFromAmount(amountAfterSlashing).Negate(), c.epoch, c.params.PipelineLen); err != nil {
		return err
	}
	if err := c.totalDeltas.Add(ChangeFromAmount(amountAfterSlashing).Negate(), c.epoch, c.params.PipelineLen); err != nil {
		return err
	}

	if v.StateAt(pipeline) != StateJailed {
		newStake := v.StakeAt(pipeline)
		state, evictedAddr, evictedState := c.sets.ChangeStake(pipeline, val, newStake)
		v.SetStateAt(state, pipeline, 0)
		if evictedAddr != nil {
			if ev, ok := c.validator(*evictedAddr); ok {
				ev.SetStateAt(evictedState, pipeline, 0)
			}
		}
	}
	c.metrics.Counter("pos_unbonds_total").Inc()
	c.metrics.Histogram("pos_unbond_amount").Observe(float64(amountAfterSlashing.Uint64()))
	return nil
}

// Withdraw implements §4.5 withdraw(src, val, e_c): releases every unbond
// chunk maturing at or before the current epoch, slash-adjusted, to src.
func (c *Core) Withdraw(src, val Address) (Amount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ZeroAmount(), ErrNotAValidator
	}

	withdrawEpochs := v.AllUnbondWithdrawEpochs()
	if len(withdrawEpochs) == 0 {
		return ZeroAmount(), ErrNoUnbondFound
	}

	total := ZeroAmount()
	any := false
	for _, we := range withdrawEpochs {
		if we > c.epoch {
			continue
		}
		any = true
		for _, rec := range v.UnbondRecordsAt(we) {
			cutoff := Epoch(0)
			if we > Epoch(c.params.UnbondingLen) {
				cutoff = we - Epoch(c.params.UnbondingLen)
			}
			var applicable []Slash
			for _, s := range c.slashes.FinalizedSlashes(val) {
				if s.Epoch >= rec.StartEpoch && s.Epoch < cutoff {
					applicable = append(applicable, s)
				}
			}
			realized := rec.Amount.CheckedSub(SlashedAmount(rec.Amount, c.params.UnbondingLen, applicable))
			total = total.Add(realized)
		}
		v.ClearUnbondRecordsAt(we)
	}
	if !any {
		return ZeroAmount(), nil
	}
	if total.IsZero() {
		return ZeroAmount(), nil
	}
	if err := c.token.Transfer(c.stakingToken, c.posAccount, src, total); err != nil {
		return ZeroAmount(), WithCode(ErrStorageFailure)
	}
	c.metrics.Counter("pos_withdrawals_total").Inc()
	c.metrics.Histogram("pos_withdraw_amount").Observe(float64(total.Uint64()))
	return total, nil
}

// Slash implements §4.6 slash(val, e_i, height, type, e_c): enqueues the
// infraction and immediately jails the validator across the pipeline window.
func (c *Core) Slash(val Address, ei Epoch, height uint64, typ SlashType) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}

	c.slashes.Enqueue(val, ei, height, typ)
	v.RecordInfraction(ei)

	for offset := uint64(1); offset <= c.params.PipelineLen; offset++ {
		e := c.epoch + Epoch(offset)
		promoted, newState := c.sets.Remove(e, val)
		v.SetStateAt(StateJailed, e, 0)
		if promoted != nil {
			if pv, ok := c.validator(*promoted); ok {
				pv.SetStateAt(newState, e, 0)
			}
		}
	}
	c.log.Warn("validator slashed", "address", val.Hex(), "infraction_epoch", uint64(ei), "type", typ.String())
	c.metrics.Counter("pos_slashes_enqueued_total").Inc()
	return nil
}

// Unjail implements §4.6 unjail(val, e_c).
func (c *Core) Unjail(val Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}
	pipeline := c.epoch + Epoch(c.params.PipelineLen)
	if v.StateAt(pipeline) != StateJailed {
		return ErrNotJailed
	}
	lastSlash, has := v.LastSlashEpoch()
	if has && uint64(c.epoch) < uint64(lastSlash)+c.params.UnbondingLen {
		return ErrNotEligibleForUnjail
	}

	stake := v.StakeAt(pipeline)
	state, evictedAddr, evictedState := c.sets.Insert(pipeline, val, stake)
	v.SetStateAt(state, pipeline, 0)
	if evictedAddr != nil {
		if ev, ok := c.validator(*evictedAddr); ok {
			ev.SetStateAt(evictedState, pipeline, 0)
		}
	}
	return nil
}

// ProcessSlashes runs §4.6 process_slashes(e_c) and transfers the total
// slashed amount from the PoS account to the slash pool.
func (c *Core) ProcessSlashes(eC Epoch) (Amount, error) {
	// Deliberately does not hold c.mu here: the callbacks SlashPipeline
	// invokes on c (StakeAt, ApplyValidatorDelta, ...) each take c.mu
	// themselves, and sync.RWMutex is not reentrant.
	total, err := c.slashes.ProcessSlashes(eC, c)
	if err != nil {
		return ZeroAmount(), err
	}
	if total.IsZero() {
		return total, nil
	}
	if err := c.token.Transfer(c.stakingToken, c.posAccount, c.slashPoolAccount, total); err != nil {
		return total, WithCode(ErrStorageFailure)
	}
	c.metrics.Counter("pos_slashes_finalized_total").Inc()
	c.metrics.Histogram("pos_slashed_amount").Observe(float64(total.Uint64()))
	return total, nil
}

// LogBlockRewards implements §4.7: tallies fractional rewards for the
// consensus set at the current epoch given the block's vote info.
func (c *Core) LogBlockRewards(proposer Address, votes []VoteInfo) error {
	c.mu.RLock()
	epoch := c.epoch
	consensus := c.sets.ConsensusDescending(epoch)
	stakes := make(map[Address]Amount, len(consensus))
	for _, e := range consensus {
		stakes[e.Addr] = e.Stake
	}
	c.mu.RUnlock()

	stateAt := func(addr Address, e Epoch) ValidatorState {
		c.mu.RLock()
		defer c.mu.RUnlock()
		v, ok := c.validator(addr)
		if !ok {
			return StateInactive
		}
		return v.StateAt(e)
	}

	return LogBlockRewards(c.rewards, c.params, epoch, proposer, votes, stakes, stateAt)
}

// RewardsAccumulatorView exposes the rewards accumulator for draining by the
// external inflation process.
func (c *Core) RewardsAccumulatorView() *RewardsAccumulator {
	return c.rewards
}
