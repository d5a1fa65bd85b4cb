package pos

// ValidatorUpdate is a single entry in the Tendermint validator-update diff:
// either a (re)activation with a voting power, or a deactivation.
type ValidatorUpdate struct {
	ConsensusKey []byte
	VotingPower  uint64
	Deactivated  bool
}

// AdvanceEpoch implements the §4.8 epoch transition driver for the block
// that produces the new epoch e_c+1: finalizes any slashes due, copies the
// validator sets and position index forward to the newly materialized
// pipeline epoch, and advances the current epoch. Returns the total amount
// slashed during this transition.
func (c *Core) AdvanceEpoch() (Amount, error) {
	c.mu.Lock()
	newEpoch := c.epoch + 1
	c.mu.Unlock()

	total, err := c.ProcessSlashes(newEpoch)
	if err != nil {
		return ZeroAmount(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	srcEpoch := newEpoch + Epoch(c.params.PipelineLen) - 1
	dstEpoch := newEpoch + Epoch(c.params.PipelineLen)
	c.sets.CopyForward(srcEpoch, dstEpoch)
	for _, v := range c.validators {
		v.state.CopyForward(srcEpoch, dstEpoch)
		v.commission.CopyForward(srcEpoch, dstEpoch)
	}
	c.epoch = newEpoch
	c.metrics.Gauge("pos_current_epoch").Set(int64(newEpoch))
	c.metrics.Gauge("pos_consensus_set_size").Set(int64(len(c.sets.ConsensusDescending(newEpoch))))
	c.metrics.Histogram("pos_slashed_per_epoch").Observe(float64(total.Uint64()))
	return total, nil
}

// votingPower converts bonded stake into Tendermint voting power via the
// configured votes-per-token ratio. The result is not checked for overflow:
// a product above 2^64-1 is truncated to its low 64 bits by Amount.Uint64.
func votingPower(stake Amount, votesPerToken Decimal) uint64 {
	return stake.MulDecimal(votesPerToken).Uint64()
}

// ValidatorSetUpdateTendermint implements §4.9: called at "new epoch - 2",
// it diffs the target epoch's (e_c+1) Consensus and BelowCapacity sets
// against the current epoch's voting powers and emits the minimal update
// set a Tendermint-style host must apply.
func (c *Core) ValidatorSetUpdateTendermint() []ValidatorUpdate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	eT := c.epoch + 1
	var updates []ValidatorUpdate

	for _, entry := range c.sets.ConsensusDescending(eT) {
		v, ok := c.validator(entry.Addr)
		if !ok {
			continue
		}
		vp := votingPower(entry.Stake, c.params.VotesPerToken)
		wasConsensus := c.sets.InConsensus(c.epoch, entry.Addr)
		prevVP := uint64(0)
		if wasConsensus {
			prevVP = votingPower(v.StakeAt(c.epoch), c.params.VotesPerToken)
		}
		if wasConsensus && prevVP == vp {
			continue
		}
		if prevVP == 0 && vp == 0 {
			continue
		}
		updates = append(updates, ValidatorUpdate{ConsensusKey: v.ConsensusKey, VotingPower: vp})
	}

	for _, entry := range c.sets.BelowCapacityDescending(eT) {
		v, ok := c.validator(entry.Addr)
		if !ok {
			continue
		}
		wasConsensus := c.sets.InConsensus(c.epoch, entry.Addr)
		if !wasConsensus {
			continue
		}
		prevVP := votingPower(v.StakeAt(c.epoch), c.params.VotesPerToken)
		if prevVP == 0 {
			continue
		}
		updates = append(updates, ValidatorUpdate{ConsensusKey: v.ConsensusKey, Deactivated: true})
	}

	return updates
}
