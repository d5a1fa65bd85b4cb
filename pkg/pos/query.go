package pos

// BondEntry is a single active bond chunk as seen by a read-only query.
type BondEntry struct {
	StartEpoch Epoch
	Amount     Amount
}

// UnbondEntry is a single pending unbond chunk as seen by a read-only query.
type UnbondEntry struct {
	StartEpoch    Epoch
	WithdrawEpoch Epoch
	Amount        Amount
}

// BondsAndUnbonds implements the §4.11 query of the same name: every
// outstanding bond chunk for (src, val) and every unbond chunk still
// awaiting withdrawal.
func (c *Core) BondsAndUnbonds(src, val Address) ([]BondEntry, []UnbondEntry) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var bonds []BondEntry
	if b, ok := c.bonds.Lookup(src, val); ok {
		for _, startEpoch := range b.deltas.Epochs() {
			delta, ok := b.deltas.DeltaAt(startEpoch)
			if !ok {
				continue
			}
			amt := delta.ToAmount()
			if amt.IsZero() {
				continue
			}
			bonds = append(bonds, BondEntry{StartEpoch: startEpoch, Amount: amt})
		}
	}

	var unbonds []UnbondEntry
	if v, ok := c.validator(val); ok {
		for _, we := range v.AllUnbondWithdrawEpochs() {
			for _, rec := range v.UnbondRecordsAt(we) {
				unbonds = append(unbonds, UnbondEntry{StartEpoch: rec.StartEpoch, WithdrawEpoch: we, Amount: rec.Amount})
			}
		}
	}

	return bonds, unbonds
}

// ValidatorSlashes implements the §4.11 query of the same name: the
// append-only list of finalized slashes for a validator.
func (c *Core) ValidatorSlashes(val Address) []Slash {
	return c.slashes.FinalizedSlashes(val)
}

// ValidatorStateAt implements the §4.11 validator_state query.
func (c *Core) ValidatorStateAt(val Address, e Epoch) (ValidatorState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.validator(val)
	if !ok {
		return StateInactive, ErrNotAValidator
	}
	return v.StateAt(e), nil
}

// AllValidatorAddresses implements the §4.11 all_validator_addresses query.
func (c *Core) AllValidatorAddresses() []Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Address, 0, len(c.validators))
	for addr := range c.validators {
		out = append(out, addr)
	}
	return out
}
