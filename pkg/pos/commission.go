package pos

// ChangeCommissionRate implements §4.10: a validator may adjust its
// commission rate by at most MaxCommissionChangePerEpoch per call, measured
// against the rate already scheduled at the pipeline epoch, never below zero
// and never above the ceiling fixed at genesis.
func (c *Core) ChangeCommissionRate(val Address, newRate Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}
	if newRate.IsNegative() {
		return ErrCommissionRateNegative
	}

	maxChange := v.MaxCommissionChangePerEpoch()
	if maxChange.Cmp(DecimalFromInt(0)) == 0 {
		return ErrMaxCommissionNotSet
	}

	pipeline := c.epoch + Epoch(c.params.PipelineLen)
	current := v.CommissionAt(pipeline)

	delta := newRate.Sub(current)
	if delta.IsNegative() {
		delta = DecimalFromInt(0).Sub(delta)
	}
	if delta.Cmp(maxChange) > 0 {
		return ErrCommissionRateChangeTooLarge
	}

	if newRate.Cmp(v.MaxCommissionRate()) > 0 {
		return ErrCommissionAboveCeiling
	}

	v.commission.Set(newRate, c.epoch, c.params.PipelineLen)
	return nil
}
