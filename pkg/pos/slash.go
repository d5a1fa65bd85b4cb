package pos

import "sync"

// Slash is a single enqueued or finalized infraction record.
type Slash struct {
	Epoch  Epoch // infraction epoch
	Height uint64
	Type   SlashType
	Rate   Decimal // zero until process_slashes finalizes it
}

type slashEntry struct {
	Validator       Address
	Infraction      Slash
	ProcessingEpoch Epoch
}

// SlashPipeline implements C6: evidence enqueues a slash under a deferred
// processing epoch; process_slashes later computes the cubic rate and
// finalizes the stake reduction.
type SlashPipeline struct {
	mu        sync.RWMutex
	params    Params
	entries   []*slashEntry
	finalized map[Address][]Slash
}

// NewSlashPipeline creates an empty pipeline.
func NewSlashPipeline(params Params) *SlashPipeline {
	return &SlashPipeline{params: params, finalized: make(map[Address][]Slash)}
}

// Enqueue records evidence of an infraction. The slash is deferred to
// processing_epoch = infraction_epoch + unbonding_len + 1.
func (p *SlashPipeline) Enqueue(val Address, ei Epoch, height uint64, typ SlashType) Epoch {
	p.mu.Lock()
	defer p.mu.Unlock()
	processingEpoch := ei + Epoch(p.params.UnbondingLen) + 1
	p.entries = append(p.entries, &slashEntry{
		Validator:       val,
		Infraction:      Slash{Epoch: ei, Height: height, Type: typ},
		ProcessingEpoch: processingEpoch,
	})
	return processingEpoch
}

// FinalizedSlashes returns the append-only list of finalized slashes for a
// validator, in the order they were processed.
func (p *SlashPipeline) FinalizedSlashes(val Address) []Slash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Slash(nil), p.finalized[val]...)
}

// cubicRate computes the rate in §4.6: 9*f^2, clamped below by the type's
// base rate and above by 1, where f sums, over the cubic window around ei,
// the fraction of total stake held by every validator with an infraction
// recorded at that window epoch.
func (p *SlashPipeline) cubicRate(stakeAt func(Address, Epoch) Amount, totalStakeAt func(Epoch) Amount, ei Epoch, baseRate Decimal) Decimal {
	w := p.params.CubicSlashingWindowLength
	var lo Epoch
	if uint64(ei) >= w {
		lo = ei - Epoch(w)
	}
	hi := ei + Epoch(w)

	f := DecimalFromInt(0)
	for e := lo; e <= hi; e++ {
		seen := make(map[Address]bool)
		sum := ZeroAmount()
		for _, ent := range p.entries {
			if ent.Infraction.Epoch != e || seen[ent.Validator] {
				continue
			}
			seen[ent.Validator] = true
			sum = sum.Add(stakeAt(ent.Validator, e))
		}
		total := totalStakeAt(e)
		if total.IsZero() {
			continue
		}
		f = f.Add(DecimalRatio(sum, total))
	}

	nine := DecimalFromInt(9)
	rate := nine.Mul(f).Mul(f)
	rate = rate.Max(baseRate)
	return rate.Min(DecimalFromInt(1))
}

// SlashedAmount is the iterative helper used by unbond and withdraw: given a
// face amount and the time-ordered (ascending-epoch) slashes applicable to
// it, returns the amount surviving after every overlapping slash window has
// taken its cut. See §4.6 for the overlap semantics this implements.
func SlashedAmount(amount Amount, unbondingLen uint64, slashes []Slash) Amount {
	type computedEntry struct {
		epoch   Epoch
		slashed Amount
	}
	updated := amount
	var computed []computedEntry

	for _, s := range slashes {
		var kept []computedEntry
		for _, c := range computed {
			if uint64(c.epoch)+unbondingLen < uint64(s.Epoch) {
				updated = updated.CheckedSub(c.slashed)
			} else {
				kept = append(kept, c)
			}
		}
		computed = kept
		thisSlashed := updated.MulDecimal(s.Rate)
		computed = append(computed, computedEntry{epoch: s.Epoch, slashed: thisSlashed})
	}

	sum := ZeroAmount()
	for _, c := range computed {
		sum = sum.Add(c.slashed)
	}
	return updated.CheckedSub(sum)
}

// SlashContext is the set of callbacks ProcessSlashes needs into the rest of
// the core (validator stakes, bond unbond maturities, and the ability to
// write back stake-reducing deltas). Core (api.go) implements it.
type SlashContext interface {
	StakeAt(val Address, e Epoch) Amount
	TotalStakeAt(e Epoch) Amount
	UnbondsMaturingBetween(val Address, fromInclusive, toInclusive Epoch) []UnbondRecord
	UnbondsMaturingAt(val Address, e Epoch) []UnbondRecord
	ApplyValidatorDelta(val Address, e Epoch, delta Change) error
	ApplyTotalDelta(e Epoch, delta Change) error
	BaseRateFor(typ SlashType) Decimal
}

// ProcessSlashes runs the §4.6 finalization pass for every slash whose
// processing epoch is eC: computes the cubic rate, appends it to the
// validator's finalized history, and applies the two-pass stake-reduction
// algorithm. Returns the total amount slashed across all validators, which
// the caller transfers from the PoS account to the slash pool.
func (p *SlashPipeline) ProcessSlashes(eC Epoch, ctx SlashContext) (Amount, error) {
	if uint64(eC) < p.params.UnbondingLen+1 {
		return ZeroAmount(), nil
	}
	infractionEpoch := eC - Epoch(p.params.UnbondingLen) - 1

	p.mu.Lock()
	var due []*slashEntry
	for _, ent := range p.entries {
		if ent.ProcessingEpoch == eC {
			due = append(due, ent)
		}
	}
	p.mu.Unlock()
	if len(due) == 0 {
		return ZeroAmount(), nil
	}

	byValidator := make(map[Address][]*slashEntry)
	for _, ent := range due {
		base := ctx.BaseRateFor(ent.Infraction.Type)
		rate := p.cubicRate(ctx.StakeAt, ctx.TotalStakeAt, ent.Infraction.Epoch, base)
		ent.Infraction.Rate = rate
		byValidator[ent.Validator] = append(byValidator[ent.Validator], ent)
	}

	p.mu.Lock()
	for val, ents := range byValidator {
		for _, e := range ents {
			p.finalized[val] = append(p.finalized[val], e.Infraction)
		}
	}
	p.mu.Unlock()

	total := ZeroAmount()
	for val := range byValidator {
		slashedForVal, err := p.processValidator(val, infractionEpoch, eC, ctx)
		if err != nil {
			return total, err
		}
		total = total.Add(slashedForVal)
	}
	return total, nil
}

// processValidator runs the two-pass stake adjustment for a single
// validator affected at this processing epoch.
func (p *SlashPipeline) processValidator(val Address, infractionEpoch, eC Epoch, ctx SlashContext) (Amount, error) {
	stakeAtInfraction := ctx.StakeAt(val, infractionEpoch)

	// Pass A: accumulate total_unbonded across unbonds maturing in
	// (infraction_epoch, e_c), reduced by slashes strictly before
	// infraction_epoch - unbonding_len (already priced into earlier bond
	// accounting).
	cutoff := Epoch(0)
	if uint64(infractionEpoch) > p.params.UnbondingLen {
		cutoff = infractionEpoch - Epoch(p.params.UnbondingLen)
	}
	priorSlashes := p.slashesBefore(val, cutoff)

	totalUnbonded := ZeroAmount()
	if infractionEpoch+1 <= eC-1 {
		for _, rec := range ctx.UnbondsMaturingBetween(val, infractionEpoch+1, eC-1) {
			totalUnbonded = totalUnbonded.Add(SlashedAmount(rec.Amount, p.params.UnbondingLen, priorSlashes))
		}
	}

	// Pass B: iterate pipeline offsets, continuing to accumulate maturing
	// unbonds, applying last_slash - this_slash as the per-offset delta. The
	// delta is computed in signed Change arithmetic, not saturating Amount
	// subtraction: at offset 0 last_slash starts at zero while this_slash is
	// already the full first-cut amount, an increase Amount.CheckedSub cannot
	// represent, and later offsets can just as easily see this_slash fall
	// back below last_slash as more unbonds mature and leave the validator
	// less stake to slash.
	rate := p.latestFinalizedRate(val)
	lastSlash := ZeroAmount()

	for offset := uint64(0); offset <= p.params.PipelineLen; offset++ {
		e := eC + Epoch(offset)
		for _, rec := range ctx.UnbondsMaturingAt(val, e) {
			totalUnbonded = totalUnbonded.Add(SlashedAmount(rec.Amount, p.params.UnbondingLen, priorSlashes))
		}

		remaining := stakeAtInfraction.CheckedSub(totalUnbonded)
		thisSlash := remaining.MulDecimal(rate)

		delta := ChangeFromAmount(lastSlash).Add(ChangeFromAmount(thisSlash).Negate())
		if delta.Sign() != 0 {
			if err := ctx.ApplyValidatorDelta(val, e, delta); err != nil {
				return lastSlash, err
			}
			if err := ctx.ApplyTotalDelta(e, delta); err != nil {
				return lastSlash, err
			}
		}
		lastSlash = thisSlash
	}

	// last_slash now holds this_slash from the final offset, which by
	// telescoping is exactly the net amount removed from the validator's
	// stake across every delta applied above.
	totalSlashed := lastSlash
	if totalSlashed.GreaterThan(stakeAtInfraction) {
		totalSlashed = stakeAtInfraction
	}
	return totalSlashed, nil
}

func (p *SlashPipeline) slashesBefore(val Address, cutoff Epoch) []Slash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Slash
	for _, s := range p.finalized[val] {
		if s.Epoch < cutoff {
			out = append(out, s)
		}
	}
	return out
}

func (p *SlashPipeline) latestFinalizedRate(val Address) Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list := p.finalized[val]
	if len(list) == 0 {
		return DecimalFromInt(0)
	}
	return list[len(list)-1].Rate
}
