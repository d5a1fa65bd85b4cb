package pos

// Bond is the epoched-delta ledger of stake a single delegator has placed
// behind a single validator. Deltas are keyed by the bond's "start epoch":
// unbonding consumes the newest chunks first and decrements their stored
// delta in place, per §4.5.
type Bond struct {
	Source    Address
	Validator Address
	deltas    *EpochedDelta[Change]
}

// NewBond creates an empty bond ledger for (src, val).
func NewBond(src, val Address, pipelineLen uint64) *Bond {
	return &Bond{Source: src, Validator: val, deltas: NewEpochedDelta[Change](pipelineLen)}
}

// ActiveAt returns the sum of all deltas up to and including epoch e: the
// active bonded amount at e.
func (b *Bond) ActiveAt(e Epoch) Amount {
	return b.deltas.Get(e).ToAmount()
}

// appendDelta records a signed delta at the bond's start epoch (eC+offset).
func (b *Bond) appendDelta(eC Epoch, offset uint64, delta Change) error {
	return b.deltas.Add(delta, eC, offset)
}

// chunksDescending returns every start epoch with a stored delta, in
// descending order, for the "consume newest-first" unbond walk; chunks
// already reduced to zero are included.
func (b *Bond) chunksDescending() []Epoch {
	epochs := b.deltas.Epochs()
	out := make([]Epoch, len(epochs))
	copy(out, epochs)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// BondLedger owns every Bond and Unbond-maturity lookup a keeper needs; it
// is the in-memory backing a host would otherwise persist under
// pos/bond/<src>/<val>/<start_epoch> and pos/unbond/<src>/<val>/<withdraw_epoch>/<start_epoch>.
type BondLedger struct {
	params Params
	bonds  map[bondKey]*Bond
}

type bondKey struct {
	src Address
	val Address
}

// NewBondLedger creates an empty ledger.
func NewBondLedger(params Params) *BondLedger {
	return &BondLedger{params: params, bonds: make(map[bondKey]*Bond)}
}

func (l *BondLedger) get(src, val Address) *Bond {
	k := bondKey{src, val}
	b, ok := l.bonds[k]
	if !ok {
		b = NewBond(src, val, l.params.PipelineLen)
		l.bonds[k] = b
	}
	return b
}

// Lookup returns the bond for (src, val) without creating it, and whether
// one exists.
func (l *BondLedger) Lookup(src, val Address) (*Bond, bool) {
	b, ok := l.bonds[bondKey{src, val}]
	return b, ok
}

// Bond appends a positive delta at e_c+pipeline to the (src,val) bond.
func (l *BondLedger) Bond(src, val Address, amount Amount, eC Epoch) error {
	b := l.get(src, val)
	return b.appendDelta(eC, l.params.PipelineLen, ChangeFromAmount(amount))
}

// unbondConsumption is a single chunk consumed from a bond's deltas while
// walking newest-first to satisfy an unbond request.
type unbondConsumption struct {
	StartEpoch Epoch
	Amount     Amount
}

// Unbond walks the bond's deltas newest-first, consuming chunks until
// amount is covered or the bond is exhausted, decrementing each consumed
// chunk's stored delta and returning the consumption trail (used by the
// public API to record unbond records and compute the slashed-adjusted
// realized reduction).
func (l *BondLedger) Unbond(src, val Address, amount Amount, eC Epoch) ([]unbondConsumption, error) {
	b, ok := l.Lookup(src, val)
	if !ok {
		return nil, ErrNoBondFound
	}
	remaining := amount
	var consumed []unbondConsumption
	for _, startEpoch := range b.chunksDescending() {
		if remaining.IsZero() {
			break
		}
		delta, ok := b.deltas.DeltaAt(startEpoch)
		if !ok {
			continue
		}
		avail := delta.ToAmount()
		if avail.IsZero() {
			continue
		}
		take := avail
		if remaining.LessThan(avail) {
			take = remaining
		}
		b.deltas.SetDeltaAt(startEpoch, delta.Add(ChangeFromAmount(take).Negate()))
		consumed = append(consumed, unbondConsumption{StartEpoch: startEpoch, Amount: take})
		remaining = remaining.CheckedSub(take)
	}
	if !remaining.IsZero() {
		return nil, ErrUnbondAmountExceedsBond
	}
	return consumed, nil
}
