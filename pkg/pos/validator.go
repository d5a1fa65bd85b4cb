package pos

import (
	"sync"

	"github.com/valterra/pos/pkg/crypto"
	"github.com/valterra/pos/pkg/types"
)

// ValidatorConfig configures validator record defaults at genesis/creation.
type ValidatorConfig struct {
	// MaxCommissionChangePerEpoch bounds how much a commission rate may move
	// in a single change_commission_rate call.
	MaxCommissionChangePerEpoch Decimal
	// MaxCommissionRate is the ceiling fixed at genesis for a validator.
	MaxCommissionRate Decimal
}

// DefaultValidatorConfig returns permissive defaults: a 1%-per-epoch change
// cap and a 100% ceiling.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxCommissionChangePerEpoch: DecimalFromFloat(0.01),
		MaxCommissionRate:           DecimalFromInt(1),
	}
}

// Validator is a single validator's record: identity, commission, lifecycle
// state, and bonded-stake deltas, all epoched at the pipeline offset except
// LastSlashEpoch, which is a plain scalar.
type Validator struct {
	mu sync.RWMutex

	Address       Address
	ConsensusKey  []byte
	ConsensusHash types.Hash

	config ValidatorConfig

	commission *EpochedPlain[Decimal]
	state      *EpochedPlain[ValidatorState]
	deltas     *EpochedDelta[Change]

	lastSlashEpoch    Epoch
	hasLastSlashEpoch bool

	// unbonds holds, per withdraw epoch, the unbond chunks maturing there.
	// Populated by Core.Unbond and drained by Core.Withdraw (api.go).
	unbonds map[Epoch][]UnbondRecord
}

// UnbondRecord is a single {amount, start_epoch} entry recording an unbond
// that becomes withdrawable at its owning withdraw epoch.
type UnbondRecord struct {
	StartEpoch Epoch
	Amount     Amount
}

// NewValidator constructs a Validator record effective from genesis/creation
// epoch eC, in BelowCapacity state with zero stake, per the become_validator
// lifecycle entry point.
func NewValidator(addr Address, consensusKey []byte, commission Decimal, config ValidatorConfig, eC Epoch, pipelineLen uint64) *Validator {
	v := &Validator{
		Address:       addr,
		ConsensusKey:  append([]byte(nil), consensusKey...),
		ConsensusHash: crypto.Keccak256Hash(consensusKey),
		config:        config,
		commission:    NewEpochedPlain[Decimal](pipelineLen),
		state:         NewEpochedPlain[ValidatorState](pipelineLen),
		deltas:        NewEpochedDelta[Change](pipelineLen),
		unbonds:       make(map[Epoch][]UnbondRecord),
	}
	v.commission.Init(commission, eC)
	v.state.Init(StateBelowCapacity, eC)
	return v
}

// StateAt returns the validator's lifecycle state at epoch e.
func (v *Validator) StateAt(e Epoch) ValidatorState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s, ok := v.state.Get(e)
	if !ok {
		return StateInactive
	}
	return s
}

// SetStateAt writes the validator's state at eC+offset.
func (v *Validator) SetStateAt(s ValidatorState, eC Epoch, offset uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.Set(s, eC, offset)
}

// StakeAt returns the validator's bonded stake (summed deltas) at epoch e.
func (v *Validator) StakeAt(e Epoch) Amount {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.deltas.Get(e).ToAmount()
}

// AddDelta applies a signed stake delta at eC+offset.
func (v *Validator) AddDelta(delta Change, eC Epoch, offset uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deltas.Add(delta, eC, offset)
}

// CommissionAt returns the commission rate effective at epoch e.
func (v *Validator) CommissionAt(e Epoch) Decimal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	d, ok := v.commission.Get(e)
	if !ok {
		return DecimalFromInt(0)
	}
	return d
}

// LastSlashEpoch returns the most recent infraction epoch seen by this
// validator, and whether it has ever been slashed.
func (v *Validator) LastSlashEpoch() (Epoch, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastSlashEpoch, v.hasLastSlashEpoch
}

// RecordInfraction updates last_slash_epoch to max(current, ei).
func (v *Validator) RecordInfraction(ei Epoch) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasLastSlashEpoch || ei > v.lastSlashEpoch {
		v.lastSlashEpoch = ei
		v.hasLastSlashEpoch = true
	}
}

// IsFrozen reports whether the validator is frozen at eC: it has an
// unprocessed slash whose deferral window has not yet closed.
func (v *Validator) IsFrozen(eC Epoch, unbondingLen uint64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.hasLastSlashEpoch {
		return false
	}
	return v.lastSlashEpoch+Epoch(unbondingLen)+1 > eC
}

// AddUnbondRecord records an unbond chunk maturing at withdrawEpoch.
func (v *Validator) AddUnbondRecord(withdrawEpoch Epoch, rec UnbondRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unbonds[withdrawEpoch] = append(v.unbonds[withdrawEpoch], rec)
}

// UnbondRecordsAt returns (and does not remove) the unbond chunks maturing
// at exactly withdrawEpoch.
func (v *Validator) UnbondRecordsAt(withdrawEpoch Epoch) []UnbondRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]UnbondRecord(nil), v.unbonds[withdrawEpoch]...)
}

// ClearUnbondRecordsAt removes all unbond chunks maturing at withdrawEpoch,
// called once withdraw() has transferred them out.
func (v *Validator) ClearUnbondRecordsAt(withdrawEpoch Epoch) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.unbonds, withdrawEpoch)
}

// AllUnbondWithdrawEpochs returns every withdraw epoch with at least one
// pending unbond record.
func (v *Validator) AllUnbondWithdrawEpochs() []Epoch {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Epoch, 0, len(v.unbonds))
	for e := range v.unbonds {
		out = append(out, e)
	}
	sortEpochs(out)
	return out
}

// MaxCommissionChangePerEpoch returns the validator's configured rate-change
// cap.
func (v *Validator) MaxCommissionChangePerEpoch() Decimal { return v.config.MaxCommissionChangePerEpoch }

// MaxCommissionRate returns the validator's genesis-fixed ceiling.
func (v *Validator) MaxCommissionRate() Decimal { return v.config.MaxCommissionRate }
