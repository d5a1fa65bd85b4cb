// Package pos implements the proof-of-stake state machine of a
// Tendermint-style chain: validator set maintenance, bond/unbond/withdraw
// processing across epoch boundaries, cubic-style slashing, reward
// accumulation, and the Tendermint validator-update diff.
package pos

import "github.com/valterra/pos/pkg/types"

// Epoch is a monotonically increasing epoch number. Current epoch advances
// only at block-finalize boundaries detected by the epoch transition driver.
type Epoch uint64

// Address is the account identifier for delegators and validators.
type Address = types.Address

// Params holds the immutable-after-genesis parameters of the PoS state
// machine.
type Params struct {
	// PipelineLen is the number of epochs ahead at which bond/unbond/
	// validator-state changes take effect.
	PipelineLen uint64
	// UnbondingLen is the delay, past the pipeline offset, before an unbond
	// becomes withdrawable; it is also the slash-deferral window.
	UnbondingLen uint64
	// MaxConsensusValidators (K) is the capacity of the Consensus set.
	MaxConsensusValidators uint64
	// CubicSlashingWindowLength (W) is the half-width, in epochs, of the
	// window summed over when computing the cubic slash rate.
	CubicSlashingWindowLength uint64
	// VotesPerToken scales bonded stake into Tendermint voting power.
	VotesPerToken Decimal
	// SlashRateByType gives each infraction's minimum slash rate.
	SlashRateByType map[SlashType]Decimal
	// BlockProposerReward and BlockVoteReward are the reward coefficients
	// consumed by the rewards accumulator (C7).
	BlockProposerReward Decimal
	BlockVoteReward     Decimal
}

// DefaultParams returns a Params value with the commonly used test/genesis
// defaults: pipeline 2, unbonding 4, 100 consensus slots, a one-epoch cubic
// window, and a votes-per-token ratio of 1.
func DefaultParams() Params {
	return Params{
		PipelineLen:               2,
		UnbondingLen:              4,
		MaxConsensusValidators:    100,
		CubicSlashingWindowLength: 1,
		VotesPerToken:             DecimalFromInt(1),
		SlashRateByType: map[SlashType]Decimal{
			SlashDuplicateVote:      DecimalFromFloat(0.05),
			SlashLightClientAttack:  DecimalFromFloat(0.05),
		},
		BlockProposerReward: DecimalFromFloat(0.05),
		BlockVoteReward:     DecimalFromFloat(0.05),
	}
}

// Validate enforces the invariants listed in the data model: unbonding_len
// must exceed pipeline_len, and the consensus capacity must be positive.
func (p Params) Validate() error {
	if p.UnbondingLen <= p.PipelineLen {
		return ErrInvalidParams
	}
	if p.MaxConsensusValidators == 0 {
		return ErrInvalidParams
	}
	return nil
}

// SlashType is a closed tagged union of infraction kinds. The switch over it
// in the slash pipeline must remain exhaustive.
type SlashType uint8

const (
	SlashDuplicateVote SlashType = iota
	SlashLightClientAttack
)

// String returns a human-readable name for the slash type.
func (t SlashType) String() string {
	switch t {
	case SlashDuplicateVote:
		return "duplicate_vote"
	case SlashLightClientAttack:
		return "light_client_attack"
	default:
		return "unknown"
	}
}

// ValidatorState is a closed tagged union of validator lifecycle states.
// Jailed is a state, never an orthogonal boolean flag layered on top of one
// of the others — the invariants in §4.3/§4.4 depend on that.
type ValidatorState uint8

const (
	StateBelowCapacity ValidatorState = iota
	StateConsensus
	StateJailed
	// StateInactive is reserved for forward compatibility. Implementations
	// must accept reads of it but must never produce it.
	StateInactive
)

// String returns a human-readable name for the validator state.
func (s ValidatorState) String() string {
	switch s {
	case StateBelowCapacity:
		return "below_capacity"
	case StateConsensus:
		return "consensus"
	case StateJailed:
		return "jailed"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}
