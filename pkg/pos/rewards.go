package pos

import (
	"sync"
)

// RewardCoefficients are the three per-block reward weights derived from
// params and the signing/total stake ratio, per §4.7.
type RewardCoefficients struct {
	ProposerCoeff  Decimal
	SignerCoeff    Decimal
	ActiveValCoeff Decimal
}

// RewardsCalculator derives block reward coefficients from the configured
// proposer/vote reward weights and the block's signing participation.
type RewardsCalculator struct {
	ProposerReward   Decimal
	VoteReward       Decimal
	SigningStake     Amount
	TotalStake       Amount
}

// minSigningFraction is the byzantine-fault-tolerance quorum (2/3) below
// which a block could not have been finalized; get_reward_coeffs refuses to
// derive coefficients when signing stake falls short of it, since that
// indicates malformed vote input rather than a real block.
var minSigningFraction = mustDecimal("0.6666666666666666666666666667")

func mustDecimal(s string) Decimal {
	d, err := DecimalFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// GetRewardCoeffs computes {proposer, signer, active_val} coefficients such
// that they sum to exactly one: the proposer gets
// ProposerReward*signing_fraction, the signers share
// VoteReward*signing_fraction, and the remainder accrues to every consensus
// validator regardless of whether it signed.
func (c RewardsCalculator) GetRewardCoeffs() (RewardCoefficients, error) {
	if c.TotalStake.IsZero() {
		return RewardCoefficients{}, ErrInvalidParams
	}
	signingFrac := DecimalRatio(c.SigningStake, c.TotalStake)
	if signingFrac.Cmp(minSigningFraction) < 0 {
		return RewardCoefficients{}, ErrInvalidParams
	}

	proposerCoeff := c.ProposerReward.Mul(signingFrac)
	signerCoeff := c.VoteReward.Mul(signingFrac)
	activeValCoeff := DecimalFromInt(1).Sub(proposerCoeff).Sub(signerCoeff)

	return RewardCoefficients{
		ProposerCoeff:  proposerCoeff,
		SignerCoeff:    signerCoeff,
		ActiveValCoeff: activeValCoeff,
	}, nil
}

// VoteInfo is a single validator's participation record for the block being
// finalized, as handed to LogBlockRewards by the host.
type VoteInfo struct {
	Validator      Address
	VotingPower    Amount
	SignedLastBlock bool
}

// RewardsAccumulator tallies each consensus validator's running fractional
// share of block rewards across an epoch; an external inflation process (out
// of scope here) drains and mints against it at epoch boundaries.
type RewardsAccumulator struct {
	mu     sync.RWMutex
	values map[Address]Decimal
}

// NewRewardsAccumulator creates an empty accumulator.
func NewRewardsAccumulator() *RewardsAccumulator {
	return &RewardsAccumulator{values: make(map[Address]Decimal)}
}

// Get returns the accumulated fractional reward for a validator.
func (r *RewardsAccumulator) Get(val Address) Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.values[val]
	if !ok {
		return DecimalFromInt(0)
	}
	return d
}

// Drain returns the full accumulator contents and resets it to empty,
// called by the external inflation process at epoch end.
func (r *RewardsAccumulator) Drain() map[Address]Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.values
	r.values = make(map[Address]Decimal)
	return out
}

func (r *RewardsAccumulator) add(val Address, frac Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[val] = r.values[val].Add(frac)
}

// LogBlockRewards implements §4.7: given the proposer and the full set of
// votes for the block just finalized, tallies consensus stake and signing
// stake (counting only validators that are Consensus at epoch), derives
// reward coefficients, and increments every consensus validator's
// accumulator entry by its proposer/signer/membership share.
func LogBlockRewards(r *RewardsAccumulator, params Params, epoch Epoch, proposer Address, votes []VoteInfo, consensusStakes map[Address]Amount, stateAt func(Address, Epoch) ValidatorState) error {
	totalConsensusStake := ZeroAmount()
	for _, s := range consensusStakes {
		totalConsensusStake = totalConsensusStake.Add(s)
	}

	signers := make(map[Address]bool)
	totalSigningStake := ZeroAmount()
	for _, v := range votes {
		if !v.SignedLastBlock || v.VotingPower.IsZero() {
			continue
		}
		if stateAt(v.Validator, epoch) != StateConsensus {
			continue
		}
		signers[v.Validator] = true
		totalSigningStake = totalSigningStake.Add(v.VotingPower)
	}

	calc := RewardsCalculator{
		ProposerReward: params.BlockProposerReward,
		VoteReward:     params.BlockVoteReward,
		SigningStake:   totalSigningStake,
		TotalStake:     totalConsensusStake,
	}
	coeffs, err := calc.GetRewardCoeffs()
	if err != nil {
		return err
	}

	for addr, stake := range consensusStakes {
		if stake.IsZero() {
			continue
		}
		frac := DecimalFromInt(0)
		if addr == proposer {
			frac = frac.Add(coeffs.ProposerCoeff)
		}
		if signers[addr] {
			signingFracOfSigners := DecimalRatio(stake, totalSigningStake)
			frac = frac.Add(coeffs.SignerCoeff.Mul(signingFracOfSigners))
		}
		frac = frac.Add(coeffs.ActiveValCoeff.Mul(DecimalRatio(stake, totalConsensusStake)))
		r.add(addr, frac)
	}
	return nil
}
