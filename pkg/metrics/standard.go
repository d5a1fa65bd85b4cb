package metrics

// Pre-defined metrics for the PoS core. All metrics live in DefaultRegistry
// so they are globally accessible without passing a registry around.

var (
	// ---- Epoch metrics ----

	// CurrentEpoch tracks the chain's current epoch.
	CurrentEpoch = DefaultRegistry.Gauge("pos.current_epoch")
	// EpochTransitionTime records epoch-transition processing duration in milliseconds.
	EpochTransitionTime = DefaultRegistry.Histogram("pos.epoch_transition_ms")

	// ---- Validator set metrics ----

	// ConsensusSetSize tracks the number of validators in the consensus set.
	ConsensusSetSize = DefaultRegistry.Gauge("pos.consensus_set_size")
	// BelowCapacitySetSize tracks the number of validators below capacity.
	BelowCapacitySetSize = DefaultRegistry.Gauge("pos.below_capacity_set_size")
	// ValidatorsJailed counts validators jailed due to a slash.
	ValidatorsJailed = DefaultRegistry.Counter("pos.validators_jailed")
	// ValidatorsUnjailed counts successful unjail operations.
	ValidatorsUnjailed = DefaultRegistry.Counter("pos.validators_unjailed")

	// ---- Bonding metrics ----

	// BondsProcessed counts accepted bond transactions.
	BondsProcessed = DefaultRegistry.Counter("pos.bonds_processed")
	// UnbondsProcessed counts accepted unbond transactions.
	UnbondsProcessed = DefaultRegistry.Counter("pos.unbonds_processed")
	// WithdrawalsProcessed counts accepted withdraw transactions.
	WithdrawalsProcessed = DefaultRegistry.Counter("pos.withdrawals_processed")
	// TotalBondedStake tracks the sum of all validator deltas at the current epoch.
	TotalBondedStake = DefaultRegistry.Gauge("pos.total_bonded_stake")

	// ---- Slashing metrics ----

	// SlashesEnqueued counts evidence-triggered slash enqueues.
	SlashesEnqueued = DefaultRegistry.Counter("pos.slashes_enqueued")
	// SlashesFinalized counts slashes that completed cubic-rate processing.
	SlashesFinalized = DefaultRegistry.Counter("pos.slashes_finalized")
	// TokensSlashed counts the cumulative amount transferred to the slash pool.
	TokensSlashed = DefaultRegistry.Counter("pos.tokens_slashed")

	// ---- Rewards metrics ----

	// RewardsLoggedPerBlock records the number of validators credited per block.
	RewardsLoggedPerBlock = DefaultRegistry.Histogram("pos.rewards_logged_per_block")
)
