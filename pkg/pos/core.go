package pos

import (
	"sync"

	"github.com/valterra/pos/pkg/log"
	"github.com/valterra/pos/pkg/metrics"
	"github.com/valterra/pos/pkg/types"
)

// Core is the full in-memory PoS state machine: validator records, the dual
// ordered sets, the bond ledger, the slash pipeline and the rewards
// accumulator, all keyed off a single current epoch. It is the object a host
// embeds and drives once per tx and once per finalize-block, per §5.
type Core struct {
	mu sync.RWMutex

	params Params
	epoch  Epoch

	sets       *ValidatorSets
	validators map[Address]*Validator
	byConsHash map[types.Hash]Address

	bonds   *BondLedger
	slashes *SlashPipeline
	rewards *RewardsAccumulator

	// totalDeltas tracks total bonded stake across all validators, read by
	// the slash pipeline's total_stake_at callback.
	totalDeltas *EpochedDelta[Change]

	token            TokenFacade
	stakingToken     Address
	posAccount       Address
	slashPoolAccount Address

	log     *log.Logger
	metrics *metrics.Registry
}

// TokenFacade is the external token interface (§6) the core consumes for
// every balance-moving operation; a host wires a real ledger behind it.
type TokenFacade interface {
	ReadBalance(tok, addr Address) (Amount, error)
	Transfer(tok, src, dst Address, amt Amount) error
	Credit(tok, dst Address, amt Amount) error
}

// NewCore constructs an empty Core at epoch 0. Real use starts it via
// InitGenesis instead of bonding directly against an empty state.
func NewCore(params Params, token TokenFacade, stakingToken, posAccount, slashPoolAccount Address) (*Core, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Core{
		params:           params,
		sets:             NewValidatorSets(params),
		validators:       make(map[Address]*Validator),
		byConsHash:       make(map[types.Hash]Address),
		bonds:            NewBondLedger(params),
		slashes:          NewSlashPipeline(params),
		rewards:          NewRewardsAccumulator(),
		totalDeltas:      NewEpochedDelta[Change](params.PipelineLen),
		token:            token,
		stakingToken:     stakingToken,
		posAccount:       posAccount,
		slashPoolAccount: slashPoolAccount,
		log:              log.Default().Module("pos"),
		metrics:          metrics.NewRegistry(),
	}, nil
}

// Metrics exposes the core's metric registry for a host to export. Updated
// on every bond, unbond, slash, and epoch transition (see api.go, epoch.go).
func (c *Core) Metrics() *metrics.Registry {
	return c.metrics
}

// CurrentEpoch returns e_c.
func (c *Core) CurrentEpoch() Epoch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Pipeline returns e_c + pipeline_len, the epoch at which bonds/unbonds and
// validator-state writes submitted now take effect.
func (c *Core) Pipeline() Epoch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch + Epoch(c.params.PipelineLen)
}

func (c *Core) validator(addr Address) (*Validator, bool) {
	v, ok := c.validators[addr]
	return v, ok
}

// StakeAt implements SlashContext: total bonded stake of a validator at e.
func (c *Core) StakeAt(val Address, e Epoch) Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.validator(val)
	if !ok {
		return ZeroAmount()
	}
	return v.StakeAt(e)
}

// TotalStakeAt implements SlashContext: total bonded stake across every
// validator at e.
func (c *Core) TotalStakeAt(e Epoch) Amount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalDeltas.Get(e).ToAmount()
}

// UnbondsMaturingAt implements SlashContext.
func (c *Core) UnbondsMaturingAt(val Address, e Epoch) []UnbondRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.validator(val)
	if !ok {
		return nil
	}
	return v.UnbondRecordsAt(e)
}

// UnbondsMaturingBetween implements SlashContext.
func (c *Core) UnbondsMaturingBetween(val Address, fromInclusive, toInclusive Epoch) []UnbondRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.validator(val)
	if !ok {
		return nil
	}
	var out []UnbondRecord
	for e := fromInclusive; e <= toInclusive; e++ {
		out = append(out, v.UnbondRecordsAt(e)...)
	}
	return out
}

// ApplyValidatorDelta implements SlashContext: writes a (typically negative)
// delta to a validator's stake at epoch e, and mirrors it into the set the
// validator currently occupies so voting power stays consistent.
func (c *Core) ApplyValidatorDelta(val Address, e Epoch, delta Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.validator(val)
	if !ok {
		return ErrNotAValidator
	}
	if err := v.AddDelta(delta, e, 0); err != nil {
		return err
	}
	if v.StateAt(e) != StateJailed {
		newStake := v.StakeAt(e)
		c.sets.ChangeStake(e, val, newStake)
	}
	return nil
}

// ApplyTotalDelta implements SlashContext: adjusts the system-wide bonded
// stake total.
func (c *Core) ApplyTotalDelta(e Epoch, delta Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalDeltas.Add(delta, e, 0)
}

// BaseRateFor implements SlashContext.
func (c *Core) BaseRateFor(typ SlashType) Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.params.SlashRateByType[typ]; ok {
		return r
	}
	return DecimalFromInt(0)
}
