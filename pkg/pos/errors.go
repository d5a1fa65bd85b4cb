package pos

import "errors"

// Sentinel errors for the PoS core's taxonomy. Every operation documented in
// the public API (api.go) returns one of these, possibly wrapped in a
// CodedError so a host dispatching a rejected tx can surface a stable code
// without string-matching messages.
var (
	ErrNotAValidator             = errors.New("pos: address is not a validator")
	ErrSourceMustNotBeAValidator = errors.New("pos: bond source is itself a validator")
	ErrValidatorInactive         = errors.New("pos: validator is inactive")
	ErrValidatorJailed           = errors.New("pos: validator is jailed")
	ErrValidatorFrozen           = errors.New("pos: validator is frozen by an unprocessed slash")
	ErrNoBondFound               = errors.New("pos: no bond found for source and validator")
	ErrUnbondAmountExceedsBond   = errors.New("pos: unbond amount exceeds bonded amount")
	ErrNoUnbondFound             = errors.New("pos: no unbond handle found")
	ErrNoWithdrawableUnbond      = errors.New("pos: no unbond has matured for withdrawal")
	ErrCommissionRateNegative    = errors.New("pos: commission rate must be non-negative")
	ErrCommissionRateChangeTooLarge = errors.New("pos: commission rate change exceeds max_change_per_epoch")
	ErrMaxCommissionNotSet       = errors.New("pos: max commission change was never configured")
	ErrCommissionAboveCeiling    = errors.New("pos: commission rate exceeds the genesis ceiling")
	ErrNotJailed                 = errors.New("pos: validator is not jailed")
	ErrNotEligibleForUnjail      = errors.New("pos: validator still within the frozen window")
	ErrVotingPowerOverflow       = errors.New("pos: voting power computation overflowed")
	ErrStorageFailure            = errors.New("pos: storage facade failure")
	ErrInvalidOffset             = errors.New("pos: epoched write offset exceeds max_offset")
	ErrInvalidParams             = errors.New("pos: invalid parameters")
	ErrDuplicateConsensusKeyHash = errors.New("pos: consensus key hash already maps to a validator")
)

// fatalErrors are the error kinds the spec marks as fatal: the host must
// abort the whole block rather than merely reject the offending tx.
var fatalErrors = map[error]bool{
	ErrStorageFailure:      true,
	ErrVotingPowerOverflow: true,
}

// IsFatal reports whether err (or its wrapped CodedError) must abort block
// execution rather than just reject the current operation.
func IsFatal(err error) bool {
	var ce *CodedError
	if errors.As(err, &ce) {
		err = ce.Unwrap()
	}
	return fatalErrors[err]
}

// CodedError wraps a sentinel error with a stable string code, so a host can
// surface a rejected tx's reason without string-matching the error message.
type CodedError struct {
	Code string
	Err  error
}

// NewCodedError wraps err with the given stable code.
func NewCodedError(code string, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

func (e *CodedError) Error() string { return e.Code + ": " + e.Err.Error() }

func (e *CodedError) Unwrap() error { return e.Err }

// codes maps each sentinel to its stable wire code.
var codes = map[error]string{
	ErrNotAValidator:                "NOT_A_VALIDATOR",
	ErrSourceMustNotBeAValidator:    "SOURCE_MUST_NOT_BE_A_VALIDATOR",
	ErrValidatorInactive:            "VALIDATOR_INACTIVE",
	ErrValidatorJailed:              "VALIDATOR_JAILED",
	ErrValidatorFrozen:              "VALIDATOR_FROZEN",
	ErrNoBondFound:                  "NO_BOND_FOUND",
	ErrUnbondAmountExceedsBond:      "UNBOND_AMOUNT_EXCEEDS_BOND",
	ErrNoUnbondFound:                "NO_UNBOND_FOUND",
	ErrNoWithdrawableUnbond:         "NO_WITHDRAWABLE_UNBOND",
	ErrCommissionRateNegative:       "COMMISSION_RATE_NEGATIVE",
	ErrCommissionRateChangeTooLarge: "COMMISSION_RATE_CHANGE_TOO_LARGE",
	ErrMaxCommissionNotSet:          "MAX_COMMISSION_NOT_SET",
	ErrCommissionAboveCeiling:       "COMMISSION_ABOVE_CEILING",
	ErrNotJailed:                    "NOT_JAILED",
	ErrNotEligibleForUnjail:         "NOT_ELIGIBLE_FOR_UNJAIL",
	ErrVotingPowerOverflow:          "VOTING_POWER_OVERFLOW",
	ErrStorageFailure:               "STORAGE_FAILURE",
	ErrInvalidOffset:                "INVALID_OFFSET",
	ErrInvalidParams:                "INVALID_PARAMS",
	ErrDuplicateConsensusKeyHash:    "DUPLICATE_CONSENSUS_KEY_HASH",
}

// WithCode wraps err in a CodedError using the taxonomy's stable code. If err
// is not a known sentinel it is wrapped with code "UNKNOWN".
func WithCode(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := codes[err]; ok {
		return NewCodedError(code, err)
	}
	return NewCodedError("UNKNOWN", err)
}
