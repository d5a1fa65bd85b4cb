package pos

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Amount is an unsigned stake quantity. It is backed by uint256 so the core
// never silently wraps on the arithmetic 64-bit registers perform; overflow
// there is exactly the VotingPowerOverflow condition the spec calls fatal.
type Amount struct {
	v *uint256.Int
}

// ZeroAmount returns the additive identity.
func ZeroAmount() Amount { return Amount{v: uint256.NewInt(0)} }

// AmountFromUint64 constructs an Amount from a uint64 value.
func AmountFromUint64(v uint64) Amount { return Amount{v: uint256.NewInt(v)} }

// Uint64 returns the amount truncated to uint64: a value above 2^64-1 keeps
// only its low 64 bits and no error is reported. votingPower (epoch.go)
// calls it without an overflow check.
func (a Amount) Uint64() uint64 {
	if a.v == nil {
		return 0
	}
	return a.v.Uint64()
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(uint256.Int).Add(a.orZero(), b.orZero())}
}

// CheckedSub returns a - b, saturating at zero rather than wrapping. This is
// the "checked_sub at the API boundary" arithmetic the token model mandates.
func (a Amount) CheckedSub(b Amount) Amount {
	av, bv := a.orZero(), b.orZero()
	if av.Lt(bv) {
		return ZeroAmount()
	}
	return Amount{v: new(uint256.Int).Sub(av, bv)}
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.orZero().IsZero() }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.orZero().Lt(b.orZero()) }

// GreaterThan reports whether a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.orZero().Gt(b.orZero()) }

func (a Amount) orZero() *uint256.Int {
	if a.v == nil {
		return uint256.NewInt(0)
	}
	return a.v
}

// MulDecimal multiplies the amount by a fixed-point rate, truncating any
// fractional token (half-even rounding happens inside Decimal itself; the
// truncation here only drops the sub-unit remainder of the token, which has
// no fractional representation).
func (a Amount) MulDecimal(d Decimal) Amount {
	product := decimal.NewFromBigInt(a.orZero().ToBig(), 0).Mul(d.inner)
	truncated := product.Truncate(0)
	bi := truncated.BigInt()
	if bi.Sign() < 0 {
		bi = big.NewInt(0)
	}
	u, overflow := uint256.FromBig(bi)
	if overflow {
		u = uint256.NewInt(0).SetAllOne()
	}
	return Amount{v: u}
}

// Change is a signed delta applied to a validator's or the system's total
// stake. It is backed by math/big so arbitrarily large negative deltas
// (large unbonds) never wrap.
type Change struct {
	v *big.Int
}

// ZeroChange returns the additive identity.
func ZeroChange() Change { return Change{v: big.NewInt(0)} }

// ChangeFromAmount builds a non-negative Change from an Amount.
func ChangeFromAmount(a Amount) Change {
	return Change{v: a.orZero().ToBig()}
}

// Negate returns -c.
func (c Change) Negate() Change {
	return Change{v: new(big.Int).Neg(c.orZero())}
}

// Add returns c + other.
func (c Change) Add(other Change) Change {
	return Change{v: new(big.Int).Add(c.orZero(), other.orZero())}
}

// Sign returns -1, 0 or 1.
func (c Change) Sign() int { return c.orZero().Sign() }

func (c Change) orZero() *big.Int {
	if c.v == nil {
		return big.NewInt(0)
	}
	return c.v
}

// ToAmount converts a non-negative Change to an Amount, clamping negative
// values to zero.
func (c Change) ToAmount() Amount {
	bi := c.orZero()
	if bi.Sign() < 0 {
		return ZeroAmount()
	}
	u, overflow := uint256.FromBig(bi)
	if overflow {
		u = uint256.NewInt(0).SetAllOne()
	}
	return Amount{v: u}
}

// DecimalRatio returns num/den as a Decimal, rounded half-even to 28
// fractional digits. den == 0 returns zero rather than dividing.
func DecimalRatio(num, den Amount) Decimal {
	if den.IsZero() {
		return DecimalFromInt(0)
	}
	n := decimal.NewFromBigInt(num.orZero().ToBig(), 0)
	d := decimal.NewFromBigInt(den.orZero().ToBig(), 0)
	return Decimal{inner: n.DivRound(d, decimalPrecision+guardDigits).RoundBank(decimalPrecision)}
}

// Decimal is a 28-digit fixed-point rate used for commission rates and slash
// rates. It wraps shopspring/decimal and always rounds half-even, matching
// the portability requirement in the arithmetic component.
type Decimal struct {
	inner decimal.Decimal
}

// decimalPrecision is the fractional-digit count mandated by the spec.
const decimalPrecision = 28

// guardDigits is the extra precision DivRound computes before the final
// RoundBank: shopspring/decimal's DivRound itself rounds half-away-from-zero,
// so the true half-even tiebreak only happens at the trailing RoundBank call.
const guardDigits = 10

// DecimalFromInt builds a Decimal from a whole number.
func DecimalFromInt(v int64) Decimal {
	return Decimal{inner: decimal.NewFromInt(v)}
}

// DecimalFromFloat builds a Decimal from a float64 literal (genesis/test
// convenience only; production rates should come from DecimalFromString).
func DecimalFromFloat(v float64) Decimal {
	return Decimal{inner: decimal.NewFromFloat(v)}
}

// DecimalFromString parses a decimal literal such as "0.05".
func DecimalFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, err
	}
	return Decimal{inner: d}, nil
}

// Add returns d + other, rounded half-even to 28 fractional digits.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{inner: d.inner.Add(other.inner).RoundBank(decimalPrecision)}
}

// Sub returns d - other, rounded half-even to 28 fractional digits.
func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{inner: d.inner.Sub(other.inner).RoundBank(decimalPrecision)}
}

// Mul returns d * other, rounded half-even to 28 fractional digits.
func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{inner: d.inner.Mul(other.inner).RoundBank(decimalPrecision)}
}

// Cmp compares d to other: -1, 0, or 1.
func (d Decimal) Cmp(other Decimal) int { return d.inner.Cmp(other.inner) }

// Min returns the smaller of d and a ceiling value, or d itself if already
// smaller. Used to cap slash rates at 1.
func (d Decimal) Min(ceil Decimal) Decimal {
	if d.Cmp(ceil) > 0 {
		return ceil
	}
	return d
}

// Max returns the larger of d and a floor value.
func (d Decimal) Max(floor Decimal) Decimal {
	if d.Cmp(floor) < 0 {
		return floor
	}
	return d
}

// IsNegative reports whether the rate is below zero.
func (d Decimal) IsNegative() bool { return d.inner.IsNegative() }

// String renders the decimal in canonical form.
func (d Decimal) String() string { return d.inner.String() }
