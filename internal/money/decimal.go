// Package money provides the fixed-precision decimal type used for every
// price, size, fee, and balance in the engine. Float64 is never used for
// monetary values — compounding rounding error across a multi-leg cycle
// would silently eat the profit margin the scanner is trying to detect.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal wraps shopspring/decimal.Decimal. It is a value type and is
// safe to copy and compare with Equal.
type Decimal = decimal.Decimal

// Zero is the additive identity.
var Zero = decimal.Zero

// One is the multiplicative identity.
var One = decimal.New(1, 0)

// MustParse parses s as a Decimal, panicking on malformed input. Intended
// for constants and config defaults, never for untrusted input.
func MustParse(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("money: invalid decimal literal %q: %v", s, err))
	}
	return d
}

// Parse parses s as a Decimal.
func Parse(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// FromFloat converts a float64 into a Decimal. Used only at the boundary
// where exchange adapters hand us JSON numbers; never used internally
// for arithmetic on prices already represented as Decimal.
func FromFloat(f float64) Decimal {
	return decimal.NewFromFloat(f)
}

// divisionPrecision matches decimal.DivisionPrecision, the default
// number of decimal places Div resolves a non-terminating quotient to.
const divisionPrecision = 16

// DivCeil divides a by b and rounds the result up (away from zero) at
// divisionPrecision, so a non-terminating quotient never understates the
// true ratio. Used wherever a caller must guarantee b.Mul(DivCeil(a, b))
// is never less than a, e.g. coercing a size up to meet a minimum
// notional value.
func DivCeil(a, b Decimal) Decimal {
	q := a.DivRound(b, divisionPrecision)
	if q.Mul(b).LessThan(a) {
		q = q.Add(decimal.New(1, -divisionPrecision))
	}
	return q
}

// IsPositive reports whether d > 0.
func IsPositive(d Decimal) bool {
	return d.Sign() > 0
}

// IsZero reports whether d == 0.
func IsZero(d Decimal) bool {
	return d.Sign() == 0
}
