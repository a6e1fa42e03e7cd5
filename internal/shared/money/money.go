// Package money provides fixed-precision currency arithmetic on integer
// minor units. Public APIs exchange decimal values with two fractional
// digits; internally every amount is a count of cents so repeated
// addition and percentage application never drift.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount signals a negative value where only non-negative
// amounts are permitted (line prices, tax rates, quantities).
var ErrInvalidAmount = errors.New("amount must not be negative")

var hundred = decimal.NewFromInt(100)

// Money is a non-negative currency amount in minor units.
type Money struct {
	cents int64
}

// Zero returns the zero amount.
func Zero() Money { return Money{} }

// FromCents builds an amount from minor units.
func FromCents(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, fmt.Errorf("%w: %d cents", ErrInvalidAmount, cents)
	}
	return Money{cents: cents}, nil
}

// MustFromCents is FromCents for values known to be valid, such as test
// fixtures and literals.
func MustFromCents(cents int64) Money {
	m, err := FromCents(cents)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a decimal amount, rounding half-up to the minor unit.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	return Money{cents: d.Mul(hundred).Round(0).IntPart()}, nil
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return m.cents }

// Decimal returns the amount at fixed scale 2.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.cents, -2)
}

// String formats the amount with two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.cents == 0 }

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{cents: m.cents + o.cents}
}

// SubClamped returns m - o floored at zero. Discount application relies
// on this clamp so a discount can never invert a bill.
func (m Money) SubClamped(o Money) Money {
	if o.cents >= m.cents {
		return Money{}
	}
	return Money{cents: m.cents - o.cents}
}

// MulInt returns m scaled by an integer quantity.
func (m Money) MulInt(qty int64) (Money, error) {
	if qty < 0 {
		return Money{}, fmt.Errorf("%w: quantity %d", ErrInvalidAmount, qty)
	}
	return Money{cents: m.cents * qty}, nil
}

// Percent returns rate% of m, rounded half-up to the minor unit.
func (m Money) Percent(rate decimal.Decimal) (Money, error) {
	if rate.IsNegative() {
		return Money{}, fmt.Errorf("%w: rate %s", ErrInvalidAmount, rate.String())
	}
	cents := decimal.NewFromInt(m.cents).Mul(rate).Div(hundred).Round(0).IntPart()
	return Money{cents: cents}, nil
}

// Cmp compares m against o: -1 if less, 0 if equal, +1 if greater.
func (m Money) Cmp(o Money) int {
	switch {
	case m.cents < o.cents:
		return -1
	case m.cents > o.cents:
		return 1
	default:
		return 0
	}
}

// MarshalJSON encodes the amount as its decimal string, e.g. "24.50".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts the decimal string form produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Min returns the smaller of two amounts.
func Min(a, b Money) Money {
	if a.cents <= b.cents {
		return a
	}
	return b
}
