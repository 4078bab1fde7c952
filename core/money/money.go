// Package money provides exact monetary amounts in integral minor units.
// All fee arithmetic runs on int64 cents; decimals appear only at the
// parse/format boundary. NEVER use float64 for money calculations.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary amount in minor currency units (cents).
type Amount int64

// Zero is the zero amount.
const Zero Amount = 0

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a major-unit decimal (e.g. "2.50") into cents.
// The value must be representable exactly at two decimal places.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d.String())
	}
	return Amount(cents.IntPart()), nil
}

// MustFromDecimal converts a decimal to cents and panics on sub-cent input.
// Intended for literals in tests and seed data.
func MustFromDecimal(d decimal.Decimal) Amount {
	a, err := FromDecimal(d)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents wraps a raw cent count.
func FromCents(cents int64) Amount {
	return Amount(cents)
}

// Cents returns the raw cent count.
func (a Amount) Cents() int64 {
	return int64(a)
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a)).Div(hundred)
}

// Add adds two amounts.
func (a Amount) Add(other Amount) Amount {
	return a + other
}

// Sub subtracts an amount.
func (a Amount) Sub(other Amount) Amount {
	return a - other
}

// MulUnits multiplies a per-unit price by a unit count.
func (a Amount) MulUnits(units int64) Amount {
	return Amount(int64(a) * units)
}

// Min returns the smaller of two amounts.
func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a == 0
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a < 0
}

// String formats the amount in major units with two decimal places.
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}
