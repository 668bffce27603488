// Package types provides common type aliases and monetary arithmetic helpers.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors. Values are kept at
// full precision through a calculation and rounded only at the final step
// (persistence or external reporting), never mid-calculation.
type Money = decimal.Decimal

// Standard scales used across the ledger:
//   - amounts are stored with 2 decimal places
//   - rates, percentages, unit costs and exchange rates with 4
//   - quantities with 3 (fractional units, e.g. weight-based stock)
const (
	ScaleMoney    = 2
	ScaleRate     = 4
	ScaleQuantity = 3
)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to 2 decimal places, half up.
func RoundMoney(d Money) Money {
	return d.Round(ScaleMoney)
}

// RoundRate rounds to 4 decimal places, half up.
// Used for percentages, unit costs and exchange rates.
func RoundRate(d Money) Money {
	return d.Round(ScaleRate)
}

// RoundQuantity rounds to 3 decimal places, half up.
func RoundQuantity(d Money) Money {
	return d.Round(ScaleQuantity)
}

// SafeDiv divides a by b, returning zero when b is zero.
// A zero-quantity valuation means "no stock", not an arithmetic error;
// the caller interprets the zero result.
func SafeDiv(a, b Money) Money {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Percent returns amount * pct / 100 at full precision.
// Round at the call site with the scale the result is stored at.
func Percent(amount, pct Money) Money {
	return amount.Mul(pct).Div(decimal.NewFromInt(100))
}

// Hundred is the constant 100, used in rate arithmetic.
var Hundred = decimal.NewFromInt(100)
