// Package money holds currency amounts as integer minor units (centimes, cents).
// Balances are sums of Amounts, so no floating point ever reaches the ledger.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrSubMinorPrecision is returned when a decimal carries more fractional
// digits than the currency's minor unit can hold.
var ErrSubMinorPrecision = errors.New("money: amount finer than the currency minor unit")

// ErrOutOfRange is returned when an amount falls outside [-MaxAmount, MaxAmount].
var ErrOutOfRange = errors.New("money: amount out of range")

// ErrOverflow is returned when a sum of amounts would not fit in an int64.
var ErrOverflow = errors.New("money: arithmetic overflow")

// Amount is a signed number of minor units.
type Amount int64

// MaxAmount bounds any single amount accepted at the edge (10^15 minor units).
// The database enforces the same bound with CHECK constraints.
const MaxAmount Amount = 1_000_000_000_000_000

var (
	maxDecimal = decimal.NewFromInt(int64(MaxAmount))
	minDecimal = decimal.NewFromInt(-int64(MaxAmount))
)

// Currency describes how major-unit decimals map to minor units.
// Scale is the number of fractional digits: 0 for XOF, 2 for EUR.
type Currency struct {
	Code  string
	Scale int32
}

// FromDecimal converts a major-unit decimal (e.g. "1500.25") to minor units.
func (c Currency) FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(c.Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s %s", ErrSubMinorPrecision, d.String(), c.Code)
	}
	if shifted.GreaterThan(maxDecimal) || shifted.LessThan(minDecimal) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Amount(shifted.IntPart()), nil
}

// Decimal renders an amount back in major units.
func (c Currency) Decimal(a Amount) decimal.Decimal {
	return decimal.New(int64(a), -c.Scale)
}

// Abs returns the absolute value.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

func (a Amount) IsPositive() bool { return a > 0 }
func (a Amount) IsNegative() bool { return a < 0 }

// Add returns a+b, or ErrOverflow when the sum leaves the int64 range.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// Sub returns a-b, or ErrOverflow when the difference leaves the int64 range.
func (a Amount) Sub(b Amount) (Amount, error) {
	diff := a - b
	if (b > 0 && diff > a) || (b < 0 && diff < a) {
		return 0, fmt.Errorf("%w: %d - %d", ErrOverflow, a, b)
	}
	return diff, nil
}
