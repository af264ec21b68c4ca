package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a fixed-point currency value in minor units (cents).
// Positive values are credits, negative values debits when used as a delta.
type Amount int64

const minorExponent = 2

var (
	errAmountSyntax    = errors.New("amount is not a number")
	errAmountPrecision = errors.New("amount has more than two decimal places")
	errAmountRange     = errors.New("amount out of range")
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts user text like "20", "20.5" or "$20.50" into minor units.
// Sign is preserved; callers decide whether non-positive values are acceptable.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, errAmountSyntax
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errAmountSyntax, s)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts a major-unit decimal into minor units.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(minorExponent)
	if !minor.IsInteger() {
		return 0, errAmountPrecision
	}
	if minor.Abs().GreaterThan(maxAmount) {
		return 0, errAmountRange
	}
	return Amount(minor.IntPart()), nil
}

// Cents is a convenience constructor for literal amounts.
func Cents(v int64) Amount {
	return Amount(v)
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorExponent)
}

// Abs returns the magnitude of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// String renders the amount for display, e.g. "$70.00" or "-$30.00".
func (a Amount) String() string {
	if a < 0 {
		return "-$" + a.Abs().Decimal().StringFixed(minorExponent)
	}
	return "$" + a.Decimal().StringFixed(minorExponent)
}
