// Package money centralizes monetary conversions. Amounts are stored and
// compared as integer minor units (centavos/cents); providers that report
// major-unit floats are converted here and nowhere else.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FromMajorUnits converts a major-unit amount (e.g. 497.00 BRL) into minor
// units (49700). Amounts with sub-cent precision are rejected rather than
// rounded, so a malformed provider payload surfaces instead of corrupting a
// balance.
func FromMajorUnits(value float64) (int64, error) {
	d := decimal.NewFromFloat(value)
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %v has sub-cent precision", value)
	}
	return cents.IntPart(), nil
}

// FromMajorUnitsString converts a decimal string ("497.00") into minor units.
func FromMajorUnitsString(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has sub-cent precision", value)
	}
	return cents.IntPart(), nil
}

// ToMajorUnits renders minor units as a two-decimal string for provider APIs
// and notification copy.
func ToMajorUnits(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
