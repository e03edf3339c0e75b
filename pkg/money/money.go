// Package money holds the presentation helpers for decimal amounts. Amounts
// are carried unrounded through every computation and rounded once, here.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CentPlaces is the display precision for every amount.
const CentPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// Round rounds an amount to the cent, half away from zero.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CentPlaces)
}

// Format renders an amount as a dollar string, e.g. "$63.99".
func Format(amount decimal.Decimal) string {
	rounded := Round(amount)
	if rounded.IsNegative() {
		return fmt.Sprintf("-$%s", rounded.Neg().StringFixed(CentPlaces))
	}
	return fmt.Sprintf("$%s", rounded.StringFixed(CentPlaces))
}

// Percent returns pct percent of amount without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Cents converts an amount to integer cents after rounding.
func Cents(amount decimal.Decimal) int64 {
	return Round(amount).Shift(CentPlaces).IntPart()
}

// FromCents builds an amount from integer cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-CentPlaces)
}

// Sum adds amounts without intermediate rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
