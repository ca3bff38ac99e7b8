// Package money holds cent arithmetic for billing. Amounts are integer cents;
// rounding goes through decimal to avoid float drift on exact halves.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const secondsPerHour = 3600

var hour = decimal.NewFromInt(secondsPerHour)

// Hours converts a duration in seconds to fractional hours, unrounded.
func Hours(seconds int64) float64 {
	return float64(seconds) / secondsPerHour
}

// LineAmountCents returns round(seconds/3600 × rateCents), rounding halves
// up. Inputs are non-negative.
func LineAmountCents(seconds, rateCents int64) int64 {
	amount := decimal.NewFromInt(seconds).
		Mul(decimal.NewFromInt(rateCents)).
		Div(hour).
		Round(0)
	return amount.IntPart()
}

// Dollars converts cents to a decimal dollar amount.
func Dollars(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as "$1234.50".
func Format(cents int64) string {
	return "$" + Dollars(cents).StringFixed(2)
}

// FormatRate renders an hourly rate as "$90.00/hr".
func FormatRate(cents int64) string {
	return Format(cents) + "/hr"
}

// FormatHours renders hours with two decimals.
func FormatHours(hours float64) string {
	return fmt.Sprintf("%.2f", hours)
}
