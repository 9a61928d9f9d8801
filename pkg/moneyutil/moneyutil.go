// Package moneyutil provides decimal helpers shared by the calculators.
//
// Every monetary and percentage value in the engine is a
// github.com/shopspring/decimal Decimal; float64 never carries money.
// Rounding to currency scale happens exactly once, at the presentation
// boundary, through the helpers here.
package moneyutil

import (
	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/constants"
)

var oneHundred = decimal.NewFromInt(100)

// Round rounds a monetary amount to currency scale (two decimals,
// half rounds up, i.e. away from zero).
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.MoneyDecimalPlaces)
}

// RoundPercent rounds a percentage for display. Internal calculations keep
// full precision; only rendered values pass through here.
func RoundPercent(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.PercentDecimalPlaces)
}

// Percent calculates what percentage value is of total. A zero total yields
// zero rather than a division error.
func Percent(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Div(total).Mul(oneHundred)
}

// ApplyPercent applies a percentage to a value, e.g. ApplyPercent(200, 25) = 50.
func ApplyPercent(value, percentage decimal.Decimal) decimal.Decimal {
	return value.Mul(percentage).Div(oneHundred)
}

// Midpoint returns the arithmetic middle of two values.
func Midpoint(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b).Div(decimal.NewFromInt(2))
}
