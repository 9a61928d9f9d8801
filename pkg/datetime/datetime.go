// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/constants"
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ElapsedDays returns the number of whole 24-hour periods between start and
// end. Calculation periods are date-granular, so both bounds are expected at
// midnight; partial days from timestamped inputs are discarded.
func ElapsedDays(start, end time.Time) int64 {
	return int64(end.Sub(start).Hours() / 24)
}

// ElapsedMonths30 converts the distance between start and end into
// commercial 30-day months, keeping the fractional part. Statutory interest
// in this domain accrues over 30-day months rather than calendar months.
func ElapsedMonths30(start, end time.Time) decimal.Decimal {
	days := decimal.NewFromInt(ElapsedDays(start, end))
	return days.Div(decimal.NewFromInt(constants.DaysPerMonth))
}

// MonthLabel formats an observation date as its month label, e.g. 2024-03.
func MonthLabel(t time.Time) string {
	return t.Format(constants.MonthLayout)
}
