// Package correction implements the monetary correction calculator.
//
// Correction compounds a chronological series of monthly percentage
// variations into a single multiplicative factor. The factor is always the
// strict left-to-right product Π(1 + vᵢ/100) over the observations used; no
// other formula recomputes it, and no rounding happens until the result
// reaches a presentation boundary.
package correction

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoObservations reports a compounding request with an empty series. An
// empty series is insufficient data, not a "no change" result; returning
// factor 1 here would disguise a data gap as an authoritative answer.
var ErrNoObservations = errors.New("no observations to compound")

var one = decimal.NewFromInt(1)

// Observation is one month of percentage variation of an index. Variation
// may be negative (deflation).
type Observation struct {
	Date      time.Time
	Variation decimal.Decimal
}

// Result is the outcome of compounding a series of observations.
type Result struct {
	// Factor is the multiplicative compounding factor, 1.0 meaning no change.
	Factor decimal.Decimal
	// Percent is (Factor-1)*100 at full precision. Display rounding is the
	// caller's concern.
	Percent decimal.Decimal
	// ObservationsUsed counts the observations that contributed to Factor.
	ObservationsUsed int
	// IsEstimate is true when the factor was approximated from a fallback
	// rate instead of published observations.
	IsEstimate bool
}

// Compound multiplies the observations into a correction factor, in input
// order. Observations arrive chronologically ascending from the provider;
// the order is preserved so results stay bit-for-bit reproducible.
func Compound(observations []Observation) (Result, error) {
	if len(observations) == 0 {
		return Result{}, ErrNoObservations
	}

	factor := one
	for _, obs := range observations {
		factor = factor.Mul(one.Add(obs.Variation.Shift(-2)))
	}

	return Result{
		Factor:           factor,
		Percent:          factorPercent(factor),
		ObservationsUsed: len(observations),
	}, nil
}

// EstimateFactor approximates a correction factor from a fixed monthly rate
// when the live series is unavailable: (1 + rate/100) ^ max(1, elapsedMonths).
// Fractional months are kept in the exponent; periods shorter than one month
// are charged a full month. The result is always flagged as an estimate.
func EstimateFactor(monthlyRatePercent, elapsedMonths decimal.Decimal) Result {
	months := elapsedMonths
	if months.LessThan(one) {
		months = one
	}

	base := one.Add(monthlyRatePercent.Shift(-2))
	// Fractional exponent: decimal has no fractional power, so the exponent
	// runs through float64 and the result returns to decimal immediately.
	factor := decimal.NewFromFloat(math.Pow(base.InexactFloat64(), months.InexactFloat64()))

	return Result{
		Factor:     factor,
		Percent:    factorPercent(factor),
		IsEstimate: true,
	}
}

func factorPercent(factor decimal.Decimal) decimal.Decimal {
	return factor.Sub(one).Shift(2)
}
