// Package interest implements late-payment interest (juros de mora) over a
// date range, under the civil and labor statutory regimes or a caller-chosen
// custom rate.
//
// Statutory rates live in an immutable RateTable injected at construction.
// Legal rate changes are handled by constructing a calculator with a new
// table, never by mutating shared state.
package interest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/datetime"
	"github.com/advtools/calculo-engine/pkg/moneyutil"
	"github.com/advtools/calculo-engine/pkg/validation"
)

// Regime selects how the monthly rate is resolved.
type Regime string

const (
	// RegimeCivil is civil-law default interest, fixed by statute.
	RegimeCivil Regime = "civil"
	// RegimeLabor is labor-law default interest, fixed by statute.
	RegimeLabor Regime = "labor"
	// RegimeCustom uses the rate supplied on the request.
	RegimeCustom Regime = "custom"
)

// ParseRegime normalizes a user-supplied regime name.
func ParseRegime(s string) (Regime, error) {
	switch Regime(strings.ToLower(strings.TrimSpace(s))) {
	case RegimeCivil:
		return RegimeCivil, nil
	case RegimeLabor:
		return RegimeLabor, nil
	case RegimeCustom:
		return RegimeCustom, nil
	}
	return "", validation.NewFieldError("regime", fmt.Sprintf("unknown regime %q", s))
}

// RateTable holds the statutory monthly rates, percent per month.
type RateTable struct {
	CivilMonthly decimal.Decimal
	LaborMonthly decimal.Decimal
}

// DefaultRateTable returns the current statutory table: 1% per month for
// both civil and labor mora.
func DefaultRateTable() RateTable {
	onePercent := decimal.NewFromInt(1)
	return RateTable{CivilMonthly: onePercent, LaborMonthly: onePercent}
}

// Request describes one interest calculation.
type Request struct {
	Principal decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
	Regime    Regime
	// MonthlyRate is the percent-per-month rate, required when Regime is
	// RegimeCustom and ignored otherwise.
	MonthlyRate decimal.Decimal
	// Compound selects compound instead of simple interest.
	Compound bool
}

// Outcome is the result of an interest calculation.
type Outcome struct {
	// Interest is the accrued amount at full precision.
	Interest decimal.Decimal
	// Total is principal plus interest at full precision.
	Total decimal.Decimal
	// Percent is interest relative to the principal, at full precision.
	Percent decimal.Decimal
	// MonthlyRate is the rate that was applied, percent per month.
	MonthlyRate decimal.Decimal
	// Months is the elapsed period in commercial 30-day months, fractional.
	Months decimal.Decimal
}

// Calculator computes interest with a fixed rate table.
type Calculator struct {
	rates RateTable
}

// NewCalculator builds a Calculator around an immutable rate table.
func NewCalculator(rates RateTable) *Calculator {
	return &Calculator{rates: rates}
}

var one = decimal.NewFromInt(1)

// Calculate validates the request and accrues interest over the elapsed
// period. The period is measured in 30-day months and kept fractional in
// both the simple and the compound formula.
func (c *Calculator) Calculate(req Request) (Outcome, error) {
	if err := validation.PositiveAmount("principal", req.Principal); err != nil {
		return Outcome{}, err
	}
	if err := validation.Period(req.StartDate, req.EndDate); err != nil {
		return Outcome{}, err
	}
	rate, err := c.resolveRate(req)
	if err != nil {
		return Outcome{}, err
	}

	months := datetime.ElapsedMonths30(req.StartDate, req.EndDate)

	var interestAmount, total decimal.Decimal
	if req.Compound {
		// total = P * (1 + rate/100)^months; the fractional exponent runs
		// through float64 and comes straight back to decimal.
		base := one.Add(rate.Shift(-2))
		factor := decimal.NewFromFloat(math.Pow(base.InexactFloat64(), months.InexactFloat64()))
		total = req.Principal.Mul(factor)
		interestAmount = total.Sub(req.Principal)
	} else {
		interestAmount = req.Principal.Mul(rate.Shift(-2)).Mul(months)
		total = req.Principal.Add(interestAmount)
	}

	return Outcome{
		Interest:    interestAmount,
		Total:       total,
		Percent:     moneyutil.Percent(interestAmount, req.Principal),
		MonthlyRate: rate,
		Months:      months,
	}, nil
}

func (c *Calculator) resolveRate(req Request) (decimal.Decimal, error) {
	switch req.Regime {
	case RegimeCivil:
		return c.rates.CivilMonthly, nil
	case RegimeLabor:
		return c.rates.LaborMonthly, nil
	case RegimeCustom:
		if !req.MonthlyRate.IsPositive() {
			return decimal.Decimal{}, validation.NewFieldError("monthlyRate", "is required for the custom regime")
		}
		return req.MonthlyRate, nil
	}
	return decimal.Decimal{}, validation.NewFieldError("regime", fmt.Sprintf("unknown regime %q", req.Regime))
}
