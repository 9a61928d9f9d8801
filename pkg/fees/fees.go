// Package fees computes attorney-fee schedules (honorários).
//
// Every computation is a pure function of a Schedule and a case value; the
// package holds no state. It lives alongside the correction and interest
// calculators because it follows the same decimal precision discipline.
package fees

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/moneyutil"
	"github.com/advtools/calculo-engine/pkg/validation"
)

// Kind discriminates the fee schedule variants.
type Kind string

const (
	// KindContractual is a percentage of the case value agreed by contract.
	KindContractual Kind = "contractual"
	// KindFixed is a flat amount; the case value is ignored.
	KindFixed Kind = "fixed"
	// KindStatutoryRange derives a min/max band from the case value using
	// the statutory percentage bounds.
	KindStatutoryRange Kind = "statutoryRange"
	// KindContingency is a percentage due only on success (ad exitum). The
	// arithmetic matches KindContractual; the kind stays distinct because it
	// carries different disclosure duties upstream.
	KindContingency Kind = "contingency"
)

// ParseKind normalizes a user-supplied schedule kind.
func ParseKind(s string) (Kind, error) {
	switch strings.TrimSpace(s) {
	case string(KindContractual):
		return KindContractual, nil
	case string(KindFixed):
		return KindFixed, nil
	case string(KindStatutoryRange):
		return KindStatutoryRange, nil
	case string(KindContingency):
		return KindContingency, nil
	}
	return "", validation.NewFieldError("kind", fmt.Sprintf("unknown fee schedule kind %q", s))
}

// Schedule describes one fee arrangement. Only the fields relevant to Kind
// are read; the rest stay at their zero value.
type Schedule struct {
	Kind Kind
	// Percent applies to KindContractual.
	Percent decimal.Decimal
	// Amount applies to KindFixed.
	Amount decimal.Decimal
	// MinPercent and MaxPercent apply to KindStatutoryRange.
	MinPercent decimal.Decimal
	MaxPercent decimal.Decimal
	// ContingencyPercent applies to KindContingency.
	ContingencyPercent decimal.Decimal
}

// Outcome is the result of a fee computation, at full precision.
type Outcome struct {
	Kind Kind
	// Fee is the computed fee. For KindStatutoryRange it is the midpoint
	// suggestion and the bounds below are always populated with it; the
	// range is never collapsed to a single number on its own.
	Fee    decimal.Decimal
	FeeMin decimal.Decimal
	FeeMax decimal.Decimal
}

// Calculate computes the fee owed under the schedule for the case value.
func Calculate(schedule Schedule, caseValue decimal.Decimal) (Outcome, error) {
	switch schedule.Kind {
	case KindContractual:
		return percentageFee(schedule.Kind, "percent", schedule.Percent, caseValue)
	case KindContingency:
		return percentageFee(schedule.Kind, "contingencyPercent", schedule.ContingencyPercent, caseValue)
	case KindFixed:
		if err := validation.NonNegativeAmount("amount", schedule.Amount); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindFixed, Fee: schedule.Amount}, nil
	case KindStatutoryRange:
		return statutoryRangeFee(schedule, caseValue)
	}
	return Outcome{}, validation.NewFieldError("kind", fmt.Sprintf("unknown fee schedule kind %q", schedule.Kind))
}

func percentageFee(kind Kind, field string, percent, caseValue decimal.Decimal) (Outcome, error) {
	if err := validation.NonNegativeAmount("caseValue", caseValue); err != nil {
		return Outcome{}, err
	}
	if err := validation.NonNegativePercent(field, percent); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: kind, Fee: moneyutil.ApplyPercent(caseValue, percent)}, nil
}

func statutoryRangeFee(schedule Schedule, caseValue decimal.Decimal) (Outcome, error) {
	if err := validation.NonNegativeAmount("caseValue", caseValue); err != nil {
		return Outcome{}, err
	}
	if err := validation.NonNegativePercent("minPercent", schedule.MinPercent); err != nil {
		return Outcome{}, err
	}
	if err := validation.NonNegativePercent("maxPercent", schedule.MaxPercent); err != nil {
		return Outcome{}, err
	}
	if schedule.MaxPercent.LessThan(schedule.MinPercent) {
		return Outcome{}, validation.NewFieldError("maxPercent", "must not be below minPercent")
	}

	feeMin := moneyutil.ApplyPercent(caseValue, schedule.MinPercent)
	feeMax := moneyutil.ApplyPercent(caseValue, schedule.MaxPercent)
	return Outcome{
		Kind:   KindStatutoryRange,
		Fee:    moneyutil.Midpoint(feeMin, feeMax),
		FeeMin: feeMin,
		FeeMax: feeMax,
	}, nil
}
