// Package validation provides input validation for calculation requests.
//
// Validation failures are the only errors a caller of the engine sees as
// hard failures; everything transient downstream degrades to the estimate
// path instead. A FieldError always names the offending field so the
// consuming subsystem can report it without parsing message text.
package validation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FieldError describes an invalid input field. It is never retried and is
// surfaced immediately to the caller.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFieldError builds a FieldError for the given field.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// PositiveAmount requires a strictly positive monetary amount.
func PositiveAmount(field string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return NewFieldError(field, "must be greater than zero")
	}
	return nil
}

// NonNegativeAmount requires an amount that is zero or more.
func NonNegativeAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewFieldError(field, "must not be negative")
	}
	return nil
}

// NonNegativePercent requires a percentage that is zero or more.
func NonNegativePercent(field string, percent decimal.Decimal) error {
	if percent.IsNegative() {
		return NewFieldError(field, "must not be negative")
	}
	return nil
}

// Period requires both bounds set and the end strictly after the start.
// It runs before any arithmetic is attempted on the dates.
func Period(start, end time.Time) error {
	if start.IsZero() {
		return NewFieldError("startDate", "is required")
	}
	if end.IsZero() {
		return NewFieldError("endDate", "is required")
	}
	if !end.After(start) {
		return NewFieldError("endDate", "must be after startDate")
	}
	return nil
}
