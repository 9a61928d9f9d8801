// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
)

// RequireDecimal fails the test when got differs from the decimal encoded in
// want. Comparison is exact, not rounded.
func RequireDecimal(t *testing.T, name, want string, got decimal.Decimal) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	if !got.Equal(expected) {
		t.Errorf("%s = %s, expected %s", name, got.String(), want)
	}
}

// RequireDecimalRounded fails the test when got, rounded to the given number
// of places, differs from want. Used for checking displayed values without
// pinning internal precision.
func RequireDecimalRounded(t *testing.T, name, want string, got decimal.Decimal, places int32) {
	t.Helper()
	expected := decimal.RequireFromString(want)
	rounded := got.Round(places)
	if !rounded.Equal(expected) {
		t.Errorf("%s = %s (rounded %s), expected %s", name, got.String(), rounded.String(), want)
	}
}
