// Package indices defines the static catalog of economic indices the engine
// corrects monetary values by.
//
// The catalog is read-only at runtime: exactly one Definition exists per
// Code, and every other component resolves display metadata, the SGS series
// number and the fallback rate through it.
package indices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies one of the supported indices.
type Code string

const (
	IPCA  Code = "IPCA"
	INPC  Code = "INPC"
	IGPM  Code = "IGPM"
	TR    Code = "TR"
	SELIC Code = "SELIC"
)

// PeriodicityMonthly is the only periodicity currently published for the
// catalog series.
const PeriodicityMonthly = "monthly"

// ErrUnknownIndex reports a code outside the catalog. Callers treat it as a
// validation failure, never as a transient one.
var ErrUnknownIndex = errors.New("unknown index code")

// Definition carries the immutable metadata of one catalog entry.
type Definition struct {
	Code        Code
	DisplayName string
	// Source names the publishing authority. Informational only; every
	// series is fetched from the Banco Central SGS mirror.
	Source      string
	Periodicity string
	// SeriesID is the SGS series number at the Banco Central.
	SeriesID int
	// FallbackMonthlyRate is the percent-per-month approximation used when
	// live data cannot be obtained. Results derived from it are always
	// flagged as estimates.
	FallbackMonthlyRate decimal.Decimal
}

var catalog = []Definition{
	{
		Code:                IPCA,
		DisplayName:         "IPCA (IBGE)",
		Source:              "IBGE",
		Periodicity:         PeriodicityMonthly,
		SeriesID:            433,
		FallbackMonthlyRate: decimal.RequireFromString("0.40"),
	},
	{
		Code:                INPC,
		DisplayName:         "INPC (IBGE)",
		Source:              "IBGE",
		Periodicity:         PeriodicityMonthly,
		SeriesID:            188,
		FallbackMonthlyRate: decimal.RequireFromString("0.40"),
	},
	{
		Code:                IGPM,
		DisplayName:         "IGP-M (FGV)",
		Source:              "FGV",
		Periodicity:         PeriodicityMonthly,
		SeriesID:            189,
		FallbackMonthlyRate: decimal.RequireFromString("0.50"),
	},
	{
		Code:                TR,
		DisplayName:         "Taxa Referencial (TR)",
		Source:              "Banco Central do Brasil",
		Periodicity:         PeriodicityMonthly,
		SeriesID:            226,
		FallbackMonthlyRate: decimal.RequireFromString("0.10"),
	},
	{
		Code:                SELIC,
		DisplayName:         "SELIC acumulada no mês",
		Source:              "Banco Central do Brasil",
		Periodicity:         PeriodicityMonthly,
		SeriesID:            4390,
		FallbackMonthlyRate: decimal.RequireFromString("1.00"),
	},
}

var byCode = func() map[Code]Definition {
	m := make(map[Code]Definition, len(catalog))
	for _, def := range catalog {
		m[def.Code] = def
	}
	return m
}()

// Get resolves the definition for a code.
func Get(code Code) (Definition, error) {
	def, ok := byCode[code]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownIndex, code)
	}
	return def, nil
}

// All returns the catalog entries in their canonical order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// ParseCode normalizes a user-supplied index name into a catalog Code.
// Case and the hyphen in "IGP-M" are tolerated.
func ParseCode(s string) (Code, error) {
	normalized := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "")
	code := Code(normalized)
	if _, ok := byCode[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIndex, s)
	}
	return code, nil
}
