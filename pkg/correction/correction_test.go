package correction

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/constants"
	"github.com/advtools/calculo-engine/pkg/datetime"
	"github.com/advtools/calculo-engine/pkg/testutil"
)

// monthlyObservations builds a chronological series starting at firstMonth,
// one observation per month.
func monthlyObservations(firstMonth string, variations ...string) []Observation {
	start := datetime.MustParseTime(constants.MonthLayout, firstMonth)
	observations := make([]Observation, 0, len(variations))
	for i, v := range variations {
		observations = append(observations, Observation{
			Date:      start.AddDate(0, i, 0),
			Variation: decimal.RequireFromString(v),
		})
	}
	return observations
}

func TestCompound(t *testing.T) {
	tests := []struct {
		name        string
		variations  []string
		wantFactor  string
		wantPercent string
	}{
		{
			name:        "Single month of inflation",
			variations:  []string{"0.50"},
			wantFactor:  "1.005",
			wantPercent: "0.5",
		},
		{
			name:        "Inflation followed by deflation",
			variations:  []string{"1.00", "0.50", "-0.20"},
			wantFactor:  "1.0130199", // 1.01 * 1.005 * 0.998
			wantPercent: "1.30199",
		},
		{
			name:        "Flat months leave the value unchanged",
			variations:  []string{"0", "0", "0"},
			wantFactor:  "1",
			wantPercent: "0",
		},
		{
			name:        "Deflation shrinks the factor below one",
			variations:  []string{"-1.00"},
			wantFactor:  "0.99",
			wantPercent: "-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Compound(monthlyObservations("2024-01", tt.variations...))
			if err != nil {
				t.Fatalf("Compound() returned error: %v", err)
			}

			testutil.RequireDecimal(t, "Factor", tt.wantFactor, result.Factor)
			testutil.RequireDecimal(t, "Percent", tt.wantPercent, result.Percent)
			if result.ObservationsUsed != len(tt.variations) {
				t.Errorf("ObservationsUsed = %d, expected %d", result.ObservationsUsed, len(tt.variations))
			}
			if result.IsEstimate {
				t.Error("IsEstimate = true, expected false for published observations")
			}
		})
	}
}

func TestCompoundGrowsWithPositiveSeries(t *testing.T) {
	variations := []string{"0.30", "0.45", "0.10", "0.55", "0.20", "0.35"}

	previous := decimal.Zero
	for months := 1; months <= len(variations); months++ {
		result, err := Compound(monthlyObservations("2024-01", variations[:months]...))
		if err != nil {
			t.Fatalf("Compound() over %d months returned error: %v", months, err)
		}
		if result.Percent.LessThan(previous) {
			t.Errorf("percent over %d months (%s) decreased from %s with only positive variations",
				months, result.Percent, previous)
		}
		previous = result.Percent
	}
}

func TestCompoundEmptySeries(t *testing.T) {
	_, err := Compound(nil)
	if !errors.Is(err, ErrNoObservations) {
		t.Errorf("Compound(nil) error = %v, expected ErrNoObservations", err)
	}

	_, err = Compound([]Observation{})
	if !errors.Is(err, ErrNoObservations) {
		t.Errorf("Compound(empty) error = %v, expected ErrNoObservations", err)
	}
}

func TestEstimateFactor(t *testing.T) {
	tests := []struct {
		name        string
		monthlyRate string
		months      string
		wantFactor  string // rounded to 6 places
	}{
		{
			name:        "Whole months",
			monthlyRate: "1.00",
			months:      "2",
			wantFactor:  "1.0201",
		},
		{
			name:        "Fractional months keep the fraction in the exponent",
			monthlyRate: "1.00",
			months:      "1.5",
			wantFactor:  "1.015037", // 1.01^1.5
		},
		{
			name:        "Periods under one month charge a full month",
			monthlyRate: "0.50",
			months:      "0.25",
			wantFactor:  "1.005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EstimateFactor(
				decimal.RequireFromString(tt.monthlyRate),
				decimal.RequireFromString(tt.months),
			)

			testutil.RequireDecimalRounded(t, "Factor", tt.wantFactor, result.Factor, 6)
			if !result.IsEstimate {
				t.Error("IsEstimate = false, expected true for estimated factors")
			}
			if result.ObservationsUsed != 0 {
				t.Errorf("ObservationsUsed = %d, expected 0", result.ObservationsUsed)
			}
		})
	}
}

func TestEstimateFactorGrowsWithTime(t *testing.T) {
	rate := decimal.RequireFromString("0.40")

	short := EstimateFactor(rate, decimal.NewFromInt(3))
	long := EstimateFactor(rate, decimal.NewFromInt(12))

	if !long.Factor.GreaterThan(short.Factor) {
		t.Errorf("factor over 12 months (%s) not greater than over 3 months (%s)",
			long.Factor, short.Factor)
	}
}
