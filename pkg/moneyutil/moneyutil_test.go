package moneyutil

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/advtools/calculo-engine/pkg/testutil"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Rounds half up", input: "10.005", want: "10.01"},
		{name: "Rounds half away from zero when negative", input: "-10.005", want: "-10.01"},
		{name: "Rounds down below half", input: "10.004", want: "10"},
		{name: "Keeps exact values", input: "1012.99", want: "1012.99"},
		{name: "Long tail", input: "1013.0199", want: "1013.02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.RequireDecimal(t, "Round", tt.want, Round(decimal.RequireFromString(tt.input)))
		})
	}
}

func TestRoundIsIdempotent(t *testing.T) {
	value := decimal.RequireFromString("123.456789")

	once := Round(value)
	twice := Round(once)

	if !once.Equal(twice) {
		t.Errorf("Round(Round(x)) = %s, expected %s", twice, once)
	}
}

func TestRoundPercent(t *testing.T) {
	testutil.RequireDecimal(t, "RoundPercent", "1.3", RoundPercent(decimal.RequireFromString("1.30199")))
	testutil.RequireDecimal(t, "RoundPercent", "12.68", RoundPercent(decimal.RequireFromString("12.6825")))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		value string
		total string
		want  string
	}{
		{name: "Quarter", value: "50", total: "200", want: "25"},
		{name: "Whole", value: "200", total: "200", want: "100"},
		{name: "Zero total yields zero", value: "50", total: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(decimal.RequireFromString(tt.value), decimal.RequireFromString(tt.total))
			testutil.RequireDecimal(t, "Percent", tt.want, got)
		})
	}
}

func TestApplyPercent(t *testing.T) {
	testutil.RequireDecimal(t, "ApplyPercent", "50", ApplyPercent(decimal.RequireFromString("200"), decimal.RequireFromString("25")))
	testutil.RequireDecimal(t, "ApplyPercent", "2000", ApplyPercent(decimal.RequireFromString("10000"), decimal.RequireFromString("20")))
}

func TestMidpoint(t *testing.T) {
	got := Midpoint(decimal.RequireFromString("1000"), decimal.RequireFromString("2000"))
	testutil.RequireDecimal(t, "Midpoint", "1500", got)
}
