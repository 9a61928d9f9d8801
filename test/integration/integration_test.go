package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/advtools/calculo-engine/internal/config"
	"github.com/advtools/calculo-engine/internal/engine"
	"github.com/advtools/calculo-engine/internal/series"
	"github.com/advtools/calculo-engine/internal/server"
	"github.com/advtools/calculo-engine/pkg/testutil"
)

// calculationResult is the client view of a combined calculation response.
type calculationResult struct {
	ReferenceID      string          `json:"referenceId"`
	Index            string          `json:"index"`
	OriginalValue    decimal.Decimal `json:"originalValue"`
	CorrectedValue   decimal.Decimal `json:"correctedValue"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	FinalValue       decimal.Decimal `json:"finalValue"`
	Factor           decimal.Decimal `json:"factor"`
	Percent          decimal.Decimal `json:"percent"`
	ObservationsUsed int             `json:"observationsUsed"`
	IsEstimate       bool            `json:"isEstimate"`
	Source           string          `json:"source"`
	Observation      string          `json:"observation"`
}

type correctionResult struct {
	CorrectedValue decimal.Decimal `json:"correctedValue"`
	IsEstimate     bool            `json:"isEstimate"`
	Source         string          `json:"source"`
	Observation    string          `json:"observation"`
}

type interestResult struct {
	Interest decimal.Decimal `json:"interest"`
	Total    decimal.Decimal `json:"total"`
	Percent  decimal.Decimal `json:"percent"`
	Months   decimal.Decimal `json:"months"`
}

type feeResult struct {
	Fee decimal.Decimal `json:"fee"`
}

type snapshotResult struct {
	Value      decimal.Decimal `json:"value"`
	Date       string          `json:"date"`
	IsEstimate bool            `json:"isEstimate"`
}

// seriesID extracts the SGS series number from a request path such as
// /bcdata.sgs.433/dados.
func seriesID(path string) string {
	rest := strings.TrimPrefix(path, "/bcdata.sgs.")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// fakeSGS serves deterministic monthly variations per series so every index
// produces a distinct, hand-checkable correction factor. Series listed in
// failSeries answer 503 to exercise the fallback path.
func fakeSGS(failSeries map[string]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := seriesID(r.URL.Path)
		if failSeries[id] {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/ultimos/") {
			fmt.Fprint(w, `[{"data":"01/07/2026","valor":"0,26"}]`)
			return
		}

		switch id {
		case "433":
			fmt.Fprint(w, `[{"data":"01/01/2024","valor":"1,00"},{"data":"01/02/2024","valor":"0,50"},{"data":"01/03/2024","valor":"-0,20"}]`)
		case "4390":
			fmt.Fprint(w, `[{"data":"01/01/2024","valor":"1,00"},{"data":"01/02/2024","valor":"1,00"},{"data":"01/03/2024","valor":"1,00"}]`)
		default:
			fmt.Fprint(w, `[{"data":"01/01/2024","valor":"0,30"},{"data":"01/02/2024","valor":"0,30"},{"data":"01/03/2024","valor":"0,30"}]`)
		}
	}
}

// newStack builds the full application stack exactly as main() does, loading
// the shared test configuration and pointing the series client at upstream.
func newStack(t *testing.T, upstream http.HandlerFunc) http.Handler {
	t.Helper()

	logger := zap.NewNop()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if warnings := conf.ValidateConfiguration(); len(warnings) != 0 {
		t.Fatalf("ValidateConfiguration() = %v, expected no warnings", warnings)
	}
	conf.Provider.BaseURL = srv.URL

	overrides, err := conf.FallbackOverrides()
	if err != nil {
		t.Fatalf("FallbackOverrides() error = %v", err)
	}

	client := series.NewClient(conf.SeriesConfig(), logger)
	eng := engine.New(client, engine.Options{
		Rates:         conf.RateTable(),
		FallbackRates: overrides,
	}, logger)
	return server.NewHandler(logger, eng, "integration")
}

func postJSON(t *testing.T, h http.Handler, path, body string, dst interface{}) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if dst != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return rec.Code
}

func getJSON(t *testing.T, h http.Handler, path string, dst interface{}) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if dst != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
			t.Fatalf("failed to decode %s response: %v", path, err)
		}
	}
	return rec.Code
}

// TestCalculationBaseline runs combined calculations through the full stack
// and checks them against hand-computed baseline values.
func TestCalculationBaseline(t *testing.T) {
	h := newStack(t, fakeSGS(nil))

	baselineChecks := []struct {
		name             string
		body             string
		wantCorrected    string
		wantInterest     string
		wantFinal        string
		wantObservations int
		wantSelicCaveat  bool
	}{
		{
			name:             "IPCA with civil interest",
			body:             `{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IPCA","regime":"civil","applyInterest":true}`,
			wantCorrected:    "1013.02",
			wantInterest:     "30.39",
			wantFinal:        "1043.41",
			wantObservations: 3,
		},
		{
			name:             "SELIC absorbs interest",
			body:             `{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"SELIC","applyInterest":true}`,
			wantCorrected:    "1030.30",
			wantInterest:     "0",
			wantFinal:        "1030.30",
			wantObservations: 3,
			wantSelicCaveat:  true,
		},
		{
			name:             "INPC correction only",
			body:             `{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"INPC","applyInterest":false}`,
			wantCorrected:    "1009.03",
			wantInterest:     "0",
			wantFinal:        "1009.03",
			wantObservations: 3,
		},
	}

	for _, check := range baselineChecks {
		t.Run(check.name, func(t *testing.T) {
			var result calculationResult
			if code := postJSON(t, h, "/v1/calculations", check.body, &result); code != http.StatusOK {
				t.Fatalf("status = %d, expected %d", code, http.StatusOK)
			}

			testutil.RequireDecimal(t, "CorrectedValue", check.wantCorrected, result.CorrectedValue)
			testutil.RequireDecimal(t, "InterestAmount", check.wantInterest, result.InterestAmount)
			testutil.RequireDecimal(t, "FinalValue", check.wantFinal, result.FinalValue)
			if result.ObservationsUsed != check.wantObservations {
				t.Errorf("ObservationsUsed = %d, expected %d", result.ObservationsUsed, check.wantObservations)
			}
			if result.IsEstimate {
				t.Error("IsEstimate = true, expected live data")
			}
			if check.wantSelicCaveat && !strings.Contains(result.Observation, "EC 113") {
				t.Errorf("Observation = %q, expected the SELIC caveat", result.Observation)
			}
			if result.ReferenceID == "" {
				t.Error("ReferenceID is empty")
			}
		})
	}
}

// TestFallbackFlagging verifies that an unavailable series degrades to a
// flagged estimate while other indices keep using live data.
func TestFallbackFlagging(t *testing.T) {
	h := newStack(t, fakeSGS(map[string]bool{"189": true}))

	var estimated correctionResult
	if code := postJSON(t, h, "/v1/corrections",
		`{"value":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IGPM"}`, &estimated); code != http.StatusOK {
		t.Fatalf("IGPM status = %d, expected %d", code, http.StatusOK)
	}
	if !estimated.IsEstimate {
		t.Error("IGPM IsEstimate = false, expected an estimate while the series is down")
	}
	// The configured fallback override of 0.6%/month over three months.
	testutil.RequireDecimal(t, "IGPM CorrectedValue", "1018.11", estimated.CorrectedValue)
	if estimated.Source != "estimativa (taxa média mensal)" {
		t.Errorf("IGPM Source = %q, expected the estimate label", estimated.Source)
	}
	if estimated.Observation == "" {
		t.Error("IGPM Observation is empty, expected the estimate caveat")
	}

	var live correctionResult
	if code := postJSON(t, h, "/v1/corrections",
		`{"value":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IPCA"}`, &live); code != http.StatusOK {
		t.Fatalf("IPCA status = %d, expected %d", code, http.StatusOK)
	}
	if live.IsEstimate {
		t.Error("IPCA IsEstimate = true, expected live data")
	}
	testutil.RequireDecimal(t, "IPCA CorrectedValue", "1013.02", live.CorrectedValue)
}

// TestCurrentIndicesPartialDegradation verifies the snapshot endpoint reports
// per-index estimates instead of failing the whole panel.
func TestCurrentIndicesPartialDegradation(t *testing.T) {
	h := newStack(t, fakeSGS(map[string]bool{"189": true}))

	var resp struct {
		Indices map[string]snapshotResult `json:"indices"`
	}
	if code := getJSON(t, h, "/v1/indices/current", &resp); code != http.StatusOK {
		t.Fatalf("status = %d, expected %d", code, http.StatusOK)
	}
	if len(resp.Indices) != 5 {
		t.Fatalf("got %d snapshots, expected 5", len(resp.Indices))
	}

	igpm := resp.Indices["IGPM"]
	if !igpm.IsEstimate {
		t.Error("IGPM IsEstimate = false, expected an estimate while the series is down")
	}
	testutil.RequireDecimal(t, "IGPM value", "0.6", igpm.Value)
	if igpm.Date != "" {
		t.Errorf("IGPM Date = %q, expected empty for estimates", igpm.Date)
	}

	for _, code := range []string{"IPCA", "INPC", "TR", "SELIC"} {
		snapshot := resp.Indices[code]
		if snapshot.IsEstimate {
			t.Errorf("%s IsEstimate = true, expected live data", code)
		}
		testutil.RequireDecimal(t, code+" value", "0.26", snapshot.Value)
		if snapshot.Date != "2026-07-01" {
			t.Errorf("%s Date = %q, expected %q", code, snapshot.Date, "2026-07-01")
		}
	}
}

// TestInterestEndToEnd exercises the standalone interest endpoint with a
// custom rate through the loaded configuration.
func TestInterestEndToEnd(t *testing.T) {
	h := newStack(t, fakeSGS(nil))

	var result interestResult
	if code := postJSON(t, h, "/v1/interest",
		`{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-01","regime":"custom","monthlyRate":"2.00"}`, &result); code != http.StatusOK {
		t.Fatalf("status = %d, expected %d", code, http.StatusOK)
	}

	testutil.RequireDecimal(t, "Interest", "40", result.Interest)
	testutil.RequireDecimal(t, "Total", "1040", result.Total)
	testutil.RequireDecimal(t, "Percent", "4", result.Percent)
	testutil.RequireDecimal(t, "Months", "2", result.Months)
}

// TestFeesEndToEnd exercises the fee endpoint through the full stack.
func TestFeesEndToEnd(t *testing.T) {
	h := newStack(t, fakeSGS(nil))

	var result feeResult
	if code := postJSON(t, h, "/v1/fees",
		`{"caseValue":"50000","kind":"contingency","contingencyPercent":"30"}`, &result); code != http.StatusOK {
		t.Fatalf("status = %d, expected %d", code, http.StatusOK)
	}

	testutil.RequireDecimal(t, "Fee", "15000", result.Fee)
}

// TestHealthAndVersion checks the operational endpoints of the wired stack.
func TestHealthAndVersion(t *testing.T) {
	h := newStack(t, fakeSGS(nil))

	var health map[string]string
	if code := getJSON(t, h, "/health", &health); code != http.StatusOK {
		t.Fatalf("health status = %d, expected %d", code, http.StatusOK)
	}
	if health["status"] != "ok" {
		t.Errorf("health status = %q, expected %q", health["status"], "ok")
	}

	var version map[string]string
	if code := getJSON(t, h, "/v1/version", &version); code != http.StatusOK {
		t.Fatalf("version status = %d, expected %d", code, http.StatusOK)
	}
	if version["version"] != "integration" {
		t.Errorf("version = %q, expected %q", version["version"], "integration")
	}
}
