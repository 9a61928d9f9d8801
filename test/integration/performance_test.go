package integration

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

// TestPerformance tests performance characteristics of the wired stack.
func TestPerformance(t *testing.T) {
	start := time.Now()
	h := newStack(t, fakeSGS(nil))
	buildTime := time.Since(start)

	const requests = 50
	body := `{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IPCA","regime":"civil","applyInterest":true}`

	start = time.Now()
	for i := 0; i < requests; i++ {
		var result calculationResult
		if code := postJSON(t, h, "/v1/calculations", body, &result); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, expected %d", i, code, http.StatusOK)
		}
	}
	serveTime := time.Since(start)

	totalTime := buildTime + serveTime

	t.Logf("Performance metrics:")
	t.Logf("  Build stack: %v", buildTime)
	t.Logf("  Serve %d calculations: %v", requests, serveTime)
	t.Logf("  Total time: %v", totalTime)

	// Performance expectations (adjust as needed)
	if totalTime > 10*time.Second {
		t.Errorf("Total processing time %v exceeds 10 second threshold", totalTime)
	}
}

// TestMemoryUsage performs basic memory usage validation by rebuilding the
// stack repeatedly.
func TestMemoryUsage(t *testing.T) {
	for i := 0; i < 10; i++ {
		h := newStack(t, fakeSGS(nil))

		var result correctionResult
		if code := postJSON(t, h, "/v1/corrections",
			`{"value":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IPCA"}`, &result); code != http.StatusOK {
			t.Fatalf("iteration %d: status = %d, expected %d", i, code, http.StatusOK)
		}
	}

	t.Log("Successfully completed 10 iterations without memory issues")
}

// TestDataConsistency validates that repeated identical requests produce
// identical monetary results.
func TestDataConsistency(t *testing.T) {
	h := newStack(t, fakeSGS(nil))
	body := `{"principal":"1000","startDate":"2024-01-01","endDate":"2024-03-31","index":"IPCA","regime":"civil","applyInterest":true}`

	var first calculationResult
	for run := 0; run < 3; run++ {
		var result calculationResult
		if code := postJSON(t, h, "/v1/calculations", body, &result); code != http.StatusOK {
			t.Fatalf("run %d: status = %d, expected %d", run, code, http.StatusOK)
		}

		if run == 0 {
			first = result
			continue
		}

		if !result.CorrectedValue.Equal(first.CorrectedValue) {
			t.Errorf("run %d: CorrectedValue = %s, expected %s", run, result.CorrectedValue, first.CorrectedValue)
		}
		if !result.InterestAmount.Equal(first.InterestAmount) {
			t.Errorf("run %d: InterestAmount = %s, expected %s", run, result.InterestAmount, first.InterestAmount)
		}
		if !result.FinalValue.Equal(first.FinalValue) {
			t.Errorf("run %d: FinalValue = %s, expected %s", run, result.FinalValue, first.FinalValue)
		}
		if !result.Factor.Equal(first.Factor) {
			t.Errorf("run %d: Factor = %s, expected %s", run, result.Factor, first.Factor)
		}
		if result.ReferenceID == first.ReferenceID {
			t.Errorf("run %d: ReferenceID repeated, expected a fresh identifier per calculation", run)
		}
	}

	t.Log("Data consistency verified across repeated calculations")
}
