package correction

import (
	"math"
	"testing"

	"ablab/domain/core"
	domstats "ablab/domain/stats"
)

func makeResult(t *testing.T, metric string, p float64, declOrder int) *domstats.TestResult {
	t.Helper()
	r, err := domstats.NewTestResult("exp_test", core.MetricKey(metric), domstats.TestWelchT, 1.0, p, 100)
	if err != nil {
		t.Fatalf("building result: %v", err)
	}
	r.SetDeclOrder(declOrder)
	return r
}

// Four metrics with raw p-values [0, 0, 0.0675, 0.3354] at alpha 0.05:
// the step-down thresholds are 0.0125, 0.0167, 0.025, 0.05, so only
// the first two survive, and the corrected p-values are
// [0, 0, 0.135, 0.3354].
func TestApply_SteppedFamily(t *testing.T) {
	results := []*domstats.TestResult{
		makeResult(t, "conversion", 0.0, 0),
		makeResult(t, "revenue", 0.0, 1),
		makeResult(t, "page_views", 0.0675, 2),
		makeResult(t, "bounce", 0.3354, 3),
	}

	batch := domstats.NewCorrectionBatch("exp_test", results)
	Apply(batch, 0.05)

	wantCorrected := []float64{0, 0, 0.135, 0.3354}
	wantSignificant := []bool{true, true, false, false}
	for i, r := range batch.Results {
		if math.Abs(r.CorrectedPValue-wantCorrected[i]) > 1e-9 {
			t.Errorf("rank %d: corrected p = %f, want %f", i, r.CorrectedPValue, wantCorrected[i])
		}
		if r.Significant != wantSignificant[i] {
			t.Errorf("rank %d: significant = %v, want %v", i, r.Significant, wantSignificant[i])
		}
	}
	if batch.SignificantCount() != 2 {
		t.Errorf("expected 2 significant results, got %d", batch.SignificantCount())
	}
}

func TestApply_CorrectedNeverBelowRaw(t *testing.T) {
	results := []*domstats.TestResult{
		makeResult(t, "m1", 0.04, 0),
		makeResult(t, "m2", 0.01, 1),
		makeResult(t, "m3", 0.20, 2),
		makeResult(t, "m4", 0.03, 3),
		makeResult(t, "m5", 0.90, 4),
	}
	batch := domstats.NewCorrectionBatch("exp_test", results)
	Apply(batch, 0.05)

	prev := 0.0
	for _, r := range batch.Results {
		if r.CorrectedPValue < r.RawPValue {
			t.Errorf("%s: corrected %f below raw %f", r.Metric, r.CorrectedPValue, r.RawPValue)
		}
		if r.CorrectedPValue < prev {
			t.Errorf("%s: corrected p-values must be non-decreasing in rank order", r.Metric)
		}
		if r.CorrectedPValue > 1 {
			t.Errorf("%s: corrected p %f exceeds 1", r.Metric, r.CorrectedPValue)
		}
		prev = r.CorrectedPValue
	}
}

// Once one hypothesis fails its threshold, all later ranks are
// non-significant even if a later raw p would pass its own threshold.
func TestApply_StepDownStopsAtFirstFailure(t *testing.T) {
	results := []*domstats.TestResult{
		makeResult(t, "m1", 0.001, 0),
		makeResult(t, "m2", 0.04, 1),  // threshold 0.05/2 = 0.025: fails
		makeResult(t, "m3", 0.045, 2), // under 0.05 but blocked by m2
	}
	batch := domstats.NewCorrectionBatch("exp_test", results)
	Apply(batch, 0.05)

	if !batch.Results[0].Significant {
		t.Error("rank 0 should be significant")
	}
	if batch.Results[1].Significant || batch.Results[2].Significant {
		t.Error("ranks after the first failure must be non-significant")
	}
}

func TestApply_SingleHypothesis(t *testing.T) {
	results := []*domstats.TestResult{makeResult(t, "only", 0.03, 0)}
	batch := domstats.NewCorrectionBatch("exp_test", results)
	Apply(batch, 0.05)

	r := batch.Results[0]
	if r.CorrectedPValue != 0.03 {
		t.Errorf("single hypothesis needs no adjustment, got %f", r.CorrectedPValue)
	}
	if !r.Significant {
		t.Error("0.03 < 0.05 should be significant")
	}
}

func TestApply_TiesBreakByDeclarationOrder(t *testing.T) {
	results := []*domstats.TestResult{
		makeResult(t, "declared_second", 0.02, 1),
		makeResult(t, "declared_first", 0.02, 0),
	}
	batch := domstats.NewCorrectionBatch("exp_test", results)
	if batch.Results[0].Metric != "declared_first" {
		t.Errorf("tied p-values should order by declaration, got %s first", batch.Results[0].Metric)
	}
}

func TestAdjustPValues_PreservesInputOrder(t *testing.T) {
	raw := []float64{0.30, 0.001, 0.04}
	corrected, significant := AdjustPValues(raw, 0.05)

	if len(corrected) != 3 || len(significant) != 3 {
		t.Fatalf("unexpected lengths: %d, %d", len(corrected), len(significant))
	}
	// Smallest raw p gets the largest multiplier
	if math.Abs(corrected[1]-0.003) > 1e-9 {
		t.Errorf("expected 0.003 for the smallest raw p, got %f", corrected[1])
	}
	if !significant[1] {
		t.Error("0.001 should survive at alpha 0.05")
	}
	// 0.04 has threshold 0.05/2 = 0.025: fails and blocks nothing after it
	if significant[2] || significant[0] {
		t.Error("0.04 and 0.30 should not survive")
	}
	for i, c := range corrected {
		if c < raw[i] {
			t.Errorf("index %d: corrected %f below raw %f", i, c, raw[i])
		}
	}
}

func TestAdjustPValues_Empty(t *testing.T) {
	corrected, significant := AdjustPValues(nil, 0.05)
	if len(corrected) != 0 || len(significant) != 0 {
		t.Error("empty input should yield empty output")
	}
}
