package suite

import (
	"math"
	"testing"

	"ablab/domain/core"
	"ablab/internal/errors"
)

func seqFloats(from, to int) []float64 {
	out := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, float64(i))
	}
	return out
}

// TestTwoProportionZTest_ConversionDrop covers a realistic checkout
// experiment: 30% control conversion against 27% treatment at 3500
// sessions per arm.
func TestTwoProportionZTest_ConversionDrop(t *testing.T) {
	result, err := TwoProportionZTest(1050, 3500, 945, 3500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(result.ZStatistic-(-2.78)) > 0.05 {
		t.Errorf("expected z near -2.78, got %f", result.ZStatistic)
	}
	if result.PValue >= 0.01 || result.PValue <= 0.001 {
		t.Errorf("expected p in (0.001, 0.01), got %f", result.PValue)
	}
	if math.Abs(result.RelativeLift-(-0.10)) > 1e-9 {
		t.Errorf("expected relative lift -0.10, got %f", result.RelativeLift)
	}
	if result.CILower >= result.CIUpper {
		t.Errorf("interval inverted: [%f, %f]", result.CILower, result.CIUpper)
	}
	if result.CIUpper >= 0 {
		t.Errorf("a 2.78-sigma drop should exclude zero, upper=%f", result.CIUpper)
	}
}

func TestTwoProportionZTest_NoDifference(t *testing.T) {
	result, err := TwoProportionZTest(300, 1000, 300, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ZStatistic != 0 {
		t.Errorf("identical rates should give z=0, got %f", result.ZStatistic)
	}
	if math.Abs(result.PValue-1.0) > 1e-9 {
		t.Errorf("identical rates should give p=1, got %f", result.PValue)
	}
}

func TestTwoProportionZTest_Degenerate(t *testing.T) {
	if _, err := TwoProportionZTest(0, 1000, 0, 1000); !errors.IsCode(err, errors.CodeComputationError) {
		t.Errorf("zero conversions everywhere should be a computation error, got %v", err)
	}
	if _, err := TwoProportionZTest(3, 1, 0, 1000); !errors.IsCode(err, errors.CodeInsufficientData) {
		t.Errorf("single observation should be insufficient data, got %v", err)
	}
}

func TestWelchTTest_ShiftedGroups(t *testing.T) {
	groupA := seqFloats(1, 20)
	groupB := seqFloats(5, 24)

	result, err := WelchTTest(groupA, groupB, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TStatistic <= 0 {
		t.Errorf("B shifted up should give positive t on the B-A difference, got %f", result.TStatistic)
	}
	if result.PValue < 0.01 || result.PValue > 0.07 {
		t.Errorf("expected p around 0.04 for a 4-unit shift, got %f", result.PValue)
	}
	if math.Abs(result.MeanDiff-4.0) > 1e-9 {
		t.Errorf("expected mean difference 4, got %f", result.MeanDiff)
	}
	if result.CohensD <= 0 {
		t.Errorf("expected positive Cohen's d, got %f", result.CohensD)
	}
	// Equal variances: Welch df should land near the pooled df of 38
	if result.DegreesFreedom < 37 || result.DegreesFreedom > 38.01 {
		t.Errorf("expected df near 38, got %f", result.DegreesFreedom)
	}
	if result.CILower > 4 || result.CIUpper < 4 {
		t.Errorf("interval [%f, %f] should contain the observed difference", result.CILower, result.CIUpper)
	}
}

func TestWelchTTest_ZeroVariance(t *testing.T) {
	groupA := []float64{5, 5, 5, 5}
	groupB := []float64{5, 5, 5, 5}
	if _, err := WelchTTest(groupA, groupB, 0.05); !errors.IsCode(err, errors.CodeComputationError) {
		t.Errorf("zero variance in both groups should be a computation error, got %v", err)
	}
}

func TestMannWhitneyU_CompleteSeparation(t *testing.T) {
	groupA := seqFloats(1, 10)
	groupB := seqFloats(11, 20)

	result, err := MannWhitneyU(groupA, groupB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.UStatistic != 0 {
		t.Errorf("complete separation should give U=0, got %f", result.UStatistic)
	}
	if math.Abs(result.RankBiserial-1.0) > 1e-9 {
		t.Errorf("complete separation should give |r|=1, got %f", result.RankBiserial)
	}
	if result.PValue >= 0.001 {
		t.Errorf("expected p < 0.001, got %f", result.PValue)
	}
	if result.MedianA != 5.5 || result.MedianB != 15.5 {
		t.Errorf("unexpected medians: %f, %f", result.MedianA, result.MedianB)
	}
}

func TestMannWhitneyU_IdenticalGroups(t *testing.T) {
	group := seqFloats(1, 30)
	result, err := MannWhitneyU(group, group)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PValue < 0.9 {
		t.Errorf("identical groups should give p near 1, got %f", result.PValue)
	}
	if math.Abs(result.RankBiserial) > 1e-9 {
		t.Errorf("identical groups should give r=0, got %f", result.RankBiserial)
	}
}

// The rank-sum test on 0/1 data and the two-proportion z-test are
// asymptotically the same test; at thousands of sessions per arm their
// p-values must agree closely.
func TestMannWhitneyU_AgreesWithZTestOnBinaryData(t *testing.T) {
	makeBinary := func(ones, n int) []float64 {
		out := make([]float64, n)
		for i := 0; i < ones; i++ {
			out[i] = 1
		}
		return out
	}
	groupA := makeBinary(1050, 3500) // 30%
	groupB := makeBinary(945, 3500)  // 27%

	mw, err := MannWhitneyU(groupA, groupB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zt, err := TwoProportionZTest(1050, 3500, 945, 3500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(mw.PValue-zt.PValue) > 0.005 {
		t.Errorf("p-values diverge: Mann-Whitney %f vs z-test %f", mw.PValue, zt.PValue)
	}
	if mw.PValue >= 0.01 {
		t.Errorf("expected Mann-Whitney to agree the drop is significant, p=%f", mw.PValue)
	}
}

// Identical inputs reproduce identical outputs: the tests hold no state
func TestTwoProportionZTest_Deterministic(t *testing.T) {
	first, err := TwoProportionZTest(1050, 3500, 945, 3500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := TwoProportionZTest(1050, 3500, 945, 3500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ZStatistic != second.ZStatistic || first.PValue != second.PValue {
		t.Errorf("repeated runs diverged: %+v vs %+v", first, second)
	}
}

func TestKruskalWallisH_ThreeSeparatedGroups(t *testing.T) {
	variants := []core.VariantKey{"control", "variant_b", "variant_c"}
	groups := [][]float64{seqFloats(1, 10), seqFloats(11, 20), seqFloats(21, 30)}

	result, err := KruskalWallisH(variants, groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.HStatistic-25.806) > 0.01 {
		t.Errorf("expected H near 25.806, got %f", result.HStatistic)
	}
	if result.PValue >= 0.001 {
		t.Errorf("expected p < 0.001, got %f", result.PValue)
	}
	if result.EpsilonSquared < 0.8 {
		t.Errorf("expected large epsilon squared, got %f", result.EpsilonSquared)
	}
	if len(result.Pairwise) != 3 {
		t.Fatalf("expected 3 pairwise comparisons, got %d", len(result.Pairwise))
	}
	for _, pc := range result.Pairwise {
		if pc.RawPValue >= 0.01 {
			t.Errorf("pairwise %s vs %s should be clearly separated, p=%f",
				pc.VariantA, pc.VariantB, pc.RawPValue)
		}
	}
	if len(result.Summaries) != 3 {
		t.Errorf("expected 3 variant summaries, got %d", len(result.Summaries))
	}
}

func TestKruskalWallisH_RequiresThreeGroups(t *testing.T) {
	variants := []core.VariantKey{"a", "b"}
	groups := [][]float64{seqFloats(1, 10), seqFloats(11, 20)}
	if _, err := KruskalWallisH(variants, groups); !errors.IsCode(err, errors.CodeComputationError) {
		t.Errorf("two groups should be rejected, got %v", err)
	}
}

func TestOneWayANOVA_ThreeSeparatedGroups(t *testing.T) {
	variants := []core.VariantKey{"control", "variant_b", "variant_c"}
	groups := [][]float64{seqFloats(1, 10), seqFloats(11, 20), seqFloats(21, 30)}

	result, err := OneWayANOVA(variants, groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.FStatistic-109.09) > 0.1 {
		t.Errorf("expected F near 109.09, got %f", result.FStatistic)
	}
	if result.PValue >= 1e-6 {
		t.Errorf("expected vanishing p, got %g", result.PValue)
	}
	if result.EtaSquared < 0.88 || result.EtaSquared > 0.90 {
		t.Errorf("expected eta squared near 0.89, got %f", result.EtaSquared)
	}
	if result.DFBetween != 2 {
		t.Errorf("expected 2 between-group df, got %f", result.DFBetween)
	}
}

func TestChiSquareIndependence_KnownTable(t *testing.T) {
	table := [][]float64{
		{30, 70},
		{70, 30},
	}
	result, err := ChiSquareIndependence(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(result.ChiSquare-32.0) > 1e-9 {
		t.Errorf("expected chi-square 32, got %f", result.ChiSquare)
	}
	if math.Abs(result.CramersV-0.4) > 1e-9 {
		t.Errorf("expected Cramer's V 0.4, got %f", result.CramersV)
	}
	if result.DegreesFreedom != 1 {
		t.Errorf("expected 1 df, got %f", result.DegreesFreedom)
	}
	if result.PValue >= 0.001 {
		t.Errorf("expected p < 0.001, got %f", result.PValue)
	}
}

func TestChiSquareIndependence_UniformTable(t *testing.T) {
	table := [][]float64{
		{50, 50},
		{50, 50},
	}
	result, err := ChiSquareIndependence(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ChiSquare != 0 {
		t.Errorf("identical rows should give chi-square 0, got %f", result.ChiSquare)
	}
	if result.PValue < 0.999 {
		t.Errorf("identical rows should give p=1, got %f", result.PValue)
	}
}

func TestBinaryCounts(t *testing.T) {
	successes, n := BinaryCounts([]float64{1, 0, 1, 1, 0})
	if successes != 3 || n != 5 {
		t.Errorf("expected 3/5, got %d/%d", successes, n)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("control", seqFloats(1, 9))
	if s.N != 9 || s.Mean != 5 || s.Median != 5 || s.Min != 1 || s.Max != 9 {
		t.Errorf("unexpected summary: %+v", s)
	}
}
