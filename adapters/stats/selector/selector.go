// Package selector chooses exactly one hypothesis test for a metric.
// Selection is a pure function of (metric kind, variant count,
// normality, skewness): identical inputs always produce the identical
// test name.
package selector

import (
	"math"

	"ablab/adapters/stats/suite"
	"ablab/domain/experiment"
	domstats "ablab/domain/stats"
)

// SkewnessCutoff is the |skewness| above which a nominally normal
// sample is still routed to a rank-based test.
const SkewnessCutoff = 1.0

// Decision is the selector's output for one metric
type Decision struct {
	Test      domstats.TestName
	Normality *suite.NormalityResult // nil for binary/categorical metrics
}

// Select picks the test for a metric given its declared kind, the
// number of variants, and the combined empirical sample across
// variants (used only for the normality probe on numeric metrics).
func Select(kind experiment.MetricKind, variantCount int, combined []float64) (Decision, error) {
	switch kind {
	case experiment.KindBinary:
		if variantCount == 2 {
			return Decision{Test: domstats.TestTwoProportionZ}, nil
		}
		return Decision{Test: domstats.TestChiSquare}, nil

	case experiment.KindCategorical:
		return Decision{Test: domstats.TestChiSquare}, nil

	case experiment.KindContinuous, experiment.KindCount:
		normality, err := suite.CheckNormality(combined)
		if err != nil {
			return Decision{}, err
		}
		parametric := normality.IsNormal && math.Abs(normality.Skewness) < SkewnessCutoff
		if parametric {
			if variantCount == 2 {
				return Decision{Test: domstats.TestWelchT, Normality: normality}, nil
			}
			return Decision{Test: domstats.TestOneWayANOVA, Normality: normality}, nil
		}
		if variantCount == 2 {
			return Decision{Test: domstats.TestMannWhitneyU, Normality: normality}, nil
		}
		return Decision{Test: domstats.TestKruskalWallisH, Normality: normality}, nil

	default:
		return Decision{Test: domstats.TestChiSquare}, nil
	}
}

// Fallback returns the rank-based test that replaces a parametric test
// whose computation degenerated (zero variance): Welch falls back to
// Mann-Whitney, ANOVA to Kruskal-Wallis.
func Fallback(test domstats.TestName) (domstats.TestName, bool) {
	switch test {
	case domstats.TestWelchT:
		return domstats.TestMannWhitneyU, true
	case domstats.TestOneWayANOVA:
		return domstats.TestKruskalWallisH, true
	default:
		return "", false
	}
}
