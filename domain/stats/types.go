package stats

import (
	"fmt"
	"sort"

	"ablab/domain/core"
	"ablab/domain/experiment"
)

// TestName identifies a hypothesis test in the suite
type TestName string

const (
	TestTwoProportionZ TestName = "two_proportion_ztest"
	TestWelchT         TestName = "welch_ttest"
	TestMannWhitneyU   TestName = "mann_whitney_u"
	TestKruskalWallisH TestName = "kruskal_wallis_h"
	TestOneWayANOVA    TestName = "one_way_anova"
	TestChiSquare      TestName = "chi_square_independence"
)

// EffectSizeKind declares the unit of a reported effect size
type EffectSizeKind string

const (
	EffectRelativeLift EffectSizeKind = "relative_lift"
	EffectCohensD      EffectSizeKind = "cohens_d"
	EffectRankBiserial EffectSizeKind = "rank_biserial_r"
	EffectEpsilonSq    EffectSizeKind = "epsilon_squared"
	EffectEtaSq        EffectSizeKind = "eta_squared"
	EffectCramersV     EffectSizeKind = "cramers_v"
)

// VariantSummary holds per-variant descriptive statistics attached to
// every test result.
type VariantSummary struct {
	Variant core.VariantKey `json:"variant"`
	N       int             `json:"n"`
	Mean    float64         `json:"mean"`
	Median  float64         `json:"median"`
	StdDev  float64         `json:"std_dev"`
	Min     float64         `json:"min"`
	Max     float64         `json:"max"`
}

// ConfidenceInterval is a two-sided interval on the raw difference
type ConfidenceInterval struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PairwiseComparison is one post-hoc Mann-Whitney comparison inside a
// Kruskal-Wallis result. Its corrected p-value is Holm-adjusted within
// the pairwise family only.
type PairwiseComparison struct {
	VariantA    core.VariantKey `json:"variant_a"`
	VariantB    core.VariantKey `json:"variant_b"`
	UStatistic  float64         `json:"u_statistic"`
	RawPValue   float64         `json:"raw_p_value"`
	CorrectedP  float64         `json:"corrected_p_value"`
	Significant bool            `json:"significant"`
}

// TestResult is the outcome of one (experiment, metric) hypothesis test.
// CorrectedPValue and Significant are filled in by the corrector; the
// invariant CorrectedPValue >= RawPValue always holds afterwards.
type TestResult struct {
	ExperimentID    core.ExperimentID     `json:"experiment_id"`
	Metric          core.MetricKey        `json:"metric"`
	MetricKind      experiment.MetricKind `json:"metric_kind"`
	Test            TestName              `json:"test"`
	Statistic       float64               `json:"statistic"`
	RawPValue       float64               `json:"raw_p_value"`
	CorrectedPValue float64               `json:"corrected_p_value"`
	EffectSize      float64               `json:"effect_size"`
	EffectSizeKind  EffectSizeKind        `json:"effect_size_kind"`
	Significant     bool                  `json:"significant"`
	SampleSize      int                   `json:"sample_size"`
	DegreesFreedom  float64               `json:"degrees_of_freedom,omitempty"`
	Summaries       []VariantSummary      `json:"summaries,omitempty"`
	Interval        *ConfidenceInterval   `json:"confidence_interval,omitempty"`
	Pairwise        []PairwiseComparison  `json:"pairwise,omitempty"`
	FellBack        bool                  `json:"fell_back,omitempty"`

	// declOrder is the metric's position in the experiment's metric
	// declarations, used to break p-value ties deterministically.
	declOrder int
}

// NewTestResult validates the core invariants before construction
func NewTestResult(experimentID core.ExperimentID, metric core.MetricKey, test TestName,
	statistic, pValue float64, sampleSize int) (*TestResult, error) {
	if sampleSize <= 0 {
		return nil, fmt.Errorf("sample size must be > 0, got %d", sampleSize)
	}
	if pValue < 0.0 || pValue > 1.0 {
		return nil, fmt.Errorf("p-value must be in [0.0, 1.0], got %f", pValue)
	}
	return &TestResult{
		ExperimentID: experimentID,
		Metric:       metric,
		Test:         test,
		Statistic:    statistic,
		RawPValue:    pValue,
		SampleSize:   sampleSize,
	}, nil
}

// SetDeclOrder records the metric declaration position for tie-breaking
func (r *TestResult) SetDeclOrder(order int) { r.declOrder = order }

// DeclOrder returns the metric declaration position
func (r *TestResult) DeclOrder() int { return r.declOrder }

// SkippedMetric records a metric that could not be tested
// (InsufficientData): recorded, not fatal to the experiment.
type SkippedMetric struct {
	Metric core.MetricKey `json:"metric"`
	Reason string         `json:"reason"`
}

// CorrectionBatch is the set of test results for one experiment,
// ordered ascending by raw p-value before correction. The ordering is
// part of the algorithm; ties break by metric declaration order.
type CorrectionBatch struct {
	ExperimentID core.ExperimentID
	Results      []*TestResult
}

// NewCorrectionBatch sorts the results into correction order
func NewCorrectionBatch(experimentID core.ExperimentID, results []*TestResult) *CorrectionBatch {
	sorted := make([]*TestResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RawPValue != sorted[j].RawPValue {
			return sorted[i].RawPValue < sorted[j].RawPValue
		}
		return sorted[i].declOrder < sorted[j].declOrder
	})
	return &CorrectionBatch{ExperimentID: experimentID, Results: sorted}
}

// Len returns the number of hypotheses in the batch
func (b *CorrectionBatch) Len() int { return len(b.Results) }

// SignificantCount returns how many hypotheses survived correction
func (b *CorrectionBatch) SignificantCount() int {
	n := 0
	for _, r := range b.Results {
		if r.Significant {
			n++
		}
	}
	return n
}
