// Package analysis orchestrates one experiment end to end: the
// validation battery gates the dataset, the selector picks one test
// per metric, the suite runs it, and the Holm correction is applied
// across the experiment's metric family.
package analysis

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"ablab/adapters/stats/selector"
	"ablab/adapters/stats/suite"
	"ablab/domain/core"
	"ablab/domain/experiment"
	domstats "ablab/domain/stats"
	"ablab/domain/verdict"
	"ablab/internal/correction"
	apperrors "ablab/internal/errors"
	"ablab/internal/validation"
)

// Analysis is the complete outcome for one experiment
type Analysis struct {
	ExperimentID core.ExperimentID        `json:"experiment_id"`
	RunID        core.RunID               `json:"run_id"`
	Config       *experiment.Config       `json:"-"`
	Validation   *verdict.Report          `json:"validation"`
	Results      []*domstats.TestResult   `json:"results,omitempty"`
	Skipped      []domstats.SkippedMetric `json:"skipped,omitempty"`
	Correction   string                   `json:"correction,omitempty"`
	Alpha        float64                  `json:"alpha"`
	CreatedAt    core.Timestamp           `json:"created_at"`
}

// Tested reports whether the validation gate allowed hypothesis testing
func (a *Analysis) Tested() bool {
	return a.Validation != nil && !a.Validation.Blocked()
}

// SignificantResults returns results surviving correction, in rank order
func (a *Analysis) SignificantResults() []*domstats.TestResult {
	var out []*domstats.TestResult
	for _, r := range a.Results {
		if r.Significant {
			out = append(out, r)
		}
	}
	return out
}

// Pipeline wires the validation engine to the statistical suite
type Pipeline struct {
	validator *validation.Engine
}

// NewPipeline creates a pipeline with default validation thresholds
func NewPipeline() *Pipeline {
	return &Pipeline{validator: validation.NewEngine()}
}

// NewPipelineWithValidator creates a pipeline with a custom validation engine
func NewPipelineWithValidator(v *validation.Engine) *Pipeline {
	return &Pipeline{validator: v}
}

// Analyze validates a dataset and, when the gate passes, runs one
// hypothesis test per declared metric followed by the Holm correction.
// A blocked experiment returns its validation report with no results.
func (p *Pipeline) Analyze(ds *experiment.Dataset, cfg *experiment.Config) (*Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "invalid experiment config")
	}

	runID := core.RunID(core.NewID())
	report := p.validator.Run(runID, ds, cfg)

	analysis := &Analysis{
		ExperimentID: ds.ExperimentID,
		RunID:        runID,
		Config:       cfg,
		Validation:   report,
		Alpha:        cfg.Alpha,
		CreatedAt:    core.Now(),
	}

	if report.Blocked() {
		log.Printf("[Analysis] experiment=%s blocked by validation, skipping hypothesis tests", ds.ExperimentID)
		return analysis, nil
	}

	var results []*domstats.TestResult
	for i, m := range cfg.Metrics {
		result, err := p.testMetric(ds, cfg, m)
		if err != nil {
			// A metric that cannot be tested (too few observations, or
			// degenerate even for the rank-based fallback) is recorded
			// and skipped; it never sinks the experiment.
			if apperrors.IsCode(err, apperrors.CodeInsufficientData) || apperrors.IsCode(err, apperrors.CodeComputationError) {
				analysis.Skipped = append(analysis.Skipped, domstats.SkippedMetric{
					Metric: m.Key,
					Reason: err.Error(),
				})
				log.Printf("[Analysis] experiment=%s metric=%s skipped: %v", ds.ExperimentID, m.Key, err)
				continue
			}
			return nil, apperrors.Wrapf(err, "testing metric %s", m.Key)
		}
		result.SetDeclOrder(i)
		results = append(results, result)
	}

	batch := domstats.NewCorrectionBatch(ds.ExperimentID, results)
	correction.Apply(batch, cfg.Alpha)
	analysis.Results = batch.Results
	analysis.Correction = correction.Method

	log.Printf("[Analysis] experiment=%s tested=%d skipped=%d significant=%d",
		ds.ExperimentID, batch.Len(), len(analysis.Skipped), batch.SignificantCount())
	return analysis, nil
}

// Item pairs one dataset with its experiment configuration
type Item struct {
	Dataset *experiment.Dataset
	Config  *experiment.Config
}

// AnalyzeAll runs the pipeline over several experiments concurrently.
// Each experiment is an independent family for correction purposes.
// The first hard error cancels the remaining work.
func (p *Pipeline) AnalyzeAll(ctx context.Context, items []Item) ([]*Analysis, error) {
	analyses := make([]*Analysis, len(items))
	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			a, err := p.Analyze(item.Dataset, item.Config)
			if err != nil {
				return err
			}
			analyses[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return analyses, nil
}

// testMetric selects and runs exactly one test for the metric and
// assembles the domain result. A degenerate parametric computation
// falls back to the matching rank-based test.
func (p *Pipeline) testMetric(ds *experiment.Dataset, cfg *experiment.Config, m experiment.MetricDescriptor) (*domstats.TestResult, error) {
	variants := ds.Variants()
	byVariant := ds.MetricByVariant(m.Key)

	groups := make([][]float64, 0, len(variants))
	keys := make([]core.VariantKey, 0, len(variants))
	combined := make([]float64, 0, ds.Len())
	for _, v := range variants {
		values := byVariant[v]
		groups = append(groups, values)
		keys = append(keys, v)
		combined = append(combined, values...)
	}
	if len(keys) < 2 {
		return nil, apperrors.InsufficientData("fewer than 2 variants with observations")
	}

	decision, err := selector.Select(m.Kind, len(keys), combined)
	if err != nil {
		return nil, err
	}

	result, err := p.runTest(decision.Test, ds.ExperimentID, m, keys, groups, cfg)
	if err != nil && apperrors.IsCode(err, apperrors.CodeComputationError) {
		if fallback, ok := selector.Fallback(decision.Test); ok {
			log.Printf("[Analysis] experiment=%s metric=%s %s degenerated, falling back to %s",
				ds.ExperimentID, m.Key, decision.Test, fallback)
			result, err = p.runTest(fallback, ds.ExperimentID, m, keys, groups, cfg)
			if result != nil {
				result.FellBack = true
			}
		}
	}
	return result, err
}

func (p *Pipeline) runTest(test domstats.TestName, id core.ExperimentID, m experiment.MetricDescriptor,
	keys []core.VariantKey, groups [][]float64, cfg *experiment.Config) (*domstats.TestResult, error) {

	total := 0
	for _, g := range groups {
		total += len(g)
	}

	switch test {
	case domstats.TestTwoProportionZ:
		sA, nA := suite.BinaryCounts(groups[0])
		sB, nB := suite.BinaryCounts(groups[1])
		res, err := suite.TwoProportionZTest(sA, nA, sB, nB)
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.ZStatistic, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.RelativeLift
		out.EffectSizeKind = domstats.EffectRelativeLift
		out.Interval = &domstats.ConfidenceInterval{Level: 0.95, Lower: res.CILower, Upper: res.CIUpper}
		out.Summaries = []domstats.VariantSummary{
			suite.Summarize(keys[0], groups[0]),
			suite.Summarize(keys[1], groups[1]),
		}
		return out, nil

	case domstats.TestWelchT:
		res, err := suite.WelchTTest(groups[0], groups[1], cfg.Alpha)
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.TStatistic, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.CohensD
		out.EffectSizeKind = domstats.EffectCohensD
		out.DegreesFreedom = res.DegreesFreedom
		out.Interval = &domstats.ConfidenceInterval{Level: 1 - cfg.Alpha, Lower: res.CILower, Upper: res.CIUpper}
		out.Summaries = []domstats.VariantSummary{
			suite.Summarize(keys[0], groups[0]),
			suite.Summarize(keys[1], groups[1]),
		}
		return out, nil

	case domstats.TestMannWhitneyU:
		res, err := suite.MannWhitneyU(groups[0], groups[1])
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.UStatistic, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.RankBiserial
		out.EffectSizeKind = domstats.EffectRankBiserial
		out.Summaries = []domstats.VariantSummary{
			suite.Summarize(keys[0], groups[0]),
			suite.Summarize(keys[1], groups[1]),
		}
		return out, nil

	case domstats.TestOneWayANOVA:
		res, err := suite.OneWayANOVA(keys, groups)
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.FStatistic, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.EtaSquared
		out.EffectSizeKind = domstats.EffectEtaSq
		out.DegreesFreedom = res.DFBetween
		out.Summaries = res.Summaries
		return out, nil

	case domstats.TestKruskalWallisH:
		res, err := suite.KruskalWallisH(keys, groups)
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.HStatistic, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.EpsilonSquared
		out.EffectSizeKind = domstats.EffectEpsilonSq
		out.DegreesFreedom = res.DegreesFreedom
		out.Summaries = res.Summaries
		out.Pairwise = correctPairwise(res.Pairwise, cfg.Alpha)
		return out, nil

	case domstats.TestChiSquare:
		table := suite.ContingencyTable(keys, groups)
		res, err := suite.ChiSquareIndependence(table)
		if err != nil {
			return nil, err
		}
		out, err := domstats.NewTestResult(id, m.Key, test, res.ChiSquare, res.PValue, total)
		if err != nil {
			return nil, err
		}
		out.MetricKind = m.Kind
		out.EffectSize = res.CramersV
		out.EffectSizeKind = domstats.EffectCramersV
		out.DegreesFreedom = res.DegreesFreedom
		summaries := make([]domstats.VariantSummary, 0, len(keys))
		for i, k := range keys {
			summaries = append(summaries, suite.Summarize(k, groups[i]))
		}
		out.Summaries = summaries
		return out, nil

	default:
		return nil, apperrors.InternalError("unknown test: " + string(test))
	}
}

// correctPairwise applies a Holm correction scoped to the post-hoc
// pairwise family, independent of the experiment-level correction.
func correctPairwise(pairs []domstats.PairwiseComparison, alpha float64) []domstats.PairwiseComparison {
	if len(pairs) == 0 {
		return pairs
	}
	raw := make([]float64, len(pairs))
	for i, pc := range pairs {
		raw[i] = pc.RawPValue
	}
	corrected, significant := correction.AdjustPValues(raw, alpha)
	out := make([]domstats.PairwiseComparison, len(pairs))
	copy(out, pairs)
	for i := range out {
		out[i].CorrectedP = corrected[i]
		out[i].Significant = significant[i]
	}
	return out
}
