package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ablab/domain/core"
	"ablab/domain/experiment"
	domstats "ablab/domain/stats"
	"ablab/internal/testkit"
)

func syntheticExperiment(t *testing.T) (*experiment.Dataset, *experiment.Config) {
	t.Helper()
	genCfg := testkit.DefaultConfig()
	genCfg.SessionCount = 3000
	gen := testkit.NewGenerator(genCfg)
	return gen.Generate(), gen.Config()
}

func TestAnalyze_EndToEnd(t *testing.T) {
	ds, cfg := syntheticExperiment(t)

	a, err := NewPipeline().Analyze(ds, cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Validation)
	require.Len(t, a.Validation.Verdicts, 7)
	require.True(t, a.Tested(), "balanced synthetic data should pass the gate")

	// One result per declared metric, none skipped
	require.Len(t, a.Results, 3)
	assert.Empty(t, a.Skipped)
	assert.Equal(t, "holm_bonferroni", a.Correction)

	byMetric := make(map[core.MetricKey]*domstats.TestResult)
	for _, r := range a.Results {
		byMetric[r.Metric] = r
	}

	converted := byMetric["converted"]
	require.NotNil(t, converted)
	assert.Equal(t, domstats.TestTwoProportionZ, converted.Test)
	assert.Equal(t, domstats.EffectRelativeLift, converted.EffectSizeKind)
	assert.NotNil(t, converted.Interval)
	assert.Len(t, converted.Summaries, 2)

	// Zero-inflated revenue must route to a rank-based test
	revenue := byMetric["revenue"]
	require.NotNil(t, revenue)
	assert.Equal(t, domstats.TestMannWhitneyU, revenue.Test)

	for _, r := range a.Results {
		assert.GreaterOrEqual(t, r.CorrectedPValue, r.RawPValue,
			"%s: correction must never shrink a p-value", r.Metric)
		assert.LessOrEqual(t, r.RawPValue, 1.0)
		assert.Positive(t, r.SampleSize)
	}

	// Batch is ordered ascending by raw p-value
	for i := 1; i < len(a.Results); i++ {
		assert.LessOrEqual(t, a.Results[i-1].RawPValue, a.Results[i].RawPValue)
	}
}

func TestAnalyze_BlockedExperimentSkipsTesting(t *testing.T) {
	ds, cfg := syntheticExperiment(t)
	// Shrink the window so every session lands outside it
	cfg.StartDate = core.NewTimestamp(cfg.EndDate.Time().AddDate(0, 1, 0))
	cfg.EndDate = core.NewTimestamp(cfg.EndDate.Time().AddDate(0, 2, 0))

	a, err := NewPipeline().Analyze(ds, cfg)
	require.NoError(t, err)
	assert.False(t, a.Tested())
	assert.Empty(t, a.Results)
	assert.Empty(t, a.Correction)
}

func TestAnalyze_SparseMetricIsSkippedNotFatal(t *testing.T) {
	ds, cfg := syntheticExperiment(t)
	cfg.Metrics = append(cfg.Metrics, experiment.MetricDescriptor{
		Key: "rare_event", Kind: experiment.KindBinary,
	})
	// Only one observation of the metric in the whole dataset
	ds.Sessions[0].Metrics["rare_event"] = 1

	a, err := NewPipeline().Analyze(ds, cfg)
	require.NoError(t, err)
	require.True(t, a.Tested())
	assert.Len(t, a.Results, 3, "the three dense metrics still get tested")
	require.Len(t, a.Skipped, 1)
	assert.Equal(t, core.MetricKey("rare_event"), a.Skipped[0].Metric)
}

func TestAnalyze_ConstantMetricIsSkipped(t *testing.T) {
	ds, cfg := syntheticExperiment(t)
	cfg.Metrics = append(cfg.Metrics, experiment.MetricDescriptor{
		Key: "flat", Kind: experiment.KindContinuous,
	})
	for i := range ds.Sessions {
		ds.Sessions[i].Metrics["flat"] = 5.0
	}

	a, err := NewPipeline().Analyze(ds, cfg)
	require.NoError(t, err)
	require.True(t, a.Tested())
	assert.Len(t, a.Results, 3)
	require.Len(t, a.Skipped, 1)
	assert.Equal(t, core.MetricKey("flat"), a.Skipped[0].Metric)
}

func TestAnalyze_InvalidConfigRejected(t *testing.T) {
	ds, cfg := syntheticExperiment(t)
	cfg.Allocation = map[core.VariantKey]float64{"control": 1.0}

	_, err := NewPipeline().Analyze(ds, cfg)
	require.Error(t, err)
}

func TestAnalyzeAll_IndependentFamilies(t *testing.T) {
	items := make([]Item, 0, 3)
	for seed := int64(1); seed <= 3; seed++ {
		genCfg := testkit.DefaultConfig()
		genCfg.Seed = seed
		genCfg.SessionCount = 1500
		genCfg.ExperimentID = core.ExperimentID("exp_batch_" + string(rune('a'+seed-1)))
		gen := testkit.NewGenerator(genCfg)
		items = append(items, Item{Dataset: gen.Generate(), Config: gen.Config()})
	}

	analyses, err := NewPipeline().AnalyzeAll(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, analyses, 3)
	for i, a := range analyses {
		assert.Equal(t, items[i].Dataset.ExperimentID, a.ExperimentID,
			"results must stay aligned with their inputs")
		require.NotNil(t, a.Validation)
	}

	// Distinct run IDs per experiment
	seen := make(map[core.RunID]bool)
	for _, a := range analyses {
		assert.False(t, seen[a.RunID], "run IDs must be unique")
		seen[a.RunID] = true
	}
}
