package testkit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ablab/adapters/ingest"
	"ablab/domain/core"
)

func TestGenerator_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionCount = 500

	first := NewGenerator(cfg).Generate()
	second := NewGenerator(cfg).Generate()

	require.Equal(t, first.Len(), second.Len())
	for i := range first.Sessions {
		assert.Equal(t, first.Sessions[i].Variant, second.Sessions[i].Variant,
			"session %d variant diverged", i)
		assert.Equal(t, first.Sessions[i].Metrics["converted"], second.Sessions[i].Metrics["converted"],
			"session %d conversion diverged", i)
	}
}

func TestGenerator_RespectsAllocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionCount = 4000

	ds := NewGenerator(cfg).Generate()
	counts := ds.VariantCounts()

	control := float64(counts["control"])
	treatment := float64(counts["treatment"])
	total := control + treatment
	require.Equal(t, float64(4000), total)

	// A 50/50 split at n=4000 stays within a few points of half
	assert.InDelta(t, 0.5, control/total, 0.05)
}

func TestGenerator_SessionShape(t *testing.T) {
	ds := NewGenerator(DefaultConfig()).Generate()
	require.NotZero(t, ds.Len())

	s := ds.Sessions[0]
	assert.NotEmpty(t, s.SessionID)
	assert.NotEmpty(t, s.UserID)
	assert.NotEmpty(t, s.DeviceType)
	assert.False(t, s.Timestamp.IsZero())
	assert.Contains(t, s.Metrics, core.MetricKey("converted"))
	assert.Contains(t, s.Metrics, core.MetricKey("revenue"))
	assert.Contains(t, s.Metrics, core.MetricKey("page_views"))

	converted := s.Metrics["converted"]
	assert.True(t, converted == 0 || converted == 1)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionCount = 50

	gen := NewGenerator(cfg)
	ds := gen.Generate()

	path := filepath.Join(t.TempDir(), "synthetic.csv")
	require.NoError(t, WriteCSV(ds, path))

	loaded, err := ingest.NewDataReader(path).ReadDataset(cfg.ExperimentID)
	require.NoError(t, err)
	require.Equal(t, ds.Len(), loaded.Len())

	assert.Equal(t, ds.Sessions[0].SessionID, loaded.Sessions[0].SessionID)
	assert.Equal(t, ds.Sessions[0].Variant, loaded.Sessions[0].Variant)
	assert.InDelta(t, ds.Sessions[0].Metrics["revenue"], loaded.Sessions[0].Metrics["revenue"], 1e-6)
}
