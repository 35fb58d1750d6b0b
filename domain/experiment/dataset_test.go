package experiment

import (
	"math"
	"testing"
	"time"

	"ablab/domain/core"
)

func sampleSessions() []Session {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []Session{
		{
			SessionID: "s1", UserID: "u1", Variant: "treatment",
			Timestamp:  core.NewTimestamp(base),
			DeviceType: "mobile", Browser: "chrome", Region: "eu",
			Metrics: map[core.MetricKey]float64{"revenue": 10},
		},
		{
			SessionID: "s2", UserID: "u2", Variant: "control",
			Timestamp:  core.NewTimestamp(base.Add(time.Hour)),
			DeviceType: "desktop", Browser: "safari", Region: "us-east",
			Metrics: map[core.MetricKey]float64{"revenue": 20},
		},
		{
			SessionID: "s3", UserID: "u3", Variant: "control",
			Timestamp:  core.NewTimestamp(base.AddDate(0, 0, 1)),
			DeviceType: "mobile", Browser: "chrome", Region: "eu",
			Metrics: map[core.MetricKey]float64{"revenue": math.NaN()},
		},
		{
			SessionID: "s2", UserID: "u4", Variant: "treatment",
			Timestamp:  core.NewTimestamp(base.AddDate(0, 0, 1)),
			DeviceType: "tablet", Browser: "firefox", Region: "apac",
			Metrics: map[core.MetricKey]float64{"revenue": 30},
		},
	}
}

func TestDataset_VariantsSorted(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	variants := ds.Variants()
	if len(variants) != 2 || variants[0] != "control" || variants[1] != "treatment" {
		t.Errorf("expected sorted [control treatment], got %v", variants)
	}
}

func TestDataset_MetricByVariantDropsNaN(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	byVariant := ds.MetricByVariant("revenue")
	if len(byVariant["control"]) != 1 {
		t.Errorf("NaN cell should be dropped: %v", byVariant["control"])
	}
	if len(byVariant["treatment"]) != 2 {
		t.Errorf("expected 2 treatment values, got %v", byVariant["treatment"])
	}
}

func TestDataset_MissingCount(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	if n := ds.MissingCount("revenue"); n != 1 {
		t.Errorf("expected 1 missing revenue cell, got %d", n)
	}
}

func TestDataset_DuplicateSessionIDs(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	if n := ds.DuplicateSessionIDs(); n != 1 {
		t.Errorf("s2 appears twice, expected 1 duplicate, got %d", n)
	}
}

func TestDataset_CovariateLevels(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	levels := ds.CovariateLevels("device_type")
	want := []string{"desktop", "mobile", "tablet"}
	if len(levels) != len(want) {
		t.Fatalf("expected %v, got %v", want, levels)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("levels not sorted: %v", levels)
		}
	}
}

func TestDataset_DailyVariantCounts(t *testing.T) {
	ds := NewDataset("exp", sampleSessions())
	daily := ds.DailyVariantCounts()

	day1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).Unix()
	if daily["control"][day1] != 1 || daily["control"][day2] != 1 {
		t.Errorf("control should have one session each day: %v", daily["control"])
	}
	if daily["treatment"][day1] != 1 || daily["treatment"][day2] != 1 {
		t.Errorf("treatment should have one session each day: %v", daily["treatment"])
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{
		ID: "exp",
		Allocation: map[core.VariantKey]float64{
			"control": 0.6, "treatment": 0.5,
		},
		Metrics: []MetricDescriptor{{Key: "converted", Kind: KindBinary}},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("allocation summing to 1.1 should be rejected")
	}

	cfg.Allocation["treatment"] = 0.4
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.Metrics = append(cfg.Metrics, MetricDescriptor{Key: "converted", Kind: KindBinary})
	if err := cfg.Validate(); err == nil {
		t.Error("duplicate metric keys should be rejected")
	}
}
