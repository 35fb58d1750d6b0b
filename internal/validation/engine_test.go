package validation

import (
	"fmt"
	"testing"
	"time"

	"ablab/domain/core"
	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

var testWindow = struct {
	start time.Time
	end   time.Time
}{
	start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	end:   time.Date(2025, 6, 14, 23, 59, 59, 0, time.UTC),
}

func testConfig() *experiment.Config {
	cfg := &experiment.Config{
		ID:   "exp_validation",
		Name: "Validation Test",
		Allocation: map[core.VariantKey]float64{
			"control":   0.5,
			"treatment": 0.5,
		},
		StartDate: core.NewTimestamp(testWindow.start),
		EndDate:   core.NewTimestamp(testWindow.end),
		Metrics: []experiment.MetricDescriptor{
			{Key: "converted", Kind: experiment.KindBinary},
			{Key: "revenue", Kind: experiment.KindContinuous},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// balancedSessions builds a dataset with an exact 50/50 split, evenly
// spread demographics and timestamps inside the window.
func balancedSessions(perVariant int) []experiment.Session {
	devices := []string{"desktop", "mobile", "tablet"}
	browsers := []string{"chrome", "safari", "firefox"}
	regions := []string{"us-east", "eu", "apac"}

	var sessions []experiment.Session
	idx := 0
	for _, variant := range []core.VariantKey{"control", "treatment"} {
		for i := 0; i < perVariant; i++ {
			day := i % 14
			converted := 0.0
			if i%10 == 0 {
				converted = 1.0
			}
			sessions = append(sessions, experiment.Session{
				SessionID:  core.SessionID(fmt.Sprintf("sess_%05d", idx)),
				UserID:     core.UserID(fmt.Sprintf("user_%05d", idx)),
				Timestamp:  core.NewTimestamp(testWindow.start.AddDate(0, 0, day).Add(6 * time.Hour)),
				Variant:    variant,
				DeviceType: devices[i%len(devices)],
				Browser:    browsers[i%len(browsers)],
				Region:     regions[i%len(regions)],
				Metrics: map[core.MetricKey]float64{
					"converted": converted,
					"revenue":   10.0 + float64(i%20),
				},
			})
			idx++
		}
	}
	return sessions
}

func TestRun_CleanDatasetPasses(t *testing.T) {
	cfg := testConfig()
	ds := experiment.NewDataset(cfg.ID, balancedSessions(700))

	report := NewEngine().Run("run_1", ds, cfg)

	if len(report.Verdicts) != 7 {
		t.Fatalf("expected 7 verdicts, got %d", len(report.Verdicts))
	}
	if report.Blocked() {
		t.Fatalf("clean dataset should not be blocked: %+v", report.Verdicts)
	}
	for _, check := range []verdict.CheckName{
		verdict.CheckSRM, verdict.CheckDataIntegrity, verdict.CheckBalance,
		verdict.CheckTemporal, verdict.CheckOutliers, verdict.CheckTemporalWindow,
	} {
		v, ok := report.Find(check)
		if !ok {
			t.Fatalf("missing verdict for %s", check)
		}
		if v.Status == verdict.StatusFail {
			t.Errorf("%s should not fail on clean data: %s", check, v.Message)
		}
	}

	// An exact 50/50 split has chi-square 0 and a p-value of 1
	srm, _ := report.Find(verdict.CheckSRM)
	if srm.PValue == nil || *srm.PValue < 0.99 {
		t.Errorf("exact split should yield SRM p-value near 1.0, got %+v", srm.PValue)
	}
}

func TestRun_SampleRatioMismatchBlocks(t *testing.T) {
	cfg := testConfig()
	sessions := balancedSessions(700)
	// Drop a third of the treatment arm: a gross mismatch vs 50/50
	var skewed []experiment.Session
	treatmentKept := 0
	for _, s := range sessions {
		if s.Variant == "treatment" {
			treatmentKept++
			if treatmentKept > 450 {
				continue
			}
		}
		skewed = append(skewed, s)
	}
	ds := experiment.NewDataset(cfg.ID, skewed)

	report := NewEngine().Run("run_2", ds, cfg)

	srm, _ := report.Find(verdict.CheckSRM)
	if srm.Status != verdict.StatusFail {
		t.Errorf("700 vs 450 against 50/50 should fail SRM, got %s (%s)", srm.Status, srm.Message)
	}
	if !report.Blocked() {
		t.Error("SRM failure must block the experiment")
	}
}

func TestRun_OutOfWindowSessionsBlock(t *testing.T) {
	cfg := testConfig()
	sessions := balancedSessions(100)
	sessions[0].Timestamp = core.NewTimestamp(testWindow.end.AddDate(0, 0, 10))
	ds := experiment.NewDataset(cfg.ID, sessions)

	report := NewEngine().Run("run_3", ds, cfg)

	window, _ := report.Find(verdict.CheckTemporalWindow)
	if window.Status != verdict.StatusFail {
		t.Errorf("out-of-window session should fail the window check, got %s", window.Status)
	}
	if window.Statistic != 1 {
		t.Errorf("expected 1 out-of-window session, got %f", window.Statistic)
	}
	if !report.Blocked() {
		t.Error("window failure must block the experiment")
	}
}

func TestRun_DuplicateSessionsWarnOnly(t *testing.T) {
	cfg := testConfig()
	sessions := balancedSessions(100)
	// Duplicate a handful of session IDs
	for i := 0; i < 5; i++ {
		dup := sessions[i]
		dup.Timestamp = core.NewTimestamp(testWindow.start.Add(time.Duration(i+1) * time.Hour))
		sessions = append(sessions, dup)
	}
	ds := experiment.NewDataset(cfg.ID, sessions)

	report := NewEngine().Run("run_4", ds, cfg)

	integrity, _ := report.Find(verdict.CheckDataIntegrity)
	if integrity.Status != verdict.StatusWarn {
		t.Errorf("duplicates should warn, got %s", integrity.Status)
	}
	if report.Blocked() {
		t.Error("duplicates must never block the experiment")
	}
	// The duplicated rows stay in the dataset
	if ds.Len() != 205 {
		t.Errorf("duplicates must not be removed, len=%d", ds.Len())
	}
}

func TestRun_UnderpoweredWarns(t *testing.T) {
	cfg := testConfig()
	cfg.BaselineRate = 0.10
	cfg.TargetMDE = 0.02 // 2% relative lift needs tens of thousands per arm
	ds := experiment.NewDataset(cfg.ID, balancedSessions(200))

	report := NewEngine().Run("run_5", ds, cfg)

	power, _ := report.Find(verdict.CheckSampleSize)
	if power.Status != verdict.StatusWarn {
		t.Errorf("200 per arm cannot detect a 2%% lift, expected WARN, got %s", power.Status)
	}
	// The reported achievable effect must exceed the target
	if power.Statistic <= cfg.TargetMDE {
		t.Errorf("achievable MDE %f should exceed the unattainable target %f", power.Statistic, cfg.TargetMDE)
	}
	if report.Blocked() {
		t.Error("underpowered is advisory, never blocking")
	}
}

func TestStandardizedMeanDiff(t *testing.T) {
	group := []float64{0, 1, 0, 1, 0, 1}
	if smd := standardizedMeanDiff(group, group); smd != 0 {
		t.Errorf("a group against itself should give SMD 0, got %f", smd)
	}

	allZero := []float64{0, 0, 0, 0}
	if smd := standardizedMeanDiff(allZero, allZero); smd != 0 {
		t.Errorf("zero pooled variance should give SMD 0, got %f", smd)
	}

	low := []float64{0, 0, 0, 1}
	high := []float64{1, 1, 1, 0}
	if smd := standardizedMeanDiff(low, high); smd >= 0 {
		t.Errorf("lower-mean group first should give negative SMD, got %f", smd)
	}
}
