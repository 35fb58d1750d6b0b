// Package validation runs the fixed battery of experiment-integrity
// checks against one experiment dataset and produces a structured
// validation report. Checks never mutate the dataset.
package validation

import (
	"log"

	"ablab/domain/core"
	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// Thresholds holds the decision boundaries for the validation battery
type Thresholds struct {
	SRMAlpha        float64 // p-value below which SRM fails the experiment
	BalanceWarnSMD  float64 // max |SMD| at or above which balance warns
	BalanceFailSMD  float64 // max |SMD| at or above which balance fails
	TemporalMaxCV   float64 // allocation-share CV at or above which temporal warns
	OutlierMaxShare float64 // flagged fraction above which outliers warn
}

// DefaultThresholds match routine experimentation practice: the SRM
// alpha is far stricter than 0.05 because the check runs on every
// experiment and a loose threshold would alarm constantly.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SRMAlpha:        0.001,
		BalanceWarnSMD:  0.1,
		BalanceFailSMD:  0.2,
		TemporalMaxCV:   0.2,
		OutlierMaxShare: 0.15,
	}
}

// Engine executes the seven validation checks in a fixed order
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a validation engine with default thresholds
func NewEngine() *Engine {
	return &Engine{thresholds: DefaultThresholds()}
}

// NewEngineWithThresholds creates a validation engine with custom thresholds
func NewEngineWithThresholds(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Run executes the full battery against one experiment dataset.
// Check order is fixed and part of the report contract.
func (e *Engine) Run(runID core.RunID, ds *experiment.Dataset, cfg *experiment.Config) *verdict.Report {
	report := &verdict.Report{
		ExperimentID: ds.ExperimentID,
		RunID:        runID,
		CreatedAt:    core.Now(),
	}

	report.Verdicts = append(report.Verdicts,
		e.checkSampleRatio(ds, cfg),
		e.checkDataIntegrity(ds, cfg),
		e.checkBalance(ds, cfg),
		e.checkTemporalConsistency(ds),
		e.checkOutliers(ds, cfg),
		e.checkSampleSize(ds, cfg),
		e.checkTemporalWindow(ds, cfg),
	)

	status := report.Status()
	log.Printf("[Validation] experiment=%s status=%s checks=%d warnings=%d",
		ds.ExperimentID, status, len(report.Verdicts), len(report.Warnings()))
	return report
}

func pvalue(p float64) *float64 { return &p }
