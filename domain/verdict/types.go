package verdict

import (
	"ablab/domain/core"
)

// CheckStatus represents the outcome of a single validation check
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckName identifies one of the validation battery's checks
type CheckName string

const (
	CheckSRM            CheckName = "sample_ratio_mismatch"
	CheckDataIntegrity  CheckName = "data_integrity"
	CheckBalance        CheckName = "randomization_balance"
	CheckTemporal       CheckName = "temporal_consistency"
	CheckOutliers       CheckName = "outlier_detection"
	CheckSampleSize     CheckName = "sample_size_adequacy"
	CheckTemporalWindow CheckName = "temporal_window"
)

// ValidationVerdict is the structured result of one check against one
// experiment. Statistic is check-specific (chi-square, max SMD, max CV,
// outlier fraction, achievable MDE, out-of-window count).
type ValidationVerdict struct {
	Check     CheckName   `json:"check"`
	Status    CheckStatus `json:"status"`
	Statistic float64     `json:"statistic"`
	PValue    *float64    `json:"p_value,omitempty"`
	Message   string      `json:"message"`
}

// Report aggregates the ordered verdicts for one experiment.
// SRM and the temporal-window check are hard gates: their failure
// blocks statistical testing entirely.
type Report struct {
	ExperimentID core.ExperimentID   `json:"experiment_id"`
	RunID        core.RunID          `json:"run_id"`
	Verdicts     []ValidationVerdict `json:"verdicts"`
	CreatedAt    core.Timestamp      `json:"created_at"`
}

// gateChecks are the checks whose FAIL invalidates the experiment
var gateChecks = map[CheckName]bool{
	CheckSRM:            true,
	CheckTemporalWindow: true,
}

// Status rolls up the per-check verdicts: FAIL if a gate check failed,
// WARN if anything else warned or failed (advisory), PASS otherwise.
func (r *Report) Status() CheckStatus {
	status := StatusPass
	for _, v := range r.Verdicts {
		if v.Status == StatusFail && gateChecks[v.Check] {
			return StatusFail
		}
		if v.Status != StatusPass {
			status = StatusWarn
		}
	}
	return status
}

// Blocked reports whether statistical testing must be skipped
func (r *Report) Blocked() bool {
	return r.Status() == StatusFail
}

// Warnings returns all non-passing advisory verdicts, in check order
func (r *Report) Warnings() []ValidationVerdict {
	var warnings []ValidationVerdict
	for _, v := range r.Verdicts {
		if v.Status != StatusPass && !gateChecks[v.Check] {
			warnings = append(warnings, v)
		}
	}
	return warnings
}

// Find returns the verdict for a named check, if present
func (r *Report) Find(check CheckName) (ValidationVerdict, bool) {
	for _, v := range r.Verdicts {
		if v.Check == check {
			return v, true
		}
	}
	return ValidationVerdict{}, false
}
