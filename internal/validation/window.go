package validation

import (
	"fmt"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkTemporalWindow fails any dataset with sessions outside the
// configured experiment window. Data logged before the start or after
// the end belongs to a different exposure population and would bias
// every downstream estimate.
func (e *Engine) checkTemporalWindow(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckTemporalWindow,
			Status:  verdict.StatusPass,
			Message: "no experiment window configured, skipping",
		}
	}

	start := cfg.StartDate.Time()
	end := cfg.EndDate.Time()
	outside := 0
	for _, s := range ds.Sessions {
		t := s.Timestamp.Time()
		if t.IsZero() {
			continue
		}
		if t.Before(start) || t.After(end) {
			outside++
		}
	}

	if outside > 0 {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckTemporalWindow,
			Status:    verdict.StatusFail,
			Statistic: float64(outside),
			Message: fmt.Sprintf("%d sessions fall outside the experiment window %s to %s",
				outside, cfg.StartDate, cfg.EndDate),
		}
	}

	return verdict.ValidationVerdict{
		Check:     verdict.CheckTemporalWindow,
		Status:    verdict.StatusPass,
		Statistic: 0,
		Message:   "all sessions within the experiment window",
	}
}
