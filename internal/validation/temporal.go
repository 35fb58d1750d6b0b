package validation

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkTemporalConsistency buckets sessions by day, computes each
// variant's share of every bucket and warns when the coefficient of
// variation of that share across buckets reaches the threshold:
// allocation drifting over time undermines randomization.
func (e *Engine) checkTemporalConsistency(ds *experiment.Dataset) verdict.ValidationVerdict {
	byVariant := ds.DailyVariantCounts()
	if len(byVariant) == 0 {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckTemporal,
			Status:  verdict.StatusWarn,
			Message: "no sessions to bucket",
		}
	}

	// Per-day totals across variants
	dayTotals := make(map[int64]float64)
	for _, days := range byVariant {
		for day, count := range days {
			dayTotals[day] += float64(count)
		}
	}
	if len(dayTotals) < 2 {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckTemporal,
			Status:    verdict.StatusPass,
			Statistic: 0,
			Message:   "single-day experiment, temporal drift not assessable",
		}
	}

	maxCV := 0.0
	var worstVariant string
	for variant, days := range byVariant {
		shares := make([]float64, 0, len(dayTotals))
		for day, total := range dayTotals {
			shares = append(shares, float64(days[day])/total)
		}
		mean, _ := stats.Mean(shares)
		sd, _ := stats.StandardDeviationSample(shares)
		if mean == 0 {
			continue
		}
		cv := sd / mean
		if cv > maxCV {
			maxCV = cv
			worstVariant = variant.String()
		}
	}

	if maxCV >= e.thresholds.TemporalMaxCV {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckTemporal,
			Status:    verdict.StatusWarn,
			Statistic: maxCV,
			Message: fmt.Sprintf("unstable allocation over time: variant %s share CV=%.3f across %d days",
				worstVariant, maxCV, len(dayTotals)),
		}
	}

	return verdict.ValidationVerdict{
		Check:     verdict.CheckTemporal,
		Status:    verdict.StatusPass,
		Statistic: maxCV,
		Message:   fmt.Sprintf("stable allocation (max share CV=%.3f across %d days)", maxCV, len(dayTotals)),
	}
}
