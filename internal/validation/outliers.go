package validation

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkOutliers flags continuous and count metrics with an unusual
// mass outside the 1.5×IQR fences. Outliers are reported, never
// removed; heavy tails are common for revenue-like metrics and the
// test selector handles them by routing to rank-based tests.
func (e *Engine) checkOutliers(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	worstShare := 0.0
	var flagged []string

	for _, m := range cfg.Metrics {
		if m.Kind != experiment.KindContinuous && m.Kind != experiment.KindCount {
			continue
		}
		values := ds.MetricValues(m.Key)
		if len(values) < 4 {
			continue
		}
		q1, err := stats.Percentile(values, 25)
		if err != nil {
			continue
		}
		q3, err := stats.Percentile(values, 75)
		if err != nil {
			continue
		}
		iqr := q3 - q1
		lower := q1 - 1.5*iqr
		upper := q3 + 1.5*iqr

		outside := 0
		for _, v := range values {
			if v < lower || v > upper {
				outside++
			}
		}
		share := float64(outside) / float64(len(values))
		if share > worstShare {
			worstShare = share
		}
		if share > e.thresholds.OutlierMaxShare {
			flagged = append(flagged, fmt.Sprintf("%s=%.1f%%", m.Key, share*100))
		}
	}

	if len(flagged) > 0 {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckOutliers,
			Status:    verdict.StatusWarn,
			Statistic: worstShare,
			Message:   fmt.Sprintf("heavy-tailed metrics beyond 1.5*IQR fences: %v", flagged),
		}
	}

	return verdict.ValidationVerdict{
		Check:     verdict.CheckOutliers,
		Status:    verdict.StatusPass,
		Statistic: worstShare,
		Message:   fmt.Sprintf("outlier share within tolerance (max %.1f%%)", worstShare*100),
	}
}
