package validation

import (
	"fmt"
	"strings"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkDataIntegrity flags missing values, duplicate session IDs,
// negative revenue-like values and future-dated rows. Duplicates are
// always advisory: a one-row-per-exposure feed legitimately repeats
// session IDs, so judging them is a human call, never an automatic
// rejection.
func (e *Engine) checkDataIntegrity(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	var issues []string
	total := ds.Len()
	if total == 0 {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckDataIntegrity,
			Status:  verdict.StatusWarn,
			Message: "dataset is empty",
		}
	}

	// Required identity columns
	missingIdentity := 0
	futureDates := 0
	now := cfg.EndDate.Time()
	for i := range ds.Sessions {
		s := &ds.Sessions[i]
		if s.SessionID == "" || s.UserID == "" || s.Variant == "" || s.Timestamp.IsZero() {
			missingIdentity++
		}
		if !now.IsZero() && s.Timestamp.Time().After(now.AddDate(0, 0, 1)) {
			futureDates++
		}
	}
	if missingIdentity > 0 {
		issues = append(issues, fmt.Sprintf("%d rows missing identity fields", missingIdentity))
	}
	if futureDates > 0 {
		issues = append(issues, fmt.Sprintf("%d rows dated after the experiment end", futureDates))
	}

	// Missing metric cells
	for _, m := range cfg.Metrics {
		if missing := ds.MissingCount(m.Key); missing > 0 {
			pct := float64(missing) / float64(total) * 100
			issues = append(issues, fmt.Sprintf("%s has %d missing values (%.2f%%)", m.Key, missing, pct))
		}
	}

	// Negative values in revenue-like metrics
	for _, m := range cfg.Metrics {
		name := strings.ToLower(m.Key.String())
		if !strings.Contains(name, "revenue") && !strings.Contains(name, "price") {
			continue
		}
		negative := 0
		for _, v := range ds.MetricValues(m.Key) {
			if v < 0 {
				negative++
			}
		}
		if negative > 0 {
			issues = append(issues, fmt.Sprintf("%s has %d negative values", m.Key, negative))
		}
	}

	duplicates := ds.DuplicateSessionIDs()
	duplicateRate := float64(duplicates) / float64(total)
	if duplicates > 0 {
		issues = append(issues, fmt.Sprintf("%d duplicate session IDs (%.1f%% of rows)", duplicates, duplicateRate*100))
	}

	if len(issues) == 0 {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckDataIntegrity,
			Status:    verdict.StatusPass,
			Statistic: duplicateRate,
			Message:   "no data integrity issues detected",
		}
	}

	return verdict.ValidationVerdict{
		Check:     verdict.CheckDataIntegrity,
		Status:    verdict.StatusWarn,
		Statistic: duplicateRate,
		Message:   fmt.Sprintf("%d issue(s): %s", len(issues), strings.Join(issues, "; ")),
	}
}
