package experiment

import (
	"math"
	"sort"

	"ablab/domain/core"
)

// Dataset holds all sessions for one experiment. Owned by a single
// validation/testing run and immutable once loaded.
type Dataset struct {
	ExperimentID core.ExperimentID
	Sessions     []Session

	variants []core.VariantKey // cached sorted variant keys
}

// NewDataset builds a dataset from loaded sessions
func NewDataset(id core.ExperimentID, sessions []Session) *Dataset {
	return &Dataset{ExperimentID: id, Sessions: sessions}
}

// Len returns the number of sessions
func (d *Dataset) Len() int { return len(d.Sessions) }

// Variants returns the observed variant keys in sorted order
func (d *Dataset) Variants() []core.VariantKey {
	if d.variants != nil {
		return d.variants
	}
	seen := make(map[core.VariantKey]bool)
	for i := range d.Sessions {
		seen[d.Sessions[i].Variant] = true
	}
	variants := make([]core.VariantKey, 0, len(seen))
	for v := range seen {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	d.variants = variants
	return variants
}

// VariantCounts returns observed session counts per variant
func (d *Dataset) VariantCounts() map[core.VariantKey]int {
	counts := make(map[core.VariantKey]int)
	for i := range d.Sessions {
		counts[d.Sessions[i].Variant]++
	}
	return counts
}

// MetricByVariant extracts one metric's values grouped per variant,
// in sorted variant order. NaN values (missing cells) are dropped.
func (d *Dataset) MetricByVariant(key core.MetricKey) map[core.VariantKey][]float64 {
	groups := make(map[core.VariantKey][]float64)
	for i := range d.Sessions {
		s := &d.Sessions[i]
		val, ok := s.Metrics[key]
		if !ok || math.IsNaN(val) {
			continue
		}
		groups[s.Variant] = append(groups[s.Variant], val)
	}
	return groups
}

// MetricValues extracts one metric's values across all variants
func (d *Dataset) MetricValues(key core.MetricKey) []float64 {
	values := make([]float64, 0, len(d.Sessions))
	for i := range d.Sessions {
		val, ok := d.Sessions[i].Metrics[key]
		if !ok || math.IsNaN(val) {
			continue
		}
		values = append(values, val)
	}
	return values
}

// MissingCount returns how many sessions lack a value for the metric
func (d *Dataset) MissingCount(key core.MetricKey) int {
	missing := 0
	for i := range d.Sessions {
		val, ok := d.Sessions[i].Metrics[key]
		if !ok || math.IsNaN(val) {
			missing++
		}
	}
	return missing
}

// DuplicateSessionIDs returns the number of rows whose session ID was
// already seen. The source feed carries roughly one duplicate per
// exposure, so this is reported, never repaired.
func (d *Dataset) DuplicateSessionIDs() int {
	seen := make(map[core.SessionID]bool, len(d.Sessions))
	duplicates := 0
	for i := range d.Sessions {
		id := d.Sessions[i].SessionID
		if seen[id] {
			duplicates++
			continue
		}
		seen[id] = true
	}
	return duplicates
}

// CovariateLevels returns the distinct values of a demographic covariate,
// sorted for deterministic iteration.
func (d *Dataset) CovariateLevels(name string) []string {
	seen := make(map[string]bool)
	for i := range d.Sessions {
		if v := d.Sessions[i].CovariateValue(name); v != "" {
			seen[v] = true
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels
}

// CovariateIndicator one-hot encodes a covariate level per variant:
// for each variant, the 0/1 vector of sessions matching the level.
func (d *Dataset) CovariateIndicator(name, level string) map[core.VariantKey][]float64 {
	groups := make(map[core.VariantKey][]float64)
	for i := range d.Sessions {
		s := &d.Sessions[i]
		indicator := 0.0
		if s.CovariateValue(name) == level {
			indicator = 1.0
		}
		groups[s.Variant] = append(groups[s.Variant], indicator)
	}
	return groups
}

// DailyVariantCounts buckets sessions by UTC day and variant
func (d *Dataset) DailyVariantCounts() map[core.VariantKey]map[int64]int {
	counts := make(map[core.VariantKey]map[int64]int)
	for i := range d.Sessions {
		s := &d.Sessions[i]
		day := s.Timestamp.Day().Unix()
		if counts[s.Variant] == nil {
			counts[s.Variant] = make(map[int64]int)
		}
		counts[s.Variant][day]++
	}
	return counts
}
