// Package correction applies the Holm-Bonferroni step-down procedure
// across the hypothesis tests of one experiment, controlling the
// family-wise error rate.
package correction

import (
	"sort"

	domstats "ablab/domain/stats"
)

// Method is the correction identifier recorded on reports
const Method = "holm_bonferroni"

// Apply runs the Holm step-down over a batch already ordered ascending
// by raw p-value (ties broken by metric declaration order). For rank i
// among m hypotheses the threshold is alpha/(m-i+1); the first p-value
// over its threshold marks that hypothesis and every later one
// not-significant. Corrected p-values are (m-i+1)*p clamped to 1 and
// forced non-decreasing in rank order, so corrected >= raw always.
func Apply(batch *domstats.CorrectionBatch, alpha float64) {
	m := batch.Len()
	if m == 0 {
		return
	}

	rejecting := true
	running := 0.0
	for i, r := range batch.Results {
		remaining := float64(m - i)
		adjusted := r.RawPValue * remaining
		if adjusted > 1 {
			adjusted = 1
		}
		if adjusted < running {
			adjusted = running
		}
		running = adjusted

		if rejecting && r.RawPValue > alpha/remaining {
			rejecting = false
		}

		r.CorrectedPValue = adjusted
		r.Significant = rejecting
	}
}

// AdjustPValues is the pure form used for post-hoc pairwise families:
// given raw p-values in any order, it returns Holm-corrected p-values
// and significance decisions in the same order.
func AdjustPValues(raw []float64, alpha float64) (corrected []float64, significant []bool) {
	m := len(raw)
	corrected = make([]float64, m)
	significant = make([]bool, m)
	if m == 0 {
		return corrected, significant
	}

	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return raw[order[a]] < raw[order[b]] })

	rejecting := true
	running := 0.0
	for rank, idx := range order {
		remaining := float64(m - rank)
		adjusted := raw[idx] * remaining
		if adjusted > 1 {
			adjusted = 1
		}
		if adjusted < running {
			adjusted = running
		}
		running = adjusted

		if rejecting && raw[idx] > alpha/remaining {
			rejecting = false
		}

		corrected[idx] = adjusted
		significant[idx] = rejecting
	}
	return corrected, significant
}
