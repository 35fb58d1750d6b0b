// Package suite implements the hypothesis tests the analysis pipeline
// selects from. Every test is a pure function from samples to
// (statistic, p-value, effect size); p-values come from gonum
// distributions, descriptive summaries from montanaflynn/stats.
package suite

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"ablab/domain/core"
	domstats "ablab/domain/stats"
	"ablab/internal/errors"
)

// MinGroupSize is the smallest variant group any test accepts.
// Below it the test reports InsufficientData rather than a NaN.
const MinGroupSize = 2

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Summarize computes the per-variant descriptive block attached to
// every test result.
func Summarize(variant core.VariantKey, values []float64) domstats.VariantSummary {
	if len(values) == 0 {
		return domstats.VariantSummary{Variant: variant}
	}
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	sd, _ := stats.StandardDeviationSample(values)
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	return domstats.VariantSummary{
		Variant: variant,
		N:       len(values),
		Mean:    mean,
		Median:  median,
		StdDev:  sd,
		Min:     min,
		Max:     max,
	}
}

// checkGroupSizes rejects any group with fewer than MinGroupSize observations
func checkGroupSizes(groups ...[]float64) error {
	for _, g := range groups {
		if len(g) < MinGroupSize {
			return errors.InsufficientData("variant group has fewer than 2 observations")
		}
	}
	return nil
}

// sampleVariance returns the unbiased sample variance
func sampleVariance(values []float64) float64 {
	v, err := stats.SampleVariance(values)
	if err != nil {
		return 0
	}
	return v
}

// midranks assigns average ranks to the combined sample and returns the
// tie-correction term sum(t^3 - t) over tie groups.
func midranks(values []float64) (ranks []float64, tieTerm float64) {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks = make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Average rank over the tie group [i, j]
		avg := float64(i+j+2) / 2.0
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		t := float64(j - i + 1)
		if t > 1 {
			tieTerm += t*t*t - t
		}
		i = j + 1
	}
	return ranks, tieTerm
}

// chiSquareSF returns the upper-tail probability of a chi-square
// distribution with df degrees of freedom.
func chiSquareSF(statistic, df float64) float64 {
	if df <= 0 {
		return 1.0
	}
	dist := distuv.ChiSquared{K: df}
	p := 1 - dist.CDF(statistic)
	return clampP(p)
}

// clampP keeps floating-point noise inside [0, 1]
func clampP(p float64) float64 {
	if p < 0 || math.IsNaN(p) {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
