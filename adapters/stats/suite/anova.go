package suite

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"ablab/domain/core"
	domstats "ablab/domain/stats"
	"ablab/internal/errors"
)

// ANOVAResult is the outcome of a one-way analysis of variance
type ANOVAResult struct {
	FStatistic float64
	PValue     float64
	DFBetween  float64
	DFWithin   float64
	EtaSquared float64
	Summaries  []domstats.VariantSummary
}

// OneWayANOVA compares three or more group means under the equal-means
// null. Effect size is eta squared (between-group share of the total
// sum of squares). Zero within-group variance is a ComputationError so
// the caller can fall back to Kruskal-Wallis.
func OneWayANOVA(variants []core.VariantKey, groups [][]float64) (*ANOVAResult, error) {
	if len(groups) < 3 {
		return nil, errors.ComputationError("one-way ANOVA requires 3 or more variants")
	}
	if len(variants) != len(groups) {
		return nil, errors.ComputationError("variant keys and groups are misaligned")
	}
	if err := checkGroupSizes(groups...); err != nil {
		return nil, err
	}

	total := 0
	grandSum := 0.0
	for _, g := range groups {
		total += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	n := float64(total)
	grandMean := grandSum / n

	ssBetween := 0.0
	ssWithin := 0.0
	for _, g := range groups {
		mean, _ := stats.Mean(g)
		diff := mean - grandMean
		ssBetween += float64(len(g)) * diff * diff
		for _, v := range g {
			d := v - mean
			ssWithin += d * d
		}
	}

	k := float64(len(groups))
	dfBetween := k - 1
	dfWithin := n - k
	if ssWithin == 0 {
		return nil, errors.ComputationError("zero within-group variance")
	}

	f := (ssBetween / dfBetween) / (ssWithin / dfWithin)
	fDist := distuv.F{D1: dfBetween, D2: dfWithin}
	p := clampP(1 - fDist.CDF(f))

	etaSq := 0.0
	if ssBetween+ssWithin > 0 {
		etaSq = ssBetween / (ssBetween + ssWithin)
	}

	result := &ANOVAResult{
		FStatistic: f,
		PValue:     p,
		DFBetween:  dfBetween,
		DFWithin:   dfWithin,
		EtaSquared: etaSq,
	}
	for i, g := range groups {
		result.Summaries = append(result.Summaries, Summarize(variants[i], g))
	}
	return result, nil
}
