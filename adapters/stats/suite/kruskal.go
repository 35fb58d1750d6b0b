package suite

import (
	"ablab/domain/core"
	domstats "ablab/domain/stats"
	"ablab/internal/errors"
)

// KruskalWallisResult is the outcome of the Kruskal-Wallis H test.
// Pairwise comparisons carry raw p-values only; the pipeline applies a
// Holm correction scoped to the pairwise family before reporting.
type KruskalWallisResult struct {
	HStatistic     float64
	PValue         float64
	DegreesFreedom float64
	EpsilonSquared float64
	Summaries      []domstats.VariantSummary
	Pairwise       []domstats.PairwiseComparison
}

// KruskalWallisH compares three or more groups by ranks with tie
// correction; the p-value comes from the chi-square distribution with
// k-1 degrees of freedom. Effect size is epsilon squared.
func KruskalWallisH(variants []core.VariantKey, groups [][]float64) (*KruskalWallisResult, error) {
	if len(groups) < 3 {
		return nil, errors.ComputationError("Kruskal-Wallis requires 3 or more variants")
	}
	if len(variants) != len(groups) {
		return nil, errors.ComputationError("variant keys and groups are misaligned")
	}
	if err := checkGroupSizes(groups...); err != nil {
		return nil, err
	}

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	combined := make([]float64, 0, total)
	for _, g := range groups {
		combined = append(combined, g...)
	}
	ranks, tieTerm := midranks(combined)

	n := float64(total)
	h := 0.0
	offset := 0
	for _, g := range groups {
		rankSum := 0.0
		for i := range g {
			rankSum += ranks[offset+i]
		}
		h += rankSum * rankSum / float64(len(g))
		offset += len(g)
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	// Tie correction divides H by 1 - sum(t^3 - t) / (n^3 - n)
	correction := 1 - tieTerm/(n*n*n-n)
	if correction <= 0 {
		return nil, errors.ComputationError("all observations are tied")
	}
	h /= correction

	k := float64(len(groups))
	df := k - 1
	p := chiSquareSF(h, df)

	// Epsilon squared: H-based rank effect size for k groups
	epsilonSq := (h - df) / (n - k)
	if epsilonSq < 0 {
		epsilonSq = 0
	}

	result := &KruskalWallisResult{
		HStatistic:     h,
		PValue:         p,
		DegreesFreedom: df,
		EpsilonSquared: epsilonSq,
	}
	for i, g := range groups {
		result.Summaries = append(result.Summaries, Summarize(variants[i], g))
	}

	// Post-hoc pairwise Mann-Whitney over all variant pairs
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			mw, err := MannWhitneyU(groups[i], groups[j])
			if err != nil {
				continue
			}
			result.Pairwise = append(result.Pairwise, domstats.PairwiseComparison{
				VariantA:   variants[i],
				VariantB:   variants[j],
				UStatistic: mw.UStatistic,
				RawPValue:  mw.PValue,
			})
		}
	}

	return result, nil
}
