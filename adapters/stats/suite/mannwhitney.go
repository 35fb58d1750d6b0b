package suite

import (
	"math"

	"github.com/montanaflynn/stats"

	"ablab/internal/errors"
)

// MannWhitneyResult is the outcome of the Mann-Whitney U rank-sum test
type MannWhitneyResult struct {
	UStatistic   float64
	PValue       float64
	MedianA      float64
	MedianB      float64
	MeanA        float64
	MeanB        float64
	MedianDiff   float64
	RankBiserial float64
}

// MannWhitneyU compares the distributions of two groups by ranks.
// The p-value uses the normal approximation with tie correction and a
// 0.5 continuity correction; effect size is the rank-biserial
// correlation r = 1 - 2U / (nA * nB).
func MannWhitneyU(groupA, groupB []float64) (*MannWhitneyResult, error) {
	if err := checkGroupSizes(groupA, groupB); err != nil {
		return nil, err
	}

	nA, nB := float64(len(groupA)), float64(len(groupB))
	combined := make([]float64, 0, len(groupA)+len(groupB))
	combined = append(combined, groupA...)
	combined = append(combined, groupB...)
	ranks, tieTerm := midranks(combined)

	rankSumA := 0.0
	for i := range groupA {
		rankSumA += ranks[i]
	}

	uA := rankSumA - nA*(nA+1)/2
	uB := nA*nB - uA
	u := math.Min(uA, uB)

	n := nA + nB
	mu := nA * nB / 2
	// Tie-corrected variance of U
	sigmaSq := nA * nB / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if sigmaSq <= 0 {
		return nil, errors.ComputationError("all observations are tied")
	}

	// Continuity correction toward the mean
	z := (u - mu + 0.5) / math.Sqrt(sigmaSq)
	p := 2 * stdNormal.CDF(z)

	medianA, _ := stats.Median(groupA)
	medianB, _ := stats.Median(groupB)
	meanA, _ := stats.Mean(groupA)
	meanB, _ := stats.Mean(groupB)

	return &MannWhitneyResult{
		UStatistic:   uA,
		PValue:       clampP(p),
		MedianA:      medianA,
		MedianB:      medianB,
		MeanA:        meanA,
		MeanB:        meanB,
		MedianDiff:   medianB - medianA,
		RankBiserial: 1 - 2*uA/(nA*nB),
	}, nil
}
