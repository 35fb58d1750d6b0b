package suite

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"ablab/internal/errors"
)

// WelchResult is the outcome of Welch's unequal-variance t-test
type WelchResult struct {
	TStatistic     float64
	PValue         float64
	DegreesFreedom float64
	MeanA          float64
	MeanB          float64
	MeanDiff       float64
	CohensD        float64
	CILower        float64
	CIUpper        float64
}

// WelchTTest compares two group means without assuming equal variances.
// Degrees of freedom follow the Welch-Satterthwaite equation; the
// confidence interval uses the t quantile at that df. A zero-variance
// group is a ComputationError so the caller can fall back to the
// rank-based test.
func WelchTTest(groupA, groupB []float64, alpha float64) (*WelchResult, error) {
	if err := checkGroupSizes(groupA, groupB); err != nil {
		return nil, err
	}

	nA, nB := float64(len(groupA)), float64(len(groupB))
	meanA, _ := stats.Mean(groupA)
	meanB, _ := stats.Mean(groupB)
	varA := sampleVariance(groupA)
	varB := sampleVariance(groupB)

	if varA == 0 && varB == 0 {
		return nil, errors.ComputationError("both groups have zero variance")
	}

	se := math.Sqrt(varA/nA + varB/nB)
	if se == 0 {
		return nil, errors.ComputationError("standard error of the mean difference is zero")
	}

	diff := meanB - meanA
	t := diff / se
	df := math.Pow(varA/nA+varB/nB, 2) /
		(math.Pow(varA/nA, 2)/(nA-1) + math.Pow(varB/nB, 2)/(nB-1))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - tDist.CDF(math.Abs(t)))

	pooledSD := math.Sqrt(((nA-1)*varA + (nB-1)*varB) / (nA + nB - 2))
	d := 0.0
	if pooledSD > 0 {
		d = diff / pooledSD
	}

	tCrit := tDist.Quantile(1 - alpha/2)
	margin := tCrit * se

	return &WelchResult{
		TStatistic:     t,
		PValue:         clampP(p),
		DegreesFreedom: df,
		MeanA:          meanA,
		MeanB:          meanB,
		MeanDiff:       diff,
		CohensD:        d,
		CILower:        diff - margin,
		CIUpper:        diff + margin,
	}, nil
}
