package suite

import (
	"math"

	"ablab/internal/errors"
)

// TwoProportionResult is the outcome of a pooled two-proportion z-test
type TwoProportionResult struct {
	ZStatistic   float64
	PValue       float64
	RateA        float64
	RateB        float64
	AbsoluteDiff float64
	RelativeLift float64
	CILower      float64
	CIUpper      float64
	NA           int
	NB           int
}

// TwoProportionZTest compares conversion rates between two variants
// using the pooled-proportion z-statistic. The two-sided p-value comes
// from the standard normal; the 95% Wald interval is on the raw
// difference rateB - rateA; relative lift is (pB - pA) / pA.
func TwoProportionZTest(successA, nA, successB, nB int) (*TwoProportionResult, error) {
	if nA < MinGroupSize || nB < MinGroupSize {
		return nil, errors.InsufficientData("two-proportion z-test needs at least 2 observations per variant")
	}
	if successA < 0 || successB < 0 || successA > nA || successB > nB {
		return nil, errors.ComputationError("success counts outside [0, n]")
	}

	fA, fB := float64(nA), float64(nB)
	rateA := float64(successA) / fA
	rateB := float64(successB) / fB

	pooled := float64(successA+successB) / (fA + fB)
	se := math.Sqrt(pooled * (1 - pooled) * (1/fA + 1/fB))
	if se == 0 {
		// Every session converted, or none did, in both variants
		return nil, errors.ComputationError("pooled proportion has zero variance")
	}

	diff := rateB - rateA
	z := diff / se
	p := 2 * (1 - stdNormal.CDF(math.Abs(z)))

	// Wald interval uses the unpooled standard error
	seWald := math.Sqrt(rateA*(1-rateA)/fA + rateB*(1-rateB)/fB)
	margin := stdNormal.Quantile(0.975) * seWald

	lift := math.NaN()
	if rateA > 0 {
		lift = diff / rateA
	}

	return &TwoProportionResult{
		ZStatistic:   z,
		PValue:       clampP(p),
		RateA:        rateA,
		RateB:        rateB,
		AbsoluteDiff: diff,
		RelativeLift: lift,
		CILower:      diff - margin,
		CIUpper:      diff + margin,
		NA:           nA,
		NB:           nB,
	}, nil
}

// BinaryCounts reduces a 0/1 sample to (successes, n)
func BinaryCounts(values []float64) (successes, n int) {
	for _, v := range values {
		if v != 0 {
			successes++
		}
	}
	return successes, len(values)
}
