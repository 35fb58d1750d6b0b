package suite

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"ablab/internal/errors"
)

// ShapiroWilkMaxN is the sample-size cutover between Shapiro-Wilk and
// Anderson-Darling.
const ShapiroWilkMaxN = 5000

// NormalityResult reports whether a sample looks normally distributed
type NormalityResult struct {
	TestUsed  string
	Statistic float64
	PValue    float64
	IsNormal  bool
	Skewness  float64
}

// CheckNormality tests a combined sample for normality: Shapiro-Wilk
// below ShapiroWilkMaxN observations, Anderson-Darling at or above it.
// Normality is rejected at alpha = 0.05; severe skewness (|g1| > 2)
// overrides a non-rejecting test, as heavy tails routinely slip past
// omnibus tests at large n.
func CheckNormality(data []float64) (*NormalityResult, error) {
	if len(data) < 3 {
		return nil, errors.InsufficientData("normality test needs at least 3 observations")
	}

	result := &NormalityResult{Skewness: Skewness(data)}

	var err error
	if len(data) < ShapiroWilkMaxN {
		result.TestUsed = "shapiro_wilk"
		result.Statistic, result.PValue, err = ShapiroWilk(data)
	} else {
		result.TestUsed = "anderson_darling"
		result.Statistic, result.PValue, err = AndersonDarling(data)
	}
	if err != nil {
		return nil, err
	}

	result.IsNormal = result.PValue > 0.05
	if math.Abs(result.Skewness) > 2 {
		result.IsNormal = false
	}
	return result, nil
}

// Skewness returns the adjusted Fisher-Pearson skewness coefficient
func Skewness(data []float64) float64 {
	n := float64(len(data))
	if n < 3 {
		return 0
	}
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationSample(data)
	if sd == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

// ShapiroWilk implements the Royston AS R94 approximation of the
// Shapiro-Wilk W test. Valid for 3 <= n <= 5000.
func ShapiroWilk(data []float64) (w, pValue float64, err error) {
	n := len(data)
	if n < 3 {
		return 0, 0, errors.InsufficientData("Shapiro-Wilk needs at least 3 observations")
	}
	if n > ShapiroWilkMaxN {
		return 0, 0, errors.ComputationError("Shapiro-Wilk is unreliable above 5000 observations")
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)
	if x[0] == x[n-1] {
		return 0, 0, errors.ComputationError("zero range sample")
	}

	// Expected normal order statistics (Blom scores)
	fn := float64(n)
	m := make([]float64, n)
	ssm := 0.0
	for i := 0; i < n; i++ {
		m[i] = stdNormal.Quantile((float64(i+1) - 0.375) / (fn + 0.25))
		ssm += m[i] * m[i]
	}

	// Royston polynomial-corrected weights
	a := make([]float64, n)
	rsn := 1 / math.Sqrt(fn)
	c := make([]float64, n)
	norm := math.Sqrt(ssm)
	for i := range m {
		c[i] = m[i] / norm
	}

	switch {
	case n == 3:
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
	case n <= 5:
		aN := c[n-1] + 0.221157*rsn - 0.147981*rsn*rsn -
			2.071190*math.Pow(rsn, 3) + 4.434685*math.Pow(rsn, 4) - 2.706056*math.Pow(rsn, 5)
		phi := (ssm - 2*m[n-1]*m[n-1]) / (1 - 2*aN*aN)
		a[n-1] = aN
		a[0] = -aN
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	default:
		aN := c[n-1] + 0.221157*rsn - 0.147981*rsn*rsn -
			2.071190*math.Pow(rsn, 3) + 4.434685*math.Pow(rsn, 4) - 2.706056*math.Pow(rsn, 5)
		aN1 := c[n-2] + 0.042981*rsn - 0.293762*rsn*rsn -
			1.752461*math.Pow(rsn, 3) + 5.682633*math.Pow(rsn, 4) - 3.582633*math.Pow(rsn, 5)
		phi := (ssm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*aN*aN - 2*aN1*aN1)
		a[n-1] = aN
		a[0] = -aN
		a[n-2] = aN1
		a[1] = -aN1
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	}

	mean, _ := stats.Mean(x)
	num := 0.0
	den := 0.0
	for i, xi := range x {
		num += a[i] * xi
		d := xi - mean
		den += d * d
	}
	w = num * num / den
	if w > 1 {
		w = 1
	}

	// Significance via Royston's normalizing transforms
	switch {
	case n == 3:
		pValue = 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		pValue = clampP(pValue)
	case n <= 11:
		g := -2.273 + 0.459*fn
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		z := (-math.Log(g-math.Log(1-w)) - mu) / sigma
		pValue = clampP(1 - stdNormal.CDF(z))
	default:
		logN := math.Log(fn)
		mu := -1.5861 - 0.31082*logN - 0.083751*logN*logN + 0.0038915*logN*logN*logN
		sigma := math.Exp(-0.4803 - 0.082676*logN + 0.0030302*logN*logN)
		z := (math.Log(1-w) - mu) / sigma
		pValue = clampP(1 - stdNormal.CDF(z))
	}

	return w, pValue, nil
}

// AndersonDarling implements the Anderson-Darling normality test with
// estimated mean and variance, using the D'Agostino-Stephens small-
// sample adjustment and p-value approximation.
func AndersonDarling(data []float64) (aSq, pValue float64, err error) {
	n := len(data)
	if n < 8 {
		return 0, 0, errors.InsufficientData("Anderson-Darling needs at least 8 observations")
	}

	x := make([]float64, n)
	copy(x, data)
	sort.Float64s(x)

	mean, _ := stats.Mean(x)
	sd, _ := stats.StandardDeviationSample(x)
	if sd == 0 {
		return 0, 0, errors.ComputationError("zero variance sample")
	}

	fn := float64(n)
	s := 0.0
	for i := 0; i < n; i++ {
		zi := (x[i] - mean) / sd
		zj := (x[n-1-i] - mean) / sd
		cdfLo := stdNormal.CDF(zi)
		cdfHi := stdNormal.CDF(zj)
		// Guard the logs against underflow at extreme z
		cdfLo = math.Min(math.Max(cdfLo, 1e-300), 1-1e-16)
		cdfHi = math.Min(math.Max(cdfHi, 1e-300), 1-1e-16)
		s += (2*float64(i+1) - 1) * (math.Log(cdfLo) + math.Log(1-cdfHi))
	}
	aSq = -fn - s/fn

	// Adjusted statistic for unknown mean and variance
	aStar := aSq * (1 + 0.75/fn + 2.25/(fn*fn))

	switch {
	case aStar >= 0.6:
		pValue = math.Exp(1.2937 - 5.709*aStar + 0.0186*aStar*aStar)
	case aStar > 0.34:
		pValue = math.Exp(0.9177 - 4.279*aStar - 1.38*aStar*aStar)
	case aStar > 0.2:
		pValue = 1 - math.Exp(-8.318+42.796*aStar-59.938*aStar*aStar)
	default:
		pValue = 1 - math.Exp(-13.436+101.14*aStar-223.73*aStar*aStar)
	}

	return aSq, clampP(pValue), nil
}
