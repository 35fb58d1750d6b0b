package validation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkSampleSize runs a two-proportion power calculation against the
// configured baseline rate and relative minimum detectable effect. An
// underpowered experiment is a warning rather than a blocker; the
// message reports the effect size the collected sample can actually
// detect so the reader can judge whether a null result is meaningful.
func (e *Engine) checkSampleSize(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	counts := ds.VariantCounts()
	if len(counts) < 2 {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckSampleSize,
			Status:  verdict.StatusWarn,
			Message: "fewer than two variants observed, power not assessable",
		}
	}

	minN := math.MaxInt
	for _, n := range counts {
		if n < minN {
			minN = n
		}
	}

	p1 := cfg.BaselineRate
	required := requiredPerGroup(p1, cfg.TargetMDE, cfg.Alpha, cfg.Power)

	if minN >= required {
		achieved := powerAtN(p1, cfg.TargetMDE, cfg.Alpha, minN)
		return verdict.ValidationVerdict{
			Check:     verdict.CheckSampleSize,
			Status:    verdict.StatusPass,
			Statistic: achieved,
			Message: fmt.Sprintf("adequately powered: n=%d per group, need %d for %.1f%% relative MDE (power=%.2f)",
				minN, required, cfg.TargetMDE*100, achieved),
		}
	}

	achievable := achievableMDE(p1, cfg.Alpha, cfg.Power, minN)
	return verdict.ValidationVerdict{
		Check:     verdict.CheckSampleSize,
		Status:    verdict.StatusWarn,
		Statistic: achievable,
		Message: fmt.Sprintf("UNDERPOWERED: n=%d per group, need %d for %.1f%% relative MDE; smallest detectable effect at this size is %.1f%%",
			minN, required, cfg.TargetMDE*100, achievable*100),
	}
}

// requiredPerGroup solves the standard two-proportion sample size
// formula for a two-sided test at the given alpha and power. mde is
// relative to the baseline rate.
func requiredPerGroup(p1, mde, alpha, power float64) int {
	p2 := p1 * (1 + mde)
	if p2 >= 1 {
		p2 = 1 - 1e-9
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	zAlpha := norm.Quantile(1 - alpha/2)
	zBeta := norm.Quantile(power)
	num := math.Pow(zAlpha+zBeta, 2) * (p1*(1-p1) + p2*(1-p2))
	den := math.Pow(p2-p1, 2)
	if den == 0 {
		return math.MaxInt32
	}
	return int(math.Ceil(num / den))
}

// powerAtN inverts the formula: the power a two-sided test attains at
// the given per-group n for the configured relative effect.
func powerAtN(p1, mde, alpha float64, n int) float64 {
	p2 := p1 * (1 + mde)
	if p2 >= 1 {
		p2 = 1 - 1e-9
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	zAlpha := norm.Quantile(1 - alpha/2)
	se := math.Sqrt((p1*(1-p1) + p2*(1-p2)) / float64(n))
	if se == 0 {
		return 1
	}
	return norm.CDF(math.Abs(p2-p1)/se - zAlpha)
}

// achievableMDE bisects on the relative effect until the required
// sample size matches the observed per-group n.
func achievableMDE(p1, alpha, power float64, n int) float64 {
	lo, hi := 1e-4, 10.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if requiredPerGroup(p1, mid, alpha, power) > n {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}
