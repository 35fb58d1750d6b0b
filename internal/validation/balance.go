package validation

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkBalance verifies randomization balance via the standardized
// mean difference of every one-hot-encoded covariate level between
// each pair of variants: SMD = (meanA - meanB) / sqrt((varA + varB)/2).
func (e *Engine) checkBalance(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	variants := ds.Variants()
	if len(variants) < 2 {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckBalance,
			Status:  verdict.StatusWarn,
			Message: "fewer than 2 observed variants, balance not assessable",
		}
	}

	covariates := cfg.Covariates
	if len(covariates) == 0 {
		covariates = []string{"device_type", "browser", "region"}
	}

	maxSMD := 0.0
	worst := ""
	for _, covariate := range covariates {
		for _, level := range ds.CovariateLevels(covariate) {
			groups := ds.CovariateIndicator(covariate, level)
			for i := 0; i < len(variants); i++ {
				for j := i + 1; j < len(variants); j++ {
					smd := standardizedMeanDiff(groups[variants[i]], groups[variants[j]])
					if math.Abs(smd) > maxSMD {
						maxSMD = math.Abs(smd)
						worst = fmt.Sprintf("%s=%s (%s vs %s)", covariate, level, variants[i], variants[j])
					}
				}
			}
		}
	}

	switch {
	case maxSMD >= e.thresholds.BalanceFailSMD:
		return verdict.ValidationVerdict{
			Check:     verdict.CheckBalance,
			Status:    verdict.StatusFail,
			Statistic: maxSMD,
			Message:   fmt.Sprintf("covariate imbalance: max |SMD|=%.3f at %s", maxSMD, worst),
		}
	case maxSMD >= e.thresholds.BalanceWarnSMD:
		return verdict.ValidationVerdict{
			Check:     verdict.CheckBalance,
			Status:    verdict.StatusWarn,
			Statistic: maxSMD,
			Message:   fmt.Sprintf("borderline balance: max |SMD|=%.3f at %s", maxSMD, worst),
		}
	default:
		return verdict.ValidationVerdict{
			Check:     verdict.CheckBalance,
			Status:    verdict.StatusPass,
			Statistic: maxSMD,
			Message:   fmt.Sprintf("covariates balanced (max |SMD|=%.3f)", maxSMD),
		}
	}
}

// standardizedMeanDiff computes (meanA - meanB) / sqrt((varA + varB)/2).
// A group compared with itself yields exactly 0.
func standardizedMeanDiff(groupA, groupB []float64) float64 {
	if len(groupA) == 0 || len(groupB) == 0 {
		return 0
	}
	meanA, _ := stats.Mean(groupA)
	meanB, _ := stats.Mean(groupB)
	varA, _ := stats.SampleVariance(groupA)
	varB, _ := stats.SampleVariance(groupB)

	pooled := math.Sqrt((varA + varB) / 2)
	if pooled == 0 {
		return 0
	}
	return (meanA - meanB) / pooled
}
