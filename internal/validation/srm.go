package validation

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"ablab/domain/experiment"
	"ablab/domain/verdict"
)

// checkSampleRatio detects sample ratio mismatch: a chi-square
// goodness-of-fit test of observed per-variant counts against the
// declared allocation. SRM invalidates the experiment outright.
func (e *Engine) checkSampleRatio(ds *experiment.Dataset, cfg *experiment.Config) verdict.ValidationVerdict {
	counts := ds.VariantCounts()
	total := float64(ds.Len())
	if total == 0 || len(cfg.Allocation) < 2 {
		return verdict.ValidationVerdict{
			Check:   verdict.CheckSRM,
			Status:  verdict.StatusFail,
			Message: "no sessions or fewer than 2 declared variants",
		}
	}

	chi2 := 0.0
	for variant, share := range cfg.Allocation {
		expected := share * total
		observed := float64(counts[variant])
		diff := observed - expected
		chi2 += diff * diff / expected
	}

	df := float64(len(cfg.Allocation) - 1)
	dist := distuv.ChiSquared{K: df}
	p := 1 - dist.CDF(chi2)
	if p < 0 {
		p = 0
	}

	if p < e.thresholds.SRMAlpha {
		return verdict.ValidationVerdict{
			Check:     verdict.CheckSRM,
			Status:    verdict.StatusFail,
			Statistic: chi2,
			PValue:    pvalue(p),
			Message: fmt.Sprintf("sample ratio mismatch detected (chi2=%.4f, p=%.6f < %.3f): experiment is invalid",
				chi2, p, e.thresholds.SRMAlpha),
		}
	}

	return verdict.ValidationVerdict{
		Check:     verdict.CheckSRM,
		Status:    verdict.StatusPass,
		Statistic: chi2,
		PValue:    pvalue(p),
		Message:   fmt.Sprintf("allocation matches declared ratio (chi2=%.4f, p=%.4f)", chi2, p),
	}
}
