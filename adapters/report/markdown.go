// Package report renders analysis results as Markdown, HTML and Excel
// workbooks for human review.
package report

import (
	"fmt"
	"strings"

	"ablab/internal/analysis"
)

// Markdown renders one experiment's full analysis as a Markdown document
func Markdown(a *analysis.Analysis) string {
	var b strings.Builder

	name := string(a.ExperimentID)
	if a.Config != nil && a.Config.Name != "" {
		name = a.Config.Name
	}
	fmt.Fprintf(&b, "# Experiment Report: %s\n\n", name)
	fmt.Fprintf(&b, "- Experiment: `%s`\n", a.ExperimentID)
	fmt.Fprintf(&b, "- Run: `%s`\n", a.RunID)
	fmt.Fprintf(&b, "- Generated: %s\n", a.CreatedAt)
	fmt.Fprintf(&b, "- Alpha: %.3f\n", a.Alpha)
	if a.Correction != "" {
		fmt.Fprintf(&b, "- Correction: %s\n", a.Correction)
	}
	b.WriteString("\n")

	writeValidation(&b, a)

	if !a.Tested() {
		b.WriteString("## Hypothesis Tests\n\n")
		b.WriteString("**Testing skipped**: a gating validation check failed. ")
		b.WriteString("Fix the data collection issue and rerun before drawing any conclusion.\n")
		return b.String()
	}

	writeResults(&b, a)
	writeSkipped(&b, a)
	return b.String()
}

func writeValidation(b *strings.Builder, a *analysis.Analysis) {
	b.WriteString("## Validation\n\n")
	fmt.Fprintf(b, "Overall status: **%s**\n\n", a.Validation.Status())
	b.WriteString("| Check | Status | Statistic | p-value | Detail |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, v := range a.Validation.Verdicts {
		p := "-"
		if v.PValue != nil {
			p = fmt.Sprintf("%.4f", *v.PValue)
		}
		fmt.Fprintf(b, "| %s | %s | %.4f | %s | %s |\n",
			v.Check, v.Status, v.Statistic, p, v.Message)
	}
	b.WriteString("\n")
}

func writeResults(b *strings.Builder, a *analysis.Analysis) {
	b.WriteString("## Hypothesis Tests\n\n")
	if len(a.Results) == 0 {
		b.WriteString("No metrics were tested.\n\n")
		return
	}

	b.WriteString("| Metric | Test | Statistic | Raw p | Corrected p | Effect | Significant |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range a.Results {
		sig := "no"
		if r.Significant {
			sig = "**yes**"
		}
		test := string(r.Test)
		if r.FellBack {
			test += " (fallback)"
		}
		fmt.Fprintf(b, "| %s | %s | %.4f | %.4f | %.4f | %s=%.4f | %s |\n",
			r.Metric, test, r.Statistic, r.RawPValue, r.CorrectedPValue,
			r.EffectSizeKind, r.EffectSize, sig)
	}
	b.WriteString("\n")

	for _, r := range a.Results {
		if len(r.Summaries) == 0 && len(r.Pairwise) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", r.Metric)
		if len(r.Summaries) > 0 {
			b.WriteString("| Variant | N | Mean | Median | Std Dev |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, s := range r.Summaries {
				fmt.Fprintf(b, "| %s | %d | %.4f | %.4f | %.4f |\n",
					s.Variant, s.N, s.Mean, s.Median, s.StdDev)
			}
			b.WriteString("\n")
		}
		if r.Interval != nil {
			fmt.Fprintf(b, "%.0f%% CI on the difference: [%.4f, %.4f]\n\n",
				r.Interval.Level*100, r.Interval.Lower, r.Interval.Upper)
		}
		if len(r.Pairwise) > 0 {
			b.WriteString("Post-hoc pairwise comparisons (Holm-corrected within family):\n\n")
			b.WriteString("| A | B | U | Raw p | Corrected p | Significant |\n")
			b.WriteString("|---|---|---|---|---|---|\n")
			for _, pc := range r.Pairwise {
				sig := "no"
				if pc.Significant {
					sig = "yes"
				}
				fmt.Fprintf(b, "| %s | %s | %.1f | %.4f | %.4f | %s |\n",
					pc.VariantA, pc.VariantB, pc.UStatistic, pc.RawPValue, pc.CorrectedP, sig)
			}
			b.WriteString("\n")
		}
	}
}

func writeSkipped(b *strings.Builder, a *analysis.Analysis) {
	if len(a.Skipped) == 0 {
		return
	}
	b.WriteString("## Skipped Metrics\n\n")
	for _, s := range a.Skipped {
		fmt.Fprintf(b, "- `%s`: %s\n", s.Metric, s.Reason)
	}
	b.WriteString("\n")
}

// Summary renders a cross-experiment overview for a batch run
func Summary(analyses []*analysis.Analysis) string {
	var b strings.Builder
	b.WriteString("# Batch Summary\n\n")
	b.WriteString("| Experiment | Validation | Tested | Significant | Skipped |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, a := range analyses {
		tested := len(a.Results)
		significant := len(a.SignificantResults())
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d |\n",
			a.ExperimentID, a.Validation.Status(), tested, significant, len(a.Skipped))
	}
	b.WriteString("\n")
	return b.String()
}
