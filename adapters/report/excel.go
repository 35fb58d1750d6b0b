package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"ablab/internal/analysis"
	"ablab/internal/errors"
)

// WriteWorkbook exports a batch of analyses as an Excel workbook with
// one validation sheet and one results sheet across all experiments.
func WriteWorkbook(analyses []*analysis.Analysis, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeValidationSheet(f, analyses); err != nil {
		return err
	}
	if err := writeResultsSheet(f, analyses); err != nil {
		return err
	}

	// Drop the default sheet excelize creates
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "saving workbook")
	}
	return nil
}

func writeValidationSheet(f *excelize.File, analyses []*analysis.Analysis) error {
	const sheet = "Validation"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "creating validation sheet")
	}

	headers := []interface{}{"Experiment", "Check", "Status", "Statistic", "P-Value", "Message"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return errors.Wrap(err, "writing validation header")
	}

	row := 2
	for _, a := range analyses {
		for _, v := range a.Validation.Verdicts {
			p := ""
			if v.PValue != nil {
				p = fmt.Sprintf("%.6f", *v.PValue)
			}
			cells := []interface{}{
				string(a.ExperimentID), string(v.Check), string(v.Status),
				v.Statistic, p, v.Message,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return errors.Wrap(err, "writing validation row")
			}
			row++
		}
	}
	return nil
}

func writeResultsSheet(f *excelize.File, analyses []*analysis.Analysis) error {
	const sheet = "Results"
	if _, err := f.NewSheet(sheet); err != nil {
		return errors.Wrap(err, "creating results sheet")
	}

	headers := []interface{}{
		"Experiment", "Metric", "Test", "Statistic", "Raw P", "Corrected P",
		"Effect Size", "Effect Kind", "Significant", "N", "Fallback",
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return errors.Wrap(err, "writing results header")
	}

	row := 2
	for _, a := range analyses {
		for _, r := range a.Results {
			cells := []interface{}{
				string(a.ExperimentID), string(r.Metric), string(r.Test),
				r.Statistic, r.RawPValue, r.CorrectedPValue,
				r.EffectSize, string(r.EffectSizeKind), r.Significant,
				r.SampleSize, r.FellBack,
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return errors.Wrap(err, "writing results row")
			}
			row++
		}
	}
	return nil
}
