package suite

import (
	"math"
	"sort"

	"ablab/domain/core"
	"ablab/internal/errors"
)

// ChiSquareResult is the outcome of a chi-square test of independence
type ChiSquareResult struct {
	ChiSquare      float64
	PValue         float64
	DegreesFreedom float64
	CramersV       float64
	RowTotals      []float64
	ColTotals      []float64
}

// ChiSquareIndependence tests whether the categorical outcome
// distribution differs across variants. table is rows = variants,
// columns = outcome categories. Effect size is Cramer's V.
func ChiSquareIndependence(table [][]float64) (*ChiSquareResult, error) {
	rows := len(table)
	if rows < 2 {
		return nil, errors.ComputationError("contingency table needs at least 2 rows")
	}
	cols := len(table[0])
	if cols < 2 {
		return nil, errors.ComputationError("contingency table needs at least 2 columns")
	}

	rowTotals := make([]float64, rows)
	colTotals := make([]float64, cols)
	grandTotal := 0.0
	for i, row := range table {
		if len(row) != cols {
			return nil, errors.ComputationError("ragged contingency table")
		}
		for j, count := range row {
			if count < 0 {
				return nil, errors.ComputationError("negative cell count")
			}
			rowTotals[i] += count
			colTotals[j] += count
			grandTotal += count
		}
	}
	if grandTotal == 0 {
		return nil, errors.InsufficientData("empty contingency table")
	}
	for i := range rowTotals {
		if rowTotals[i] < MinGroupSize {
			return nil, errors.InsufficientData("variant row has fewer than 2 observations")
		}
	}

	chi2 := 0.0
	for i := range table {
		for j := range table[i] {
			expected := rowTotals[i] * colTotals[j] / grandTotal
			if expected == 0 {
				continue
			}
			diff := table[i][j] - expected
			chi2 += diff * diff / expected
		}
	}

	df := float64((rows - 1) * (cols - 1))
	p := chiSquareSF(chi2, df)

	minDim := float64(rows - 1)
	if c := float64(cols - 1); c < minDim {
		minDim = c
	}
	v := 0.0
	if minDim > 0 {
		v = math.Sqrt(chi2 / (grandTotal * minDim))
	}

	return &ChiSquareResult{
		ChiSquare:      chi2,
		PValue:         p,
		DegreesFreedom: df,
		CramersV:       v,
		RowTotals:      rowTotals,
		ColTotals:      colTotals,
	}, nil
}

// ContingencyTable builds a variants x categories count table from raw
// metric values. Category columns are ordered by value for determinism.
func ContingencyTable(variants []core.VariantKey, groups [][]float64) [][]float64 {
	categories := make(map[float64]int)
	for _, g := range groups {
		for _, v := range g {
			categories[v] = 0
		}
	}
	ordered := make([]float64, 0, len(categories))
	for v := range categories {
		ordered = append(ordered, v)
	}
	sort.Float64s(ordered)
	for i, v := range ordered {
		categories[v] = i
	}

	table := make([][]float64, len(groups))
	for i, g := range groups {
		table[i] = make([]float64, len(ordered))
		for _, v := range g {
			table[i][categories[v]]++
		}
	}
	return table
}
