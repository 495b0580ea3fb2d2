package transform

import (
	"math"
	"strings"

	"logiflow/internal/dataset"
)

type textCase int

const (
	caseKeep textCase = iota
	caseLower
	caseUpper
)

// normalizeText trims string values in the named columns and applies the
// case transform. Non-string values are left alone.
func normalizeText(ds *dataset.Dataset, cols []string, tc textCase) {
	for _, c := range cols {
		if !ds.HasColumn(c) {
			continue
		}
		for _, row := range ds.Rows() {
			s, ok := row[c].(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			switch tc {
			case caseLower:
				s = strings.ToLower(s)
			case caseUpper:
				s = strings.ToUpper(s)
			}
			row[c] = s
		}
	}
}

// fillNumeric replaces nulls in the named column with fill.
func fillNumeric(ds *dataset.Dataset, col string, fill float64) {
	if !ds.HasColumn(col) {
		return
	}
	for _, row := range ds.Rows() {
		if dataset.IsNull(row[col]) {
			row[col] = fill
		}
	}
}

// roundTo rounds x to the given number of decimal places.
func roundTo(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
