package extract

import (
	"math"

	"logiflow/internal/dataset"
)

// ColumnProfile summarizes one column of a loaded dataset.
type ColumnProfile struct {
	NullCount     int      `json:"null_count"`
	NullPct       float64  `json:"null_pct"`
	DistinctCount int      `json:"distinct_count"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	Mean          *float64 `json:"mean,omitempty"`
}

// DataProfile summarizes a dataset for the extraction log.
type DataProfile struct {
	RowCount    int                      `json:"row_count"`
	ColumnCount int                      `json:"column_count"`
	Columns     map[string]ColumnProfile `json:"columns"`
}

// ProfileDataset computes per-column null counts, distinct counts and, for
// columns whose non-null values all parse as numbers, min/max/mean.
func ProfileDataset(ds *dataset.Dataset) DataProfile {
	p := DataProfile{
		RowCount:    ds.Len(),
		ColumnCount: len(ds.Columns()),
		Columns:     make(map[string]ColumnProfile, len(ds.Columns())),
	}

	rows := ds.Rows()
	for _, col := range ds.Columns() {
		cp := ColumnProfile{}
		distinct := make(map[string]struct{})

		numeric := true
		var sum, min, max float64
		var n int

		for _, row := range rows {
			v := row[col]
			if dataset.IsNull(v) {
				cp.NullCount++
				continue
			}
			distinct[dataset.AsString(v)] = struct{}{}

			f, ok := dataset.AsFloat(v)
			if !ok {
				numeric = false
				continue
			}
			if n == 0 || f < min {
				min = f
			}
			if n == 0 || f > max {
				max = f
			}
			sum += f
			n++
		}

		cp.DistinctCount = len(distinct)
		if p.RowCount > 0 {
			pct := float64(cp.NullCount) / float64(p.RowCount) * 100
			cp.NullPct = math.Round(pct*100) / 100
		}
		if numeric && n > 0 {
			mean := sum / float64(n)
			lo, hi := min, max
			cp.Min, cp.Max, cp.Mean = &lo, &hi, &mean
		}

		p.Columns[col] = cp
	}
	return p
}
