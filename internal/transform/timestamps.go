package transform

import (
	"strings"
	"time"

	"logiflow/internal/dataset"
)

// TimestampLayouts are the accepted input formats for timestamp columns, in
// matching order.
var TimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timestampColumns returns the columns whose name suggests a point in time.
func timestampColumns(ds *dataset.Dataset) []string {
	var cols []string
	for _, c := range ds.Columns() {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "timestamp") || strings.Contains(lc, "date") {
			cols = append(cols, c)
		}
	}
	return cols
}

// standardizeTimestamps parses the named columns into UTC time.Time values
// in place. Unparseable values coerce to null.
func standardizeTimestamps(ds *dataset.Dataset, cols []string) {
	for _, c := range cols {
		if !ds.HasColumn(c) {
			continue
		}
		for _, row := range ds.Rows() {
			v := row[c]
			if dataset.IsNull(v) {
				continue
			}
			if ts, ok := dataset.AsTime(v, TimestampLayouts...); ok {
				row[c] = ts.UTC()
			} else {
				row[c] = nil
			}
		}
	}
}
