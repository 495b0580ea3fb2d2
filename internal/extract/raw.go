package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"logiflow/internal/dataset"
)

// writeDatasetCSV writes ds to dir/name, creating dir as needed, and returns
// the full path. Nulls become empty cells; timestamps are RFC3339.
func writeDatasetCSV(dir, name string, ds *dataset.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := ds.Columns()
	if err := w.Write(cols); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(cols))
	for _, row := range ds.Rows() {
		for j, c := range cols {
			rec[j] = csvCell(row[c])
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}

// csvCell renders one dataset value as CSV text.
func csvCell(v any) string {
	if dataset.IsNull(v) {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return dataset.AsString(v)
}
