package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"logiflow/internal/schema"
)

// Run log statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
	RunStatusSkipped = "skipped"
)

// RunRecord is one bookkeeping row in etl_run_log: what a pipeline run did to
// one table.
type RunRecord struct {
	Timestamp        time.Time // zero means now
	Table            string
	Source           string
	RowsExtracted    int64
	RowsTransformed  int64
	RowsLoaded       int64
	ValidationPassed *bool // nil when validation was skipped
	ValidationErrors string
	Duration         time.Duration
	Status           string
}

// AppendRunRecord writes rec into the run-log table.
func AppendRunRecord(ctx context.Context, repo Repository, rec RunRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var passed any
	if rec.ValidationPassed != nil {
		passed = *rec.ValidationPassed
	}
	var verrs any
	if rec.ValidationErrors != "" {
		verrs = rec.ValidationErrors
	}

	cols := []string{
		"run_timestamp", "table_name", "source",
		"rows_extracted", "rows_transformed", "rows_loaded",
		"validation_passed", "validation_errors",
		"duration_seconds", "status",
	}
	row := []any{
		ts.UTC(), rec.Table, rec.Source,
		rec.RowsExtracted, rec.RowsTransformed, rec.RowsLoaded,
		passed, verrs,
		math.Round(rec.Duration.Seconds()*100) / 100, rec.Status,
	}

	if _, err := repo.InsertBatch(ctx, schema.RunLog.Name, cols, [][]any{row}); err != nil {
		return fmt.Errorf("append run record for %s: %w", rec.Table, err)
	}
	return nil
}

// TableCounts returns the current row count of every named table that exists.
func TableCounts(ctx context.Context, repo Repository, tables []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		exists, err := repo.TableExists(ctx, t)
		if err != nil {
			return counts, fmt.Errorf("inspect %s: %w", t, err)
		}
		if !exists {
			continue
		}
		n, err := repo.RowCount(ctx, t)
		if err != nil {
			return counts, fmt.Errorf("count %s: %w", t, err)
		}
		counts[t] = n
	}
	return counts, nil
}
