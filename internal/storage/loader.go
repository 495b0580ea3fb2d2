// This file implements the reconcile loader: it takes a cleaned dataset and
// writes it into one table, choosing between batched appends, a bulk insert
// into an empty table, or per-row upserts against existing rows.
//
// Backends supply the primitives (InsertBatch, UpsertRow); the strategy and
// its failure isolation live here. Row-level failures are logged and skipped,
// batch-level failures skip the batch and the run continues; only a failed
// bulk insert into an empty table is fatal.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
	"logiflow/internal/schema"
)

// DefaultBatchSize is the number of rows per append batch.
const DefaultBatchSize = 1000

// Load modes reported in LoadResult.Mode.
const (
	ModeEmpty   = "empty"
	ModeSkipped = "skipped"
	ModeAppend  = "append"
	ModeBulk    = "bulk_insert"
	ModeUpsert  = "upsert"
)

// LoadResult reports what one table load did.
type LoadResult struct {
	Table   string
	Mode    string
	Loaded  int64 // rows written
	Skipped int64 // rows dropped by per-row or per-batch failures
}

// Loader reconciles datasets with persisted tables through a Repository. It
// is not safe for concurrent use against the same table.
type Loader struct {
	Repo      Repository
	BatchSize int
	Log       zerolog.Logger

	now func() time.Time // test seam for audit stamps
}

func NewLoader(repo Repository, log zerolog.Logger) *Loader {
	return &Loader{
		Repo:      repo,
		BatchSize: DefaultBatchSize,
		Log:       log,
		now:       time.Now,
	}
}

// Load writes ds into tbl. The incoming dataset is never modified; audit
// stamping and projection happen on a private copy.
//
// Strategy, in order:
//
//  1. An empty dataset loads zero rows and never touches the database.
//  2. updated_at is stamped on every row; created_at only when the dataset
//     does not already carry that column.
//  3. The dataset is projected onto the table's actual columns; a missing
//     table logs a warning and loads zero rows.
//  4. Without a usable upsert key the rows are appended in batches.
//  5. An empty target table takes the whole dataset as a bulk insert.
//  6. Otherwise each row is upserted independently, naming only its
//     non-null columns.
func (l *Loader) Load(ctx context.Context, tbl schema.Table, ds *dataset.Dataset) (LoadResult, error) {
	res := LoadResult{Table: tbl.Name, Mode: ModeEmpty}
	if ds == nil || ds.Len() == 0 {
		l.Log.Info().Str("table", tbl.Name).Msg("nothing to load")
		return res, nil
	}

	start := time.Now()
	work := ds.Clone()
	l.stampAuditColumns(work)

	exists, err := l.Repo.TableExists(ctx, tbl.Name)
	if err != nil {
		return res, fmt.Errorf("inspect %s: %w", tbl.Name, err)
	}
	if !exists {
		l.Log.Warn().Str("table", tbl.Name).Msg("table does not exist, skipping load")
		res.Mode = ModeSkipped
		return res, nil
	}

	tableCols, err := l.Repo.TableColumns(ctx, tbl.Name)
	if err != nil {
		return res, fmt.Errorf("columns of %s: %w", tbl.Name, err)
	}
	work = work.Project(tableCols)
	if len(work.Columns()) == 0 {
		l.Log.Warn().Str("table", tbl.Name).Msg("no dataset columns match the table, skipping load")
		res.Mode = ModeSkipped
		return res, nil
	}

	key := tbl.UpsertKey
	if !tbl.Upsert || key == "" || !work.HasColumn(key) {
		res, err = l.appendBatches(ctx, tbl.Name, work, res)
	} else {
		var count int64
		count, err = l.Repo.RowCount(ctx, tbl.Name)
		if err != nil {
			return res, fmt.Errorf("count %s: %w", tbl.Name, err)
		}
		if count == 0 {
			res, err = l.bulkInsert(ctx, tbl.Name, work, res)
		} else {
			res, err = l.upsertRows(ctx, tbl.Name, key, work, res)
		}
	}
	if err != nil {
		return res, err
	}

	elapsed := time.Since(start)
	rps := float64(0)
	if elapsed > 0 {
		rps = float64(res.Loaded) / elapsed.Seconds()
	}
	l.Log.Info().
		Str("table", tbl.Name).
		Str("mode", res.Mode).
		Int64("loaded", res.Loaded).
		Int64("skipped", res.Skipped).
		Dur("elapsed", elapsed.Truncate(time.Millisecond)).
		Float64("rps", rps).
		Msg("load complete")
	return res, nil
}

// stampAuditColumns writes updated_at on every row and created_at only when
// the dataset does not already carry the column.
func (l *Loader) stampAuditColumns(ds *dataset.Dataset) {
	ts := l.now().UTC()
	ds.SetColumn("updated_at", ts)
	if !ds.HasColumn("created_at") {
		ds.SetColumn("created_at", ts)
	}
}

// appendBatches inserts rows batch by batch. A failed batch is logged and
// skipped; the remaining batches still load.
func (l *Loader) appendBatches(ctx context.Context, table string, ds *dataset.Dataset, res LoadResult) (LoadResult, error) {
	res.Mode = ModeAppend
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	cols := ds.Columns()
	batch := make([][]any, 0, size)
	batches := int64(0)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := l.Repo.InsertBatch(ctx, table, cols, batch)
		if err != nil {
			res.Skipped += int64(len(batch))
			l.Log.Error().Err(err).
				Str("table", table).
				Int("rows", len(batch)).
				Msg("batch insert failed, skipping batch")
		} else {
			res.Loaded += n
			batches++
			l.Log.Debug().
				Str("table", table).
				Int64("batch", batches).
				Int64("inserted", n).
				Int64("total_inserted", res.Loaded).
				Msg("batch flushed")
		}
		// Reuse the allocated slice; keep capacity to avoid churn.
		batch = batch[:0]
		return nil
	}

	for i := 0; i < ds.Len(); i++ {
		batch = append(batch, rowValues(ds.Row(i), cols))
		if len(batch) >= size {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// bulkInsert fills an empty table. Unlike appendBatches, any failure here is
// fatal: a partial first load would masquerade as reconciled data.
func (l *Loader) bulkInsert(ctx context.Context, table string, ds *dataset.Dataset, res LoadResult) (LoadResult, error) {
	res.Mode = ModeBulk
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	cols := ds.Columns()
	for offset := 0; offset < ds.Len(); offset += size {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := offset + size
		if end > ds.Len() {
			end = ds.Len()
		}
		rows := make([][]any, 0, end-offset)
		for i := offset; i < end; i++ {
			rows = append(rows, rowValues(ds.Row(i), cols))
		}
		n, err := l.Repo.InsertBatch(ctx, table, cols, rows)
		if err != nil {
			return res, fmt.Errorf("bulk insert %s: %w", table, err)
		}
		res.Loaded += n
	}
	return res, nil
}

// upsertRows reconciles row by row. Each upsert names only the row's non-null
// columns so partially-populated rows never blank out existing values. A
// failed row is logged and skipped.
func (l *Loader) upsertRows(ctx context.Context, table, key string, ds *dataset.Dataset, res LoadResult) (LoadResult, error) {
	res.Mode = ModeUpsert
	cols := ds.Columns()

	for i := 0; i < ds.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := ds.Row(i)

		ucols := make([]string, 0, len(cols))
		vals := make([]any, 0, len(cols))
		keyed := false
		for _, c := range cols {
			v, ok := row[c]
			if !ok || dataset.IsNull(v) {
				continue
			}
			if c == key {
				keyed = true
			}
			ucols = append(ucols, c)
			vals = append(vals, v)
		}
		if !keyed {
			res.Skipped++
			l.Log.Warn().Str("table", table).Int("row", i).Msg("row has no upsert key value, skipping")
			continue
		}

		if err := l.Repo.UpsertRow(ctx, table, key, ucols, vals); err != nil {
			res.Skipped++
			l.Log.Warn().Err(err).Str("table", table).Int("row", i).Msg("row upsert failed, skipping")
			continue
		}
		res.Loaded++
	}
	return res, nil
}

// rowValues aligns a row to the column order; missing and null cells become
// nil.
func rowValues(row dataset.Row, cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		if v, ok := row[c]; ok && !dataset.IsNull(v) {
			out[i] = v
		}
	}
	return out
}
