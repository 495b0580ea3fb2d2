// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite does
// not have a dedicated bulk-load API like Postgres COPY, but transactions keep
// performance acceptable for moderate volumes. Single-row upserts use
// INSERT ... ON CONFLICT DO UPDATE, available since SQLite 3.24.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// DSN is passed directly to database/sql; for example:
//
//	"file:logiflow.db?cache=shared&_fk=1"
//	"logiflow.db"
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid DSNs.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// Enable foreign keys by default; ignore error if driver doesn't support it.
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// TableExists reports whether the named table is present in sqlite_master.
func (r *Repository) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, table).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: table exists %s: %w", table, err)
	}
	return n > 0, nil
}

// TableColumns returns the declared column names of the table in definition
// order, via the pragma_table_info table-valued function. A missing table
// yields an empty slice.
func (r *Repository) TableColumns(ctx context.Context, table string) ([]string, error) {
	const q = `SELECT name FROM pragma_table_info(?) ORDER BY cid`
	rows, err := r.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite: table columns %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: table columns %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: table columns %s: %w", table, err)
	}
	return cols, nil
}

// RowCount returns SELECT COUNT(*) for the table.
func (r *Repository) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + quoteFQN(table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return n, nil
}

// InsertBatch inserts the given rows into the table using a single
// transaction and a prepared INSERT statement.
//
// The call is all-or-nothing: any failure rolls the transaction back and
// reports zero rows written. len(row) must equal len(columns) for every row.
func (r *Repository) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: insert batch: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	// Build INSERT INTO <table> (<cols>) VALUES (?, ?, ...).
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteFQN(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert batch: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// UpsertRow inserts or updates a single row keyed on keyCol via
// INSERT ... ON CONFLICT DO UPDATE. The statement names only the given
// columns, so absent columns keep their current values on conflict. Each call
// commits independently.
func (r *Repository) UpsertRow(ctx context.Context, table, keyCol string, columns []string, values []any) error {
	stmtSQL, args, err := upsertStatement(table, keyCol, columns, values)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmtSQL, args...); err != nil {
		return fmt.Errorf("sqlite: upsert into %s: %w", table, err)
	}
	return nil
}

// upsertStatement builds the ON CONFLICT upsert for one row. Non-key values
// are bound twice: once for the insert arm, once for the update arm. A row
// that carries nothing but the key degrades to DO NOTHING.
func upsertStatement(table, keyCol string, columns []string, values []any) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("sqlite: upsert: columns must not be empty")
	}
	if len(values) != len(columns) {
		return "", nil, fmt.Errorf("sqlite: upsert: values length %d != columns length %d", len(values), len(columns))
	}
	hasKey := false
	for _, c := range columns {
		if c == keyCol {
			hasKey = true
			break
		}
	}
	if !hasKey {
		return "", nil, fmt.Errorf("sqlite: upsert: key column %s not among columns", keyCol)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, 0, 2*len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
		args = append(args, values[i])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s)",
		quoteFQN(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	sets := make([]string, 0, len(columns))
	for i, c := range columns {
		if c == keyCol {
			continue
		}
		sets = append(sets, quoteIdent(c)+" = ?")
		args = append(args, values[i])
	}
	if len(sets) == 0 {
		fmt.Fprintf(&sb, " ON CONFLICT(%s) DO NOTHING", quoteIdent(keyCol))
	} else {
		fmt.Fprintf(&sb, " ON CONFLICT(%s) DO UPDATE SET %s", quoteIdent(keyCol), strings.Join(sets, ", "))
	}
	return sb.String(), args, nil
}

// Exec executes an arbitrary SQL statement (typically DDL) using the underlying
// database/sql connection.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func quoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
