package ddl

import (
	"context"

	"logiflow/internal/schema"
	"logiflow/internal/storage"
)

// EnsureTable issues the table's CREATE TABLE IF NOT EXISTS statement through
// the repository. Repeat calls against an existing table are no-ops.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	stmt, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
