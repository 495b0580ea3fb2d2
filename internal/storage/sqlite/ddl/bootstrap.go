package ddl

import (
	"context"

	"logiflow/internal/schema"
	"logiflow/internal/storage"
)

// EnsureTable renders the table's CREATE TABLE IF NOT EXISTS statement and
// executes it through the repository. Safe to repeat for existing tables.
func EnsureTable(ctx context.Context, repo storage.Repository, tbl schema.Table) error {
	stmt, err := BuildCreateTableSQL(tbl)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
