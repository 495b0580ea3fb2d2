package postgres

import (
	"context"
	"fmt"

	"logiflow/internal/schema"
	"logiflow/internal/storage"
	pgddl "logiflow/internal/storage/postgres/ddl"
)

// newRepository is swapped out by tests that must not dial a real server.
var newRepository = NewRepository

// handle couples a Repository with the pool cleanup returned next to it,
// completing the storage.Repository surface.
type handle struct {
	*Repository
	cleanup func()
}

func (h *handle) Close() {
	if h.cleanup != nil {
		h.cleanup()
	}
}

var _ storage.Repository = (*handle)(nil)

// Registration under the "postgres" kind: the repository factory plus a
// schema bootstrapper covering every managed table. Callers reach both
// through the storage package and never import this one directly.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, cleanup, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &handle{Repository: r, cleanup: cleanup}, nil
	})

	storage.RegisterDDL("postgres", func(ctx context.Context, repo storage.Repository) error {
		for _, tbl := range schema.AllTables() {
			if err := pgddl.EnsureTable(ctx, repo, tbl); err != nil {
				return fmt.Errorf("ensure table %s: %w", tbl.Name, err)
			}
		}
		return nil
	})
}
