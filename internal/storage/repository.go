// Package storage contains storage-agnostic contracts and utilities: the
// Repository interface every backend implements, a factory registry keyed by
// backend kind, and the dialect-neutral reconcile loader built on top.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Config carries everything a backend needs to open a repository.
type Config struct {
	// Kind selects the backend, e.g. "sqlite" or "postgres".
	Kind string
	// DSN is the backend connection string: a file path or file: URI for
	// sqlite, a postgres URL for pgx.
	DSN string
}

// Repository is the dialect-specific surface the loader drives: schema
// introspection, batched inserts, single-row upserts and raw DDL execution.
type Repository interface {
	// TableExists reports whether the named table is present.
	TableExists(ctx context.Context, table string) (bool, error)

	// TableColumns returns the declared column names of the table in
	// definition order. A missing table yields an empty slice.
	TableColumns(ctx context.Context, table string) ([]string, error)

	// RowCount returns SELECT COUNT(*) for the table.
	RowCount(ctx context.Context, table string) (int64, error)

	// InsertBatch appends rows (each aligned to the columns order) inside
	// one transaction or COPY. It is all-or-nothing per call and returns
	// the number of rows written.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// UpsertRow inserts or updates a single row keyed on keyCol, naming
	// only the given columns. Each call commits independently.
	UpsertRow(ctx context.Context, table, keyCol string, columns []string, values []any) error

	// Exec executes an arbitrary SQL statement, typically DDL.
	Exec(ctx context.Context, sql string) error

	// Close releases the underlying handles.
	Close()
}

// Factory constructs a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for a backend kind. It is
// typically called from backend packages' init() functions; tests use it to
// install fakes.
func Register(kind string, fn Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = fn
}

// New opens a repository of the configured kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	fn, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return fn(ctx, cfg)
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NormalizeKind maps accepted aliases onto registered kinds; the CLI accepts
// "postgresql" for the "postgres" backend.
func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "postgresql" {
		return "postgres"
	}
	return k
}
