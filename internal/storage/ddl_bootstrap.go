package storage

import (
	"context"
	"fmt"
	"sync"

	"logiflow/internal/schema"
)

// DDLBootstrapper is a backend-specific function that creates the managed
// tables (typically CREATE TABLE IF NOT EXISTS via repo.Exec).
//
// Backends (sqlite, postgres) register their implementation for a storage
// kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository) error

var (
	bootMu        sync.RWMutex
	bootstrappers = map[string]DDLBootstrapper{}
)

// RegisterDDL installs the DDLBootstrapper for a storage kind, replacing any
// earlier registration. Backend packages call this from init.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	bootMu.Lock()
	defer bootMu.Unlock()
	bootstrappers[kind] = fn
}

// EnsureSchema locates the DDLBootstrapper for the storage kind and invokes
// it. Callers do not need to know which backend they are using.
func EnsureSchema(ctx context.Context, kind string, repo Repository) error {
	bootMu.RLock()
	fn, ok := bootstrappers[kind]
	bootMu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no DDL bootstrapper for kind %q", kind)
	}
	return fn(ctx, repo)
}

// DropSchema drops every managed table, dependents first. DROP TABLE IF
// EXISTS is portable across both supported dialects, so this lives here
// rather than in the backends.
func DropSchema(ctx context.Context, repo Repository) error {
	for _, t := range schema.DropOrder() {
		if err := repo.Exec(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	return nil
}
