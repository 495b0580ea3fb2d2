// Package all registers every built-in storage backend. Importing it, even
// blank, runs the backend init functions, which hand their factories and DDL
// bootstrappers to the storage package:
//
//	import _ "logiflow/internal/storage/all"
//
// After that storage.New can open "sqlite" and "postgres" repositories and
// storage.EnsureSchema can bootstrap either dialect, so the rest of the
// application stays backend-agnostic.
package all

import (
	_ "logiflow/internal/storage/postgres"
	_ "logiflow/internal/storage/sqlite"
)
