package sqlite

// Config carries what NewRepository needs to open a database.
type Config struct {
	// DSN is a SQLite connection string or plain file path, e.g.
	// "file:logiflow.db?cache=shared" or just "logiflow.db".
	DSN string
}
