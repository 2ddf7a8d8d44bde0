package plugin

import (
	"context"
	"database/sql"
)

// Store provides shared SQLite persistence to modules. Each module owns its
// tables and registers its migrations under its own name.
type Store interface {
	// DB returns the underlying database handle for direct queries.
	DB() *sql.DB

	// Tx executes fn within a transaction, committing on nil and rolling
	// back on error.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Migrate applies the module's pending migrations in version order.
	Migrate(ctx context.Context, moduleName string, migrations []Migration) error
}

// Migration is a single schema change owned by a module.
type Migration struct {
	Version     int    // Monotonically increasing per module, starting at 1
	Description string // Short summary recorded in the migration ledger
	Up          func(tx *sql.Tx) error
}
