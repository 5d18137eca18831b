package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
)

// Apply executes every embedded migration in lexical order. Statements are
// written to be idempotent, so running Apply on an already migrated database
// is a no-op.
func Apply(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, name := range names {
		script, err := FS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
