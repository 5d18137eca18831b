package store

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"quotaguard/migrations"
)

// The counterColumns whitelist and the embedded schema must agree: a column
// the store writes through a conditional UPDATE has to exist in the
// migration that creates the tenants table.
func TestMigrationDeclaresWhitelistedColumns(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names, "no embedded migrations found")

	var schema string
	for _, name := range names {
		script, err := migrations.FS.ReadFile(name)
		require.NoError(t, err)
		schema += string(script)
	}

	for field, column := range counterColumns {
		require.Contains(t, schema, column, "counter field %s maps to an undeclared column", field)
	}
	require.Contains(t, schema, "expense_window_start", "the windowed reset relies on the window start column")
}
