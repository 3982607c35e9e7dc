package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "audit.db")

	conn, err := Open(ctx, KindSQLite, path, zerolog.Nop())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(ctx, conn, KindSQLite, zerolog.Nop()))
	// Already applied migrations are skipped.
	require.NoError(t, Migrate(ctx, conn, KindSQLite, zerolog.Nop()))

	for _, table := range []string{"audit_exchanges", "audit_turns"} {
		var name string
		err := conn.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err)
		assert.Equal(t, table, name)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, KindSQLite, "", zerolog.Nop())
	assert.Error(t, err)

	_, err = Open(ctx, "oracle", "dsn", zerolog.Nop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database kind")
}
