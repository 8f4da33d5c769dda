//go:build integration

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrate tests that the embedded migrations apply and are idempotent
func TestMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	conn, err := ConnectToDB(path, zerolog.Nop())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Migrate(ctx, conn, zerolog.Nop()))
	require.NoError(t, Migrate(ctx, conn, zerolog.Nop()))

	version, err := SchemaVersion(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"content_nodes", "role_vectors", "catalog_imports"} {
		var name string
		err := conn.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

// TestConnectToDB_EmptyPath tests configuration validation
func TestConnectToDB_EmptyPath(t *testing.T) {
	_, err := ConnectToDB("", zerolog.Nop())
	assert.Error(t, err)
}
