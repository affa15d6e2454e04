package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInitialSchema_EmbeddedFallback(t *testing.T) {
	original := MigrationsDir
	MigrationsDir = filepath.Join(t.TempDir(), "does-not-exist")
	defer func() { MigrationsDir = original }()

	schema, err := GetInitialSchema()
	require.NoError(t, err)
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS pending_submissions")
	assert.Contains(t, schema, "idx_pending_submissions_created_at")
}

func TestGetInitialSchema_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_initial_schema.sql"), []byte("-- custom schema"), 0600))

	original := MigrationsDir
	MigrationsDir = dir
	defer func() { MigrationsDir = original }()

	schema, err := GetInitialSchema()
	require.NoError(t, err)
	assert.Equal(t, "-- custom schema", schema)
}
