package migrations

import (
	"os"
	"path/filepath"
)

var (
	// MigrationsDir can be overridden in tests or by the application
	MigrationsDir = "scripts/migrations"
)

// initialSchema mirrors scripts/migrations/001_initial_schema.sql and is used
// when the schema file cannot be located (tests run from package directories).
const initialSchema = `
CREATE TABLE IF NOT EXISTS pending_submissions (
    id TEXT PRIMARY KEY,
    endpoint_base TEXT NOT NULL,
    api_key TEXT NOT NULL,
    payload TEXT NOT NULL,
    media TEXT,
    created_at TIMESTAMP NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_attempt_at TIMESTAMP,
    last_error TEXT
);

CREATE INDEX IF NOT EXISTS idx_pending_submissions_created_at
    ON pending_submissions(created_at);
`

// GetInitialSchema returns the initial queue store schema
func GetInitialSchema() (string, error) {
	searchPaths := []string{
		filepath.Join(MigrationsDir, "001_initial_schema.sql"),
		filepath.Join("..", "..", MigrationsDir, "001_initial_schema.sql"),
		filepath.Join("..", MigrationsDir, "001_initial_schema.sql"),
	}

	for _, path := range searchPaths {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	return initialSchema, nil
}
