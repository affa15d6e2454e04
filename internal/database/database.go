package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"bugrelay/internal/migrations"
	"bugrelay/internal/models"
	"bugrelay/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the durable queue store for pending submissions. Records are
// keyed by id; GetAllSubmissions returns them oldest-first.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveSubmission inserts or overwrites a pending submission by id.
// Calling it repeatedly with the same id is safe (last write wins).
func (d *Database) SaveSubmission(ctx context.Context, sub *models.PendingSubmission) error {
	payloadJSON, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	encryptedPayload, err := d.encryptor.EncryptIfEnabled(string(payloadJSON))
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	var encryptedMedia *string
	if len(sub.Media) > 0 {
		mediaJSON, err := json.Marshal(sub.Media)
		if err != nil {
			return fmt.Errorf("failed to marshal media: %w", err)
		}
		encrypted, err := d.encryptor.EncryptIfEnabled(string(mediaJSON))
		if err != nil {
			return fmt.Errorf("failed to encrypt media: %w", err)
		}
		encryptedMedia = &encrypted
	}

	var lastAttemptAt interface{}
	if sub.LastAttemptAt != nil {
		lastAttemptAt = *sub.LastAttemptAt
	}

	err = retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, UpsertPendingSubmissionQuery,
			sub.ID,
			sub.Destination.EndpointBase,
			sub.Destination.APIKey,
			encryptedPayload,
			encryptedMedia,
			sub.CreatedAt,
			sub.RetryCount,
			lastAttemptAt,
			nullableString(sub.LastError),
		)
		return execErr
	}, "save submission")
	if err != nil {
		return fmt.Errorf("failed to save submission: %w", err)
	}

	return nil
}

// GetAllSubmissions returns every buffered submission ordered by creation
// time ascending. Each call performs a fresh read.
func (d *Database) GetAllSubmissions(ctx context.Context) ([]*models.PendingSubmission, error) {
	rows, err := d.db.QueryContext(ctx, SelectAllPendingSubmissionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []*models.PendingSubmission
	for rows.Next() {
		sub, err := d.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return subs, nil
}

// DeleteSubmission removes a submission by id. Deleting an absent id is a no-op.
func (d *Database) DeleteSubmission(ctx context.Context, id string) error {
	err := retryableDBOperation(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, DeletePendingSubmissionQuery, id)
		return execErr
	}, "delete submission")
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	return nil
}

// CountSubmissions returns the number of buffered submissions.
func (d *Database) CountSubmissions(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, CountPendingSubmissionsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// ClearSubmissions removes all buffered submissions. Test and debug use only.
func (d *Database) ClearSubmissions(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, ClearPendingSubmissionsQuery); err != nil {
		return fmt.Errorf("failed to clear submissions: %w", err)
	}
	return nil
}

func (d *Database) scanSubmission(rows *sql.Rows) (*models.PendingSubmission, error) {
	var (
		sub              models.PendingSubmission
		encryptedPayload string
		encryptedMedia   *string
		lastAttemptAt    sql.NullTime
		lastError        sql.NullString
	)

	err := rows.Scan(
		&sub.ID,
		&sub.Destination.EndpointBase,
		&sub.Destination.APIKey,
		&encryptedPayload,
		&encryptedMedia,
		&sub.CreatedAt,
		&sub.RetryCount,
		&lastAttemptAt,
		&lastError,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	payloadJSON, err := d.encryptor.DecryptIfEnabled(encryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &sub.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if encryptedMedia != nil {
		mediaJSON, err := d.encryptor.DecryptIfEnabled(*encryptedMedia)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt media: %w", err)
		}
		if err := json.Unmarshal([]byte(mediaJSON), &sub.Media); err != nil {
			return nil, fmt.Errorf("failed to unmarshal media: %w", err)
		}
	}

	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		sub.LastAttemptAt = &t
	}
	if lastError.Valid {
		sub.LastError = lastError.String
	}

	return &sub, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
