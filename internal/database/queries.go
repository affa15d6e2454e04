package database

// Pending submission queries
const (
	UpsertPendingSubmissionQuery = `
		INSERT OR REPLACE INTO pending_submissions (
			id, endpoint_base, api_key, payload, media,
			created_at, retry_count, last_attempt_at, last_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	SelectAllPendingSubmissionsQuery = `
		SELECT id, endpoint_base, api_key, payload, media,
			   created_at, retry_count, last_attempt_at, last_error
		FROM pending_submissions
		ORDER BY created_at ASC
	`

	DeletePendingSubmissionQuery = `
		DELETE FROM pending_submissions
		WHERE id = ?
	`

	CountPendingSubmissionsQuery = `
		SELECT COUNT(*) FROM pending_submissions
	`

	ClearPendingSubmissionsQuery = `
		DELETE FROM pending_submissions
	`
)
