package ingest

import (
	"context"

	"bugrelay/internal/models"
)

// Status classifies the outcome of one delivery attempt.
type Status string

const (
	// StatusDelivered means the ingestion endpoint accepted the report.
	// The caller must remove the buffered record.
	StatusDelivered Status = "delivered"
	// StatusRetryable means the attempt failed transiently (network error,
	// timeout, 5xx). The caller should reschedule.
	StatusRetryable Status = "retryable"
	// StatusTerminal means the endpoint rejected the payload permanently
	// (validation-class 4xx). Retrying cannot succeed without changing the
	// payload, which this component cannot do.
	StatusTerminal Status = "terminal"
)

// Result is the classified outcome of a single delivery attempt.
type Result struct {
	Status   Status
	ReportID string
	Reason   string
}

// Submitter performs exactly one network delivery attempt for one buffered
// submission. It never touches the queue store.
type Submitter interface {
	Attempt(ctx context.Context, sub *models.PendingSubmission) Result
}

// SubmitResponse is the ingestion endpoint's JSON response body.
type SubmitResponse struct {
	Success  bool   `json:"success"`
	ReportID string `json:"reportId,omitempty"`
	Message  string `json:"message,omitempty"`
}
