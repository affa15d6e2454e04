package models

import "time"

// Priority classifies how urgent a bug report is.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriority reports whether p is one of the known priority values.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Destination identifies the ingestion target a submission belongs to.
type Destination struct {
	APIKey       string `json:"apiKey"`
	EndpointBase string `json:"endpointBase"`
}

// ReportPayload is the structured body of a bug report.
type ReportPayload struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Priority      Priority               `json:"priority"`
	ReporterName  string                 `json:"reporterName,omitempty"`
	ReporterEmail string                 `json:"reporterEmail,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// MediaAttachment is one screenshot or screen recording attached to a report.
type MediaAttachment struct {
	Content     []byte                 `json:"content"`
	MimeType    string                 `json:"mimeType"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

// PendingSubmission is a bug report buffered for delivery. A record exists in
// the queue store only while delivery is outstanding: successful delivery,
// a terminal failure, or retry exhaustion removes it.
type PendingSubmission struct {
	ID            string            `json:"id"`
	Destination   Destination       `json:"destination"`
	Payload       ReportPayload     `json:"payload"`
	Media         []MediaAttachment `json:"media,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	RetryCount    int               `json:"retryCount"`
	LastAttemptAt *time.Time        `json:"lastAttemptAt,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
}

// SyncResult summarizes one sync pass over the buffered queue.
type SyncResult struct {
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
}
