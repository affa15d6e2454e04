package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bugrelay/internal/models"
	"bugrelay/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client delivers buffered submissions to the remote ingestion endpoint.
type Client struct {
	httpClient *http.Client
}

// NewClient creates an ingestion client with the given request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// reportData is the JSON document sent in the multipart "data" field.
type reportData struct {
	Title            string                   `json:"title"`
	Description      string                   `json:"description,omitempty"`
	Priority         models.Priority          `json:"priority"`
	ReporterName     string                   `json:"reporterName,omitempty"`
	ReporterEmail    string                   `json:"reporterEmail,omitempty"`
	Metadata         map[string]interface{}   `json:"metadata"`
	MediaCount       int                      `json:"mediaCount"`
	MediaAnnotations []map[string]interface{} `json:"mediaAnnotations"`
}

// Attempt performs exactly one delivery attempt and classifies the outcome.
// Network errors, timeouts and 5xx responses are retryable; 4xx responses
// (except 429) are terminal because the payload itself was rejected.
func (c *Client) Attempt(ctx context.Context, sub *models.PendingSubmission) Result {
	ctx, span := tracing.StartSpan(ctx, "ingest.attempt",
		attribute.String("submission.id", sub.ID),
		attribute.Int("submission.retry_count", sub.RetryCount),
	)
	defer span.End()

	body, contentType, err := buildMultipartBody(sub)
	if err != nil {
		tracing.RecordError(ctx, err)
		return Result{Status: StatusTerminal, Reason: fmt.Sprintf("failed to encode submission: %v", err)}
	}

	url := strings.TrimSuffix(sub.Destination.EndpointBase, "/") + "/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		tracing.RecordError(ctx, err)
		return Result{Status: StatusTerminal, Reason: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", sub.Destination.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		return Result{Status: StatusRetryable, Reason: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	tracing.AddSpanAttributes(ctx, attribute.Int("http.status_code", resp.StatusCode))

	return classifyResponse(ctx, resp)
}

func classifyResponse(ctx context.Context, resp *http.Response) Result {
	var parsed SubmitResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil || !parsed.Success {
			// A 2xx without a usable body is treated as transient: the
			// endpoint may have accepted nothing, so retrying is safe only
			// relative to dropping the report.
			reason := "malformed success response"
			if decodeErr != nil {
				reason = fmt.Sprintf("malformed success response: %v", decodeErr)
			} else if parsed.Message != "" {
				reason = parsed.Message
			}
			return Result{Status: StatusRetryable, Reason: reason}
		}
		tracing.SetSpanStatus(ctx, codes.Ok, "")
		return Result{Status: StatusDelivered, ReportID: parsed.ReportID}
	}

	reason := fmt.Sprintf("status %d", resp.StatusCode)
	if parsed.Message != "" {
		reason = fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Message)
	}
	tracing.SetSpanStatus(ctx, codes.Error, reason)

	// 429 asks us to slow down, not to change the payload.
	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{Status: StatusRetryable, Reason: reason}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return Result{Status: StatusTerminal, Reason: reason}
	}

	return Result{Status: StatusRetryable, Reason: reason}
}

func buildMultipartBody(sub *models.PendingSubmission) (*bytes.Buffer, string, error) {
	annotations := make([]map[string]interface{}, 0, len(sub.Media))
	for _, m := range sub.Media {
		annotations = append(annotations, m.Annotations)
	}

	data := reportData{
		Title:            sub.Payload.Title,
		Description:      sub.Payload.Description,
		Priority:         sub.Payload.Priority,
		ReporterName:     sub.Payload.ReporterName,
		ReporterEmail:    sub.Payload.ReporterEmail,
		Metadata:         sub.Payload.Metadata,
		MediaCount:       len(sub.Media),
		MediaAnnotations: annotations,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal report data: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("data", string(dataJSON)); err != nil {
		return nil, "", fmt.Errorf("failed to write data field: %w", err)
	}

	for i, m := range sub.Media {
		part, err := writer.CreateFormFile("media", mediaFilename(m.MimeType, i))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create media part: %w", err)
		}
		if _, err := part.Write(m.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write media content: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// mediaFilename builds the part filename: {screenshot|video}-{index}.{ext}.
func mediaFilename(mimeType string, index int) string {
	kind := "screenshot"
	if strings.HasPrefix(mimeType, "video/") {
		kind = "video"
	}
	return fmt.Sprintf("%s-%d.%s", kind, index, extensionForMime(mimeType))
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "video/mp4":
		return "mp4"
	case "video/webm":
		return "webm"
	case "video/quicktime":
		return "mov"
	}

	if idx := strings.Index(mimeType, "/"); idx >= 0 && idx < len(mimeType)-1 {
		return mimeType[idx+1:]
	}
	return "bin"
}
