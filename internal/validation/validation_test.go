package validation

import (
	"strings"
	"testing"

	apperrors "bugrelay/internal/errors"
	"bugrelay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMediaConfig() models.MediaConfig {
	return models.MediaConfig{
		MaxPerReport:        3,
		MaxScreenshotSizeMB: 1,
		MaxVideoSizeMB:      2,
	}
}

func validPayload() models.ReportPayload {
	return models.ReportPayload{
		Title:    "Broken layout on settings page",
		Priority: models.PriorityLow,
	}
}

func TestValidateReportRequest_Valid(t *testing.T) {
	payload := validPayload()
	payload.ReporterEmail = "dana@example.com"

	assert.NoError(t, ValidateReportRequest(payload, nil, testMediaConfig()))
}

func TestValidateReportRequest_MissingTitle(t *testing.T) {
	payload := validPayload()
	payload.Title = "   "

	err := ValidateReportRequest(payload, nil, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
}

func TestValidateReportRequest_TitleTooLong(t *testing.T) {
	payload := validPayload()
	payload.Title = strings.Repeat("x", 501)

	err := ValidateReportRequest(payload, nil, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 500")
}

func TestValidateReportRequest_InvalidPriority(t *testing.T) {
	payload := validPayload()
	payload.Priority = "urgent"

	err := ValidateReportRequest(payload, nil, testMediaConfig())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, appErr.Code)
}

func TestValidateReportRequest_InvalidEmail(t *testing.T) {
	payload := validPayload()
	payload.ReporterEmail = "not an email"

	err := ValidateReportRequest(payload, nil, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reporter email")
}

func TestValidateReportRequest_TooManyAttachments(t *testing.T) {
	media := []models.MediaAttachment{
		{Content: []byte("a"), MimeType: "image/png"},
		{Content: []byte("b"), MimeType: "image/png"},
		{Content: []byte("c"), MimeType: "image/png"},
		{Content: []byte("d"), MimeType: "image/png"},
	}

	err := ValidateReportRequest(validPayload(), media, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many attachments")
}

func TestValidateReportRequest_EmptyAttachment(t *testing.T) {
	media := []models.MediaAttachment{{Content: nil, MimeType: "image/png"}}

	err := ValidateReportRequest(validPayload(), media, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestValidateReportRequest_UnsupportedMimeType(t *testing.T) {
	media := []models.MediaAttachment{{Content: []byte("data"), MimeType: "application/pdf"}}

	err := ValidateReportRequest(validPayload(), media, testMediaConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestValidateReportRequest_ScreenshotSizeLimit(t *testing.T) {
	cfg := testMediaConfig()

	within := []models.MediaAttachment{{Content: make([]byte, 1024*1024), MimeType: "image/png"}}
	assert.NoError(t, ValidateReportRequest(validPayload(), within, cfg))

	over := []models.MediaAttachment{{Content: make([]byte, 1024*1024+1), MimeType: "image/png"}}
	err := ValidateReportRequest(validPayload(), over, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1 MB")
}

func TestValidateReportRequest_VideoSizeLimit(t *testing.T) {
	cfg := testMediaConfig()

	within := []models.MediaAttachment{{Content: make([]byte, 2*1024*1024), MimeType: "video/mp4"}}
	assert.NoError(t, ValidateReportRequest(validPayload(), within, cfg))

	over := []models.MediaAttachment{{Content: make([]byte, 2*1024*1024+1), MimeType: "video/mp4"}}
	err := ValidateReportRequest(validPayload(), over, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 2 MB")
}
