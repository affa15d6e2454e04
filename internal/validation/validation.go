package validation

import (
	"fmt"
	"net/mail"
	"strings"

	apperrors "bugrelay/internal/errors"
	"bugrelay/internal/models"
)

const maxTitleLength = 500

// ValidateReportRequest checks a submission before it is attempted or
// buffered. Rejecting bad payloads here keeps them out of the durable queue,
// where they would only ever produce terminal failures.
func ValidateReportRequest(payload models.ReportPayload, media []models.MediaAttachment, cfg models.MediaConfig) error {
	if strings.TrimSpace(payload.Title) == "" {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "title is required")
	}
	if len(payload.Title) > maxTitleLength {
		return apperrors.New(apperrors.ErrCodeValidationFailed, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}

	if !models.ValidPriority(payload.Priority) {
		return apperrors.New(apperrors.ErrCodeValidationFailed, fmt.Sprintf("invalid priority %q", payload.Priority))
	}

	if payload.ReporterEmail != "" {
		if _, err := mail.ParseAddress(payload.ReporterEmail); err != nil {
			return apperrors.New(apperrors.ErrCodeValidationFailed, "invalid reporter email")
		}
	}

	return validateMedia(media, cfg)
}

func validateMedia(media []models.MediaAttachment, cfg models.MediaConfig) error {
	if len(media) > cfg.MaxPerReport {
		return apperrors.New(apperrors.ErrCodeValidationFailed,
			fmt.Sprintf("too many attachments: %d (max %d)", len(media), cfg.MaxPerReport))
	}

	for i, m := range media {
		if len(m.Content) == 0 {
			return apperrors.New(apperrors.ErrCodeValidationFailed, fmt.Sprintf("attachment %d is empty", i))
		}

		var maxMB int
		switch {
		case strings.HasPrefix(m.MimeType, "image/"):
			maxMB = cfg.MaxScreenshotSizeMB
		case strings.HasPrefix(m.MimeType, "video/"):
			maxMB = cfg.MaxVideoSizeMB
		default:
			return apperrors.New(apperrors.ErrCodeValidationFailed,
				fmt.Sprintf("attachment %d has unsupported type %q", i, m.MimeType))
		}

		if len(m.Content) > maxMB*1024*1024 {
			return apperrors.New(apperrors.ErrCodeValidationFailed,
				fmt.Sprintf("attachment %d exceeds %d MB", i, maxMB))
		}
	}

	return nil
}
