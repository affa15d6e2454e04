package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "bugrelay/internal/errors"
	"bugrelay/internal/models"
	"bugrelay/internal/service"
	"bugrelay/internal/validation"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// maxRequestBody bounds a capture request: the largest allowed video plus
// base64 overhead and headroom for the JSON envelope.
const maxRequestBodyMB = 150

// Server is the local capture API the feedback widget talks to.
type Server struct {
	router      *mux.Router
	logger      *logrus.Logger
	coordinator *service.SyncCoordinator
	cfg         *models.Config
	server      *http.Server
}

func NewServer(coordinator *service.SyncCoordinator, cfg *models.Config, logger *logrus.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		coordinator: coordinator,
		cfg:         cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/report", s.handleSubmitReport()).Methods(http.MethodPost)
	api.HandleFunc("/pending", s.handlePendingCount()).Methods(http.MethodGet)
	api.HandleFunc("/queue", s.handleQueue()).Methods(http.MethodGet)
	api.HandleFunc("/sync", s.handleSync()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting capture API on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type mediaRequest struct {
	Content     string                 `json:"content"`
	MimeType    string                 `json:"mimeType"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
}

type reportRequest struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Priority      models.Priority        `json:"priority,omitempty"`
	ReporterName  string                 `json:"reporterName,omitempty"`
	ReporterEmail string                 `json:"reporterEmail,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Media         []mediaRequest         `json:"media,omitempty"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleSubmitReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyMB*1024*1024)

		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Priority == "" {
			req.Priority = models.PriorityMedium
		}

		payload := models.ReportPayload{
			Title:         req.Title,
			Description:   req.Description,
			Priority:      req.Priority,
			ReporterName:  req.ReporterName,
			ReporterEmail: req.ReporterEmail,
			Metadata:      req.Metadata,
		}
		if payload.Metadata == nil {
			payload.Metadata = map[string]interface{}{}
		}

		media, err := decodeMediaRequests(req.Media)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := validation.ValidateReportRequest(payload, media, s.cfg.Media); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		dest := models.Destination{
			APIKey:       s.cfg.Ingest.APIKey,
			EndpointBase: s.cfg.Ingest.EndpointBase,
		}

		outcome, err := s.coordinator.Submit(r.Context(), dest, payload, media)
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeIngestRejected {
				s.writeError(w, http.StatusUnprocessableEntity, apperrors.GetUserMessage(err))
				return
			}
			s.logger.WithError(err).Error("Failed to submit report")
			s.writeError(w, http.StatusInternalServerError, "failed to submit report")
			return
		}

		status := http.StatusOK
		if outcome.Status == service.SubmitStatusQueued {
			status = http.StatusAccepted
		}
		s.writeJSON(w, status, outcome)
	}
}

func (s *Server) handlePendingCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := s.coordinator.PendingCount(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Failed to count pending reports")
			s.writeError(w, http.StatusInternalServerError, "failed to count pending reports")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"count": count})
	}
}

type queueEntry struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"createdAt"`
	RetryCount    int        `json:"retryCount"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

func (s *Server) handleQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := s.coordinator.PendingSubmissions(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Failed to list pending reports")
			s.writeError(w, http.StatusInternalServerError, "failed to list pending reports")
			return
		}

		entries := make([]queueEntry, 0, len(subs))
		for _, sub := range subs {
			entries = append(entries, queueEntry{
				ID:            sub.ID,
				Title:         sub.Payload.Title,
				CreatedAt:     sub.CreatedAt,
				RetryCount:    sub.RetryCount,
				LastAttemptAt: sub.LastAttemptAt,
				LastError:     sub.LastError,
			})
		}
		s.writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.coordinator.RunSyncPass(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("Manual sync pass failed")
			s.writeError(w, http.StatusInternalServerError, "sync pass failed")
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// decodeMediaRequests turns widget media (raw base64 or data URIs) into
// binary attachments.
func decodeMediaRequests(reqs []mediaRequest) ([]models.MediaAttachment, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	media := make([]models.MediaAttachment, 0, len(reqs))
	for i, m := range reqs {
		content, mimeType, err := decodeMediaContent(m.Content, m.MimeType)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		media = append(media, models.MediaAttachment{
			Content:     content,
			MimeType:    mimeType,
			Annotations: m.Annotations,
		})
	}
	return media, nil
}

func decodeMediaContent(content, mimeType string) ([]byte, string, error) {
	encoded := content

	if strings.HasPrefix(content, "data:") {
		idx := strings.Index(content, ",")
		if idx < 0 {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		header := content[len("data:"):idx]
		encoded = content[idx+1:]

		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("data URI must be base64 encoded")
		}
		if uriMime := strings.TrimSuffix(header, ";base64"); uriMime != "" {
			mimeType = uriMime
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 content: %w", err)
	}

	return decoded, mimeType, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
