package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bugrelay/internal/connectivity"
	apperrors "bugrelay/internal/errors"
	"bugrelay/internal/metrics"
	"bugrelay/internal/models"
	"bugrelay/internal/retry"
	"bugrelay/internal/tracing"
	"bugrelay/pkg/ingest"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// QueueStore is the durable storage the coordinator drains. All queue
// mutation during delivery goes through the coordinator, which is the sole
// writer.
type QueueStore interface {
	SaveSubmission(ctx context.Context, sub *models.PendingSubmission) error
	GetAllSubmissions(ctx context.Context) ([]*models.PendingSubmission, error)
	DeleteSubmission(ctx context.Context, id string) error
	CountSubmissions(ctx context.Context) (int, error)
}

// SubmitStatus is what the capture surface reports back to the end user.
type SubmitStatus string

const (
	SubmitStatusDelivered SubmitStatus = "delivered"
	SubmitStatusQueued    SubmitStatus = "queued"
)

// SubmitOutcome describes the immediate result of a user submission.
type SubmitOutcome struct {
	Status       SubmitStatus `json:"status"`
	SubmissionID string       `json:"submissionId"`
	ReportID     string       `json:"reportId,omitempty"`
}

// SyncCoordinator orchestrates draining of the buffered submission queue.
// At most one sync pass executes at any instant regardless of how many
// trigger sources (connectivity transitions, the periodic timer, fresh
// enqueues) fire concurrently.
type SyncCoordinator struct {
	store     QueueStore
	submitter ingest.Submitter
	probe     connectivity.Probe
	policy    retry.Policy
	interval  time.Duration
	logger    *logrus.Logger
	now       func() time.Time

	// single-flight guard for RunSyncPass
	flightMu sync.Mutex
	syncing  bool

	autoMu      sync.Mutex
	autoRunning bool
	autoCtx     context.Context
	autoCancel  context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewSyncCoordinator creates a coordinator draining store through submitter.
func NewSyncCoordinator(store QueueStore, submitter ingest.Submitter, probe connectivity.Probe, policy retry.Policy, interval time.Duration, logger *logrus.Logger) *SyncCoordinator {
	return &SyncCoordinator{
		store:     store,
		submitter: submitter,
		probe:     probe,
		policy:    policy,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit performs the UI-level submission attempt: try immediate delivery
// when online, buffer on any failure. Immediate success never touches the
// store. A terminal rejection at submit time is surfaced to the caller,
// since buffering a payload the endpoint will never accept is pointless.
func (c *SyncCoordinator) Submit(ctx context.Context, dest models.Destination, payload models.ReportPayload, media []models.MediaAttachment) (*SubmitOutcome, error) {
	sub := &models.PendingSubmission{
		ID:          uuid.New().String(),
		Destination: dest,
		Payload:     payload,
		Media:       media,
		CreatedAt:   c.now(),
	}

	if c.probe.IsOnline() {
		result := c.submitter.Attempt(ctx, sub)
		switch result.Status {
		case ingest.StatusDelivered:
			metrics.IncrementCounter("reports_delivered", map[string]string{"path": "immediate"}, "Reports delivered to the ingestion endpoint")
			c.logger.WithFields(logrus.Fields{
				"submissionId": sub.ID,
				"reportId":     result.ReportID,
			}).Info("Report delivered immediately")
			return &SubmitOutcome{Status: SubmitStatusDelivered, SubmissionID: sub.ID, ReportID: result.ReportID}, nil
		case ingest.StatusTerminal:
			metrics.IncrementCounter("reports_rejected", nil, "Reports permanently rejected by the ingestion endpoint")
			return nil, apperrors.New(apperrors.ErrCodeIngestRejected, result.Reason).
				WithContext("submissionId", sub.ID).
				WithUserMessage("The report was rejected and cannot be submitted")
		}
		c.logger.WithFields(logrus.Fields{
			"submissionId": sub.ID,
			"reason":       result.Reason,
		}).Warn("Immediate delivery failed, buffering report")
	}

	if err := c.BufferAndTrigger(ctx, sub); err != nil {
		return nil, err
	}

	return &SubmitOutcome{Status: SubmitStatusQueued, SubmissionID: sub.ID}, nil
}

// BufferAndTrigger persists a submission and kicks off an asynchronous sync
// pass. The caller is only told whether buffering succeeded; delivery
// happens in the background.
func (c *SyncCoordinator) BufferAndTrigger(ctx context.Context, sub *models.PendingSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = c.now()
	}
	sub.RetryCount = 0
	sub.LastAttemptAt = nil

	if err := c.store.SaveSubmission(ctx, sub); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStoreQuery, "failed to buffer submission").
			WithContext("submissionId", sub.ID)
	}

	metrics.IncrementCounter("reports_buffered", nil, "Reports written to the durable queue")
	c.updatePendingGauge(ctx)

	c.logger.WithField("submissionId", sub.ID).Info("Report buffered for delivery")

	// Fire-and-forget: the pass runs detached from the caller's request.
	go func() {
		if _, err := c.RunSyncPass(context.Background()); err != nil {
			c.logger.WithError(err).Warn("Post-enqueue sync pass failed")
		}
	}()

	return nil
}

// RunSyncPass drains all currently-eligible buffered submissions. If a pass
// is already in progress the call is a no-op returning zeros; likewise when
// offline. Records are processed strictly sequentially, oldest first.
func (c *SyncCoordinator) RunSyncPass(ctx context.Context) (models.SyncResult, error) {
	var result models.SyncResult

	// Check-and-set before any I/O so concurrent triggers collapse into one
	// pass instead of racing over the same records.
	c.flightMu.Lock()
	if c.syncing {
		c.flightMu.Unlock()
		c.logger.Debug("Sync pass already in progress, skipping")
		return result, nil
	}
	c.syncing = true
	c.flightMu.Unlock()

	defer func() {
		c.flightMu.Lock()
		c.syncing = false
		c.flightMu.Unlock()
	}()

	if !c.probe.IsOnline() {
		c.logger.Debug("Offline, skipping sync pass")
		return result, nil
	}

	ctx, span := tracing.StartSpan(ctx, "sync.pass")
	defer span.End()

	subs, err := c.store.GetAllSubmissions(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		return result, apperrors.Wrap(err, apperrors.ErrCodeStoreQuery, "failed to load buffered submissions")
	}

	now := c.now()
	for _, sub := range subs {
		if !c.policy.Eligible(sub.RetryCount, sub.LastAttemptAt, now) {
			continue
		}
		c.processSubmission(ctx, sub, now, &result)
	}

	c.updatePendingGauge(ctx)

	tracing.AddSpanAttributes(ctx,
		attribute.Int("sync.delivered", result.Delivered),
		attribute.Int("sync.dropped", result.Dropped),
	)

	if result.Delivered > 0 || result.Dropped > 0 {
		c.logger.WithFields(logrus.Fields{
			"delivered": result.Delivered,
			"dropped":   result.Dropped,
		}).Info("Sync pass completed")
	}

	return result, nil
}

func (c *SyncCoordinator) processSubmission(ctx context.Context, sub *models.PendingSubmission, now time.Time, result *models.SyncResult) {
	attempt := c.submitter.Attempt(ctx, sub)

	switch attempt.Status {
	case ingest.StatusDelivered:
		if err := c.store.DeleteSubmission(ctx, sub.ID); err != nil {
			// The report reached the endpoint; a lingering record means one
			// redundant future attempt, which the endpoint must tolerate.
			c.logger.WithError(err).WithField("submissionId", sub.ID).Error("Failed to remove delivered submission")
		}
		result.Delivered++
		metrics.IncrementCounter("reports_delivered", map[string]string{"path": "sync"}, "Reports delivered to the ingestion endpoint")
		c.logger.WithFields(logrus.Fields{
			"submissionId": sub.ID,
			"reportId":     attempt.ReportID,
			"retryCount":   sub.RetryCount,
		}).Info("Buffered report delivered")

	case ingest.StatusTerminal:
		if err := c.store.DeleteSubmission(ctx, sub.ID); err != nil {
			c.logger.WithError(err).WithField("submissionId", sub.ID).Error("Failed to remove rejected submission")
		}
		result.Dropped++
		metrics.IncrementCounter("reports_dropped", map[string]string{"cause": "terminal"}, "Reports dropped without delivery")
		c.logger.WithFields(logrus.Fields{
			"submissionId": sub.ID,
			"reason":       attempt.Reason,
		}).Error("Report permanently rejected, dropping")

	case ingest.StatusRetryable:
		sub.RetryCount++
		attemptAt := now
		sub.LastAttemptAt = &attemptAt
		sub.LastError = attempt.Reason

		if c.policy.IsExhausted(sub.RetryCount) {
			if err := c.store.DeleteSubmission(ctx, sub.ID); err != nil {
				c.logger.WithError(err).WithField("submissionId", sub.ID).Error("Failed to remove exhausted submission")
			}
			result.Dropped++
			metrics.IncrementCounter("reports_dropped", map[string]string{"cause": "exhausted"}, "Reports dropped without delivery")
			c.logger.WithFields(logrus.Fields{
				"submissionId": sub.ID,
				"retryCount":   sub.RetryCount,
				"lastError":    attempt.Reason,
			}).Warn("Retry budget exhausted, dropping report")
			return
		}

		if err := c.store.SaveSubmission(ctx, sub); err != nil {
			// Best-effort: the stored record keeps its previous retry count,
			// so the worst case is one extra attempt later in the schedule.
			c.logger.WithError(err).WithField("submissionId", sub.ID).Error("Failed to persist retry state")
			return
		}
		c.logger.WithFields(logrus.Fields{
			"submissionId": sub.ID,
			"retryCount":   sub.RetryCount,
			"nextAttempt":  c.policy.NextEligibleAt(sub.RetryCount, attemptAt),
			"reason":       attempt.Reason,
		}).Warn("Delivery failed, retry scheduled")
	}
}

// StartAutoSync wires the coordinator to its trigger sources: the
// connectivity online transition and a periodic timer. One immediate pass
// runs if currently online.
func (c *SyncCoordinator) StartAutoSync(ctx context.Context) error {
	c.autoMu.Lock()
	defer c.autoMu.Unlock()

	if c.autoRunning {
		return fmt.Errorf("auto-sync is already running")
	}

	c.autoCtx, c.autoCancel = context.WithCancel(ctx)
	c.autoRunning = true

	c.unsubscribe = c.probe.OnBecameOnline(func() {
		c.logger.Debug("Connectivity restored, triggering sync pass")
		go func() {
			if _, err := c.RunSyncPass(context.Background()); err != nil {
				c.logger.WithError(err).Warn("Connectivity-triggered sync pass failed")
			}
		}()
	})

	c.wg.Add(1)
	go c.tickLoop()

	if c.probe.IsOnline() {
		go func() {
			if _, err := c.RunSyncPass(context.Background()); err != nil {
				c.logger.WithError(err).Warn("Initial sync pass failed")
			}
		}()
	}

	c.logger.WithField("interval", c.interval).Info("Auto-sync started")
	return nil
}

// StopAutoSync unregisters the connectivity handler and stops the timer.
// It only prevents future triggers; a pass already executing runs to
// completion.
func (c *SyncCoordinator) StopAutoSync() {
	c.autoMu.Lock()
	if !c.autoRunning {
		c.autoMu.Unlock()
		return
	}
	c.autoCancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.autoRunning = false
	c.autoMu.Unlock()

	c.wg.Wait()
	c.logger.Info("Auto-sync stopped")
}

// PendingCount reports how many submissions are buffered, for UI badges.
func (c *SyncCoordinator) PendingCount(ctx context.Context) (int, error) {
	return c.store.CountSubmissions(ctx)
}

// PendingSubmissions returns the buffered queue, oldest first, read-only.
func (c *SyncCoordinator) PendingSubmissions(ctx context.Context) ([]*models.PendingSubmission, error) {
	return c.store.GetAllSubmissions(ctx)
}

func (c *SyncCoordinator) tickLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.autoCtx.Done():
			return
		case <-ticker.C:
			if !c.probe.IsOnline() {
				continue
			}
			// Detached context: stopping auto-sync must not abort a pass
			// that already started.
			if _, err := c.RunSyncPass(context.Background()); err != nil {
				c.logger.WithError(err).Warn("Periodic sync pass failed")
			}
		}
	}
}

func (c *SyncCoordinator) updatePendingGauge(ctx context.Context) {
	count, err := c.store.CountSubmissions(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to read pending submission count")
		return
	}
	metrics.SetGauge("reports_pending", float64(count), nil, "Reports currently buffered for delivery")
}
