package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/models"
)

// RetryWorker periodically retries pending reports whose backoff has expired
type RetryWorker struct {
	db            *gorm.DB
	reporter      *Reporter
	batchSize     int
	checkInterval time.Duration
	log           *logrus.Entry
}

// RetryStats counts reports by status
type RetryStats struct {
	Pending   int64 `json:"pending"`
	Retrying  int64 `json:"retrying"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// NewRetryWorker creates a worker that polls every checkInterval
func NewRetryWorker(db *gorm.DB, reporter *Reporter, checkInterval time.Duration, log *logrus.Entry) *RetryWorker {
	return &RetryWorker{
		db:            db,
		reporter:      reporter,
		batchSize:     100,
		checkInterval: checkInterval,
		log:           log,
	}
}

// Run polls until ctx is cancelled
func (w *RetryWorker) Run(ctx context.Context) {
	w.log.WithFields(logrus.Fields{
		"check_interval": w.checkInterval.String(),
		"max_attempts":   maxAttempts,
	}).Info("Report retry worker started")

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Report retry worker stopped")
			return
		case <-ticker.C:
			if n, err := w.ProcessDue(ctx); err != nil {
				w.log.WithError(err).Error("Failed to process pending reports")
			} else if n > 0 {
				w.log.WithField("count", n).Info("Retried pending reports")
			}
		}
	}
}

// ProcessDue retries one batch of reports that are due and returns how many it attempted
func (w *RetryWorker) ProcessDue(ctx context.Context) (int, error) {
	var due []models.Report
	err := w.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", models.ReportPending, w.reporter.now()).
		Order("next_retry_at ASC").
		Limit(w.batchSize).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	for i := range due {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		if err := w.reporter.Run(ctx, &due[i]); err != nil {
			w.log.WithError(err).WithField("report_id", due[i].ID).Error("Failed to record retry outcome")
		}
	}
	return len(due), nil
}

// Stats returns report counts for the org, or for every org when orgID is empty
func (w *RetryWorker) Stats(orgID string) RetryStats {
	var stats RetryStats
	count := func(dest *int64, where string, args ...interface{}) {
		q := w.db.Model(&models.Report{}).Where(where, args...)
		if orgID != "" {
			q = q.Where("org_id = ?", orgID)
		}
		q.Count(dest)
	}
	count(&stats.Pending, "status = ? AND retry_count = 0", models.ReportPending)
	count(&stats.Retrying, "status = ? AND retry_count > 0", models.ReportPending)
	count(&stats.Completed, "status = ?", models.ReportCompleted)
	count(&stats.Failed, "status = ?", models.ReportFailed)
	return stats
}
