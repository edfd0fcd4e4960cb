package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

const (
	// maxAttempts is how many times a report is sent to the model before it fails
	maxAttempts = 8
	baseBackoff = 1 * time.Minute
)

// Reporter generates report text and records the outcome
type Reporter struct {
	db            *gorm.DB
	llm           Generator
	archive       Archiver
	storagePrefix string
	pub           events.Publisher
	log           *logrus.Entry
	now           func() time.Time
}

// NewReporter wires a reporter. archive may be nil when uploads are disabled.
func NewReporter(db *gorm.DB, llm Generator, archive Archiver, storagePrefix string, pub events.Publisher, log *logrus.Entry) *Reporter {
	return &Reporter{
		db:            db,
		llm:           llm,
		archive:       archive,
		storagePrefix: storagePrefix,
		pub:           pub,
		log:           log,
		now:           time.Now,
	}
}

// Run makes one generation attempt for a pending report and saves the result.
// A model failure is not returned as an error; it is recorded on the report.
func (r *Reporter) Run(ctx context.Context, report *models.Report) error {
	log := r.log.WithFields(logrus.Fields{
		"report_id": report.ID,
		"org_id":    report.OrgID,
		"kind":      report.Kind,
		"attempt":   report.RetryCount + 1,
	})

	prompt, err := buildPrompt(report.Kind, report.Input)
	if err != nil {
		// Bad input never gets better on retry
		log.WithError(err).Error("Report input is unusable")
		return r.markFailed(ctx, report, err.Error())
	}

	text, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Warn("Report generation failed")
		return r.scheduleRetry(ctx, report, err)
	}

	if r.archive != nil {
		key := storageKey(r.storagePrefix, report)
		if err := r.archive.Store(ctx, key, text); err != nil {
			// The text is still kept in the database
			log.WithError(err).Warn("Failed to archive report")
		} else {
			report.StorageKey = key
		}
	}

	now := r.now()
	report.Status = models.ReportCompleted
	report.Output = text
	report.ErrorMessage = ""
	report.NextRetryAt = nil
	report.CompletedAt = &now
	if err := r.db.WithContext(ctx).Save(report).Error; err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	log.Info("Report completed")

	ev, err := events.New(events.ReportCompleted, report.OrgID, report.ID.String(), report.RequestedBy,
		fmt.Sprintf("%s report ready", report.Kind),
		map[string]interface{}{"kind": report.Kind, "storage_key": report.StorageKey})
	if err == nil {
		err = r.pub.Publish(ev)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to publish report event")
	}
	return nil
}

// scheduleRetry backs off exponentially: 1m, 2m, 4m... until maxAttempts.
// A call refused by the open circuit never reached the model and does not
// use up an attempt.
func (r *Reporter) scheduleRetry(ctx context.Context, report *models.Report, cause error) error {
	if !modelSkipped(cause) {
		report.RetryCount++
		if report.RetryCount >= maxAttempts {
			return r.markFailed(ctx, report, fmt.Sprintf("max retries reached: %s", cause.Error()))
		}
	}

	next := r.now().Add(backoff(report.RetryCount))
	report.NextRetryAt = &next
	report.ErrorMessage = cause.Error()
	report.Status = models.ReportPending
	if err := r.db.WithContext(ctx).Save(report).Error; err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *Reporter) markFailed(ctx context.Context, report *models.Report, reason string) error {
	report.Status = models.ReportFailed
	report.NextRetryAt = nil
	report.ErrorMessage = reason
	if err := r.db.WithContext(ctx).Save(report).Error; err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func modelSkipped(err error) bool {
	return errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests)
}

// backoff is the wait after the given number of failed attempts
func backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	return baseBackoff * time.Duration(1<<(failures-1))
}
