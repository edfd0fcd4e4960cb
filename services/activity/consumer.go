package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/models"
)

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer turns domain events into activity feed rows
type Consumer struct {
	reader messageReader
	db     *gorm.DB
	log    *logrus.Entry
}

// NewConsumer creates a consumer group reader for cfg.Topic
func NewConsumer(cfg *config.KafkaConfig, db *gorm.DB, log *logrus.Entry) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: 0,
	})
	return &Consumer{reader: reader, db: db, log: log}
}

// Run reads until ctx is cancelled. Offsets are committed only after the row
// is stored, so a crash replays events and Store ignores the duplicates.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("Starting activity consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Activity consumer stopped")
				return
			}
			c.log.WithError(err).Error("Error reading event")
			sleep(ctx, time.Second)
			continue
		}

		if err := c.Store(ctx, msg); err != nil {
			var poison *poisonError
			if !errors.As(err, &poison) {
				// Leave the offset uncommitted and try again
				c.log.WithError(err).WithField("offset", msg.Offset).Error("Failed to store activity")
				sleep(ctx, time.Second)
				continue
			}
			c.log.WithError(err).WithField("offset", msg.Offset).Warn("Skipping malformed event")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.WithError(err).WithField("offset", msg.Offset).Error("Failed to commit offset")
		}
	}
}

// poisonError marks a message that can never be stored
type poisonError struct{ err error }

func (p *poisonError) Error() string { return p.err.Error() }
func (p *poisonError) Unwrap() error { return p.err }

// Store records one event. Replayed events are ignored.
func (c *Consumer) Store(ctx context.Context, msg kafka.Message) error {
	ev, err := events.Decode(msg)
	if err != nil {
		return &poisonError{err: err}
	}

	activity := models.Activity{
		EventID:    ev.ID.String(),
		OrgID:      ev.OrgID,
		EventType:  string(ev.Type),
		EntityID:   ev.EntityID,
		Actor:      ev.Actor,
		Summary:    ev.Summary,
		OccurredAt: ev.OccurredAt,
	}
	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&activity)
	if result.Error != nil {
		return fmt.Errorf("failed to store activity: %w", result.Error)
	}

	c.log.WithFields(logrus.Fields{
		"org_id":     ev.OrgID,
		"event_type": ev.Type,
		"duplicate":  result.RowsAffected == 0,
	}).Debug("Activity recorded")
	return nil
}

// Close closes the kafka reader
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close event reader: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
