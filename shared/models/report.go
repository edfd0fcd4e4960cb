package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportKind is the kind of generated document
type ReportKind string

const (
	ReportProfitAndLoss  ReportKind = "pnl"
	ReportMarketResearch ReportKind = "market_research"
	ReportReminder       ReportKind = "reminder"
)

// ReportStatus represents where a report is in generation
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportCompleted ReportStatus = "completed"
	ReportFailed    ReportStatus = "failed"
)

// Report is a model-generated document. Input holds the structured facts
// sent with the prompt so a failed report can be retried as-is.
type Report struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID        uuid.UUID    `json:"org_id" gorm:"type:uuid;not null;index"`
	Kind         ReportKind   `json:"kind" gorm:"type:varchar(30);not null;index"`
	SubjectID    *uuid.UUID   `json:"subject_id,omitempty" gorm:"type:uuid;index"`
	Status       ReportStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Input        string       `json:"input" gorm:"type:text"`
	Output       string       `json:"output,omitempty" gorm:"type:text"`
	StorageKey   string       `json:"storage_key,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	RetryCount   int          `json:"retry_count" gorm:"default:0"`
	NextRetryAt  *time.Time   `json:"next_retry_at,omitempty" gorm:"index"`
	RequestedBy  string       `json:"requested_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// TableName returns the table name for the Report model
func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
