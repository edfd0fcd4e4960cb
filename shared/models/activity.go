package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is one entry in an organization's activity feed
type Activity struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID    string    `json:"event_id" gorm:"type:varchar(64);uniqueIndex"`
	OrgID      uuid.UUID `json:"org_id" gorm:"type:uuid;not null;index"`
	EventType  string    `json:"event_type" gorm:"type:varchar(50);not null;index"`
	EntityID   string    `json:"entity_id" gorm:"type:varchar(64);index"`
	Actor      string    `json:"actor"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for the Activity model
func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
