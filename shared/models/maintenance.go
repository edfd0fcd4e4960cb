package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaintenancePriority ranks how urgent a request is
type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
	PriorityUrgent MaintenancePriority = "urgent"
)

// MaintenanceStatus represents the lifecycle of a maintenance request
type MaintenanceStatus string

const (
	MaintenanceOpen       MaintenanceStatus = "open"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

var maintenanceTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	MaintenanceOpen:       {MaintenanceInProgress, MaintenanceCancelled},
	MaintenanceInProgress: {MaintenanceCompleted, MaintenanceCancelled},
}

// MaintenanceRequest is a repair or job raised against a property
type MaintenanceRequest struct {
	ID           uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID        uuid.UUID           `json:"org_id" gorm:"type:uuid;not null;index"`
	PropertyID   uuid.UUID           `json:"property_id" gorm:"type:uuid;not null;index"`
	ContractorID *uuid.UUID          `json:"contractor_id,omitempty" gorm:"type:uuid;index"`
	Title        string              `json:"title" gorm:"not null"`
	Description  string              `json:"description" gorm:"type:text"`
	Priority     MaintenancePriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium'"`
	Status       MaintenanceStatus   `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	ReportedAt   time.Time           `json:"reported_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	Cost         *decimal.Decimal    `json:"cost,omitempty" gorm:"type:decimal(12,2)"`
	ExpenseID    *uuid.UUID          `json:"expense_id,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	// Relationships
	Property   *Property   `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Contractor *Contractor `json:"contractor,omitempty" gorm:"foreignKey:ContractorID"`
}

// TableName returns the table name for the MaintenanceRequest model
func (MaintenanceRequest) TableName() string {
	return "maintenance_requests"
}

func (m *MaintenanceRequest) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.ReportedAt.IsZero() {
		m.ReportedAt = time.Now().UTC()
	}
	return nil
}

// Transition moves the request to next, rejecting moves the lifecycle does not allow
func (m *MaintenanceRequest) Transition(next MaintenanceStatus) error {
	for _, allowed := range maintenanceTransitions[m.Status] {
		if allowed == next {
			m.Status = next
			if next == MaintenanceCompleted {
				now := time.Now().UTC()
				m.CompletedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, next)
}

// Valid reports whether p is a known priority
func (p MaintenancePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
