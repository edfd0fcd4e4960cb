package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/finance"
)

// Expense is a cost recorded against the organization, optionally tied to a
// property or contractor
type Expense struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID        uuid.UUID         `json:"org_id" gorm:"type:uuid;not null;index"`
	PropertyID   *uuid.UUID        `json:"property_id,omitempty" gorm:"type:uuid;index"`
	ContractorID *uuid.UUID        `json:"contractor_id,omitempty" gorm:"type:uuid;index"`
	Amount       decimal.Decimal   `json:"amount" gorm:"type:decimal(12,2);not null"`
	Date         time.Time         `json:"date" gorm:"type:date;not null;index"`
	Category     string            `json:"category" gorm:"type:varchar(50);not null;index"`
	Description  string            `json:"description"`
	Frequency    finance.Frequency `json:"frequency" gorm:"type:varchar(20);not null;default:'one_off'"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	DeletedAt    gorm.DeletedAt    `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for the Expense model
func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Frequency == "" {
		e.Frequency = finance.FrequencyOneOff
	}
	return nil
}

// ToItem converts the expense for finance aggregation
func (e *Expense) ToItem() finance.ExpenseItem {
	return finance.ExpenseItem{
		Category:  e.Category,
		Date:      e.Date,
		Amount:    e.Amount,
		Frequency: e.Frequency,
	}
}
