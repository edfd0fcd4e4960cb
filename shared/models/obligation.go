package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/rent"
)

// RevenueObligation is one expected payment generated from a tenancy.
// AmountPaid only ever grows; rows are removed only with their tenancy.
type RevenueObligation struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID         uuid.UUID       `json:"org_id" gorm:"type:uuid;not null;index"`
	TenancyID     uuid.UUID       `json:"tenancy_id" gorm:"type:uuid;not null;index"`
	PropertyID    uuid.UUID       `json:"property_id" gorm:"type:uuid;not null;index"`
	Kind          rent.Kind       `json:"kind" gorm:"type:varchar(20);not null;index"`
	Name          string          `json:"name" gorm:"not null"`
	DueDate       time.Time       `json:"due_date" gorm:"type:date;not null;index"`
	AmountDue     decimal.Decimal `json:"amount_due" gorm:"type:decimal(12,2);not null"`
	AmountPaid    decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2);not null;default:0"`
	PeriodStart   time.Time       `json:"period_start" gorm:"type:date"`
	PeriodEnd     time.Time       `json:"period_end" gorm:"type:date"`
	LastPaymentAt *time.Time      `json:"last_payment_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName returns the table name for the RevenueObligation model
func (RevenueObligation) TableName() string {
	return "obligations"
}

func (o *RevenueObligation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Outstanding is what is still unpaid on this obligation alone
func (o *RevenueObligation) Outstanding() decimal.Decimal {
	return o.AmountDue.Sub(o.AmountPaid)
}

// Entry converts the obligation for arrears aggregation
func (o *RevenueObligation) Entry() rent.Entry {
	return rent.Entry{
		TenancyID:  o.TenancyID.String(),
		Kind:       o.Kind,
		DueDate:    o.DueDate,
		AmountDue:  o.AmountDue,
		AmountPaid: o.AmountPaid,
	}
}

// NewObligations maps generated schedule rows onto storable obligations
func NewObligations(t *Tenancy, schedule []rent.Obligation) []RevenueObligation {
	rows := make([]RevenueObligation, 0, len(schedule))
	for _, s := range schedule {
		rows = append(rows, RevenueObligation{
			ID:          uuid.New(),
			OrgID:       t.OrgID,
			TenancyID:   t.ID,
			PropertyID:  t.PropertyID,
			Kind:        s.Kind,
			Name:        s.Name,
			DueDate:     s.DueDate,
			AmountDue:   s.AmountDue,
			AmountPaid:  decimal.Zero,
			PeriodStart: s.PeriodStart,
			PeriodEnd:   s.PeriodEnd,
		})
	}
	return rows
}

// Entries converts obligations for arrears aggregation
func Entries(obligations []RevenueObligation) []rent.Entry {
	entries := make([]rent.Entry, 0, len(obligations))
	for i := range obligations {
		entries = append(entries, obligations[i].Entry())
	}
	return entries
}

// Payment is one recorded receipt against an obligation
type Payment struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID        uuid.UUID       `json:"org_id" gorm:"type:uuid;not null;index"`
	ObligationID uuid.UUID       `json:"obligation_id" gorm:"type:uuid;not null;index"`
	TenancyID    uuid.UUID       `json:"tenancy_id" gorm:"type:uuid;not null;index"`
	Kind         rent.Kind       `json:"kind" gorm:"type:varchar(20);not null"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	PaidAt       time.Time       `json:"paid_at" gorm:"not null;index"`
	Method       string          `json:"method" gorm:"type:varchar(30)"`
	Reference    string          `json:"reference"`
	RecordedBy   string          `json:"recorded_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName returns the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
