package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/rent"
)

// PaymentFrequency is how often the tenant pays; obligations are always monthly
type PaymentFrequency string

const (
	PaymentMonthly   PaymentFrequency = "monthly"
	PaymentQuarterly PaymentFrequency = "quarterly"
	PaymentYearly    PaymentFrequency = "yearly"
)

// Tenancy is a lease between a tenant and a property for a date range.
// Dates and amounts are fixed at creation; the schedule is derived from them.
type Tenancy struct {
	ID               uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID            uuid.UUID        `json:"org_id" gorm:"type:uuid;not null;index"`
	PropertyID       uuid.UUID        `json:"property_id" gorm:"type:uuid;not null;index"`
	TenantName       string           `json:"tenant_name" gorm:"not null"`
	TenantEmail      string           `json:"tenant_email"`
	TenantPhone      string           `json:"tenant_phone"`
	StartDate        time.Time        `json:"start_date" gorm:"type:date;not null"`
	EndDate          time.Time        `json:"end_date" gorm:"type:date;not null"`
	MonthlyRent      decimal.Decimal  `json:"monthly_rent" gorm:"type:decimal(12,2);not null"`
	Deposit          decimal.Decimal  `json:"deposit" gorm:"type:decimal(12,2);not null;default:0"`
	DueDay           int              `json:"due_day" gorm:"not null;default:1"`
	PaymentFrequency PaymentFrequency `json:"payment_frequency" gorm:"type:varchar(20);not null;default:'monthly'"`
	Notes            string           `json:"notes" gorm:"type:text"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Relationships
	Property       *Property              `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	ServiceCharges []TenancyServiceCharge `json:"service_charges,omitempty" gorm:"foreignKey:TenancyID;constraint:OnDelete:CASCADE"`
	Obligations    []RevenueObligation    `json:"obligations,omitempty" gorm:"foreignKey:TenancyID"`
}

// TenancyServiceCharge is a named monthly charge on a tenancy
type TenancyServiceCharge struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenancyID uuid.UUID       `json:"tenancy_id" gorm:"type:uuid;not null;index"`
	Name      string          `json:"name" gorm:"not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for the Tenancy model
func (Tenancy) TableName() string {
	return "tenancies"
}

// TableName returns the table name for the TenancyServiceCharge model
func (TenancyServiceCharge) TableName() string {
	return "tenancy_service_charges"
}

func (t *Tenancy) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (sc *TenancyServiceCharge) BeforeCreate(tx *gorm.DB) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	return nil
}

// ScheduleParams returns the generator input for this tenancy
func (t *Tenancy) ScheduleParams() rent.ScheduleParams {
	charges := make([]rent.ServiceCharge, 0, len(t.ServiceCharges))
	for _, sc := range t.ServiceCharges {
		charges = append(charges, rent.ServiceCharge{Name: sc.Name, Amount: sc.Amount})
	}
	return rent.ScheduleParams{
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		MonthlyRent:    t.MonthlyRent,
		DueDay:         t.DueDay,
		ServiceCharges: charges,
		Deposit:        t.Deposit,
	}
}

// IsActive reports whether the lease covers the given day
func (t *Tenancy) IsActive(on time.Time) bool {
	day := rent.DateOf(on)
	return !rent.DateOf(t.StartDate).After(day) && !rent.DateOf(t.EndDate).Before(day)
}
