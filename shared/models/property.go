package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PropertyType classifies a property
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOther      PropertyType = "other"
)

// Property represents a building or unit owned or managed by an organization
type Property struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID         uuid.UUID        `json:"org_id" gorm:"type:uuid;not null;index"`
	Name          string           `json:"name" gorm:"not null"`
	Address       string           `json:"address"`
	City          string           `json:"city"`
	Postcode      string           `json:"postcode"`
	Type          PropertyType     `json:"type" gorm:"type:varchar(20);not null;default:'house'"`
	Units         int              `json:"units" gorm:"not null;default:1"`
	Bedrooms      int              `json:"bedrooms"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty" gorm:"type:decimal(14,2)"`
	Notes         string           `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for the Property model
func (Property) TableName() string {
	return "properties"
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Contractor is a tradesperson or company used for maintenance
type Contractor struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID      `json:"org_id" gorm:"type:uuid;not null;index"`
	Name      string         `json:"name" gorm:"not null"`
	Trade     string         `json:"trade"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Notes     string         `json:"notes" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for the Contractor model
func (Contractor) TableName() string {
	return "contractors"
}

func (c *Contractor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
