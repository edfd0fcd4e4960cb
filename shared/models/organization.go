package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is a landlord or letting agency using the platform.
// Every other record is scoped by OrgID.
type Organization struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Currency  string         `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Locale    string         `json:"locale" gorm:"type:varchar(35);not null;default:'en-US'"`
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Users []User `json:"users,omitempty" gorm:"foreignKey:OrgID"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organizations"
}

// BeforeCreate assigns an ID when none was set
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
