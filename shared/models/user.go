package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of an organization, keyed by the identity provider subject
type User struct {
	CognitoID   string     `json:"cognito_id" gorm:"type:varchar(255);primaryKey"`
	OrgID       uuid.UUID  `json:"org_id" gorm:"type:uuid;index"`
	Email       string     `json:"email" gorm:"type:varchar(255)"`
	Role        UserRole   `json:"role" gorm:"type:varchar(20);default:'viewer'"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrgID"`
}

type UserRole string

const (
	RoleOwner   UserRole = "owner"
	RoleManager UserRole = "manager"
	RoleViewer  UserRole = "viewer"
)

func (User) TableName() string {
	return "users"
}

// CanWrite reports whether the role may change records
func (r UserRole) CanWrite() bool {
	return r == RoleOwner || r == RoleManager
}

// UserInfo represents user information from JWT claims
type UserInfo struct {
	CognitoID string    `json:"cognito_id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	OrgID     uuid.UUID `json:"org_id"`
	CanWrite  bool      `json:"can_write"`
}
