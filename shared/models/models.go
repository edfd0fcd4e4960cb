package models

import "errors"

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// All lists every persisted model, in dependency order, for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
		&Property{},
		&Contractor{},
		&MaintenanceRequest{},
		&Expense{},
		&Tenancy{},
		&TenancyServiceCharge{},
		&RevenueObligation{},
		&Payment{},
		&Report{},
		&Activity{},
	}
}
