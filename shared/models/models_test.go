package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-property-management/shared/rent"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMaintenanceTransition(t *testing.T) {
	tests := []struct {
		from    MaintenanceStatus
		to      MaintenanceStatus
		allowed bool
	}{
		{MaintenanceOpen, MaintenanceInProgress, true},
		{MaintenanceOpen, MaintenanceCancelled, true},
		{MaintenanceOpen, MaintenanceCompleted, false},
		{MaintenanceInProgress, MaintenanceCompleted, true},
		{MaintenanceInProgress, MaintenanceCancelled, true},
		{MaintenanceInProgress, MaintenanceOpen, false},
		{MaintenanceCompleted, MaintenanceInProgress, false},
		{MaintenanceCancelled, MaintenanceOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := &MaintenanceRequest{Status: tt.from}
			err := m.Transition(tt.to)
			if !tt.allowed {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
				assert.Equal(t, tt.from, m.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, m.Status)
			assert.Equal(t, tt.to == MaintenanceCompleted, m.CompletedAt != nil)
		})
	}
}

func TestTenancyScheduleParamsAndObligations(t *testing.T) {
	tenancy := &Tenancy{
		ID:          uuid.New(),
		OrgID:       uuid.New(),
		PropertyID:  uuid.New(),
		StartDate:   day("2025-01-15"),
		EndDate:     day("2025-03-14"),
		MonthlyRent: decimal.NewFromInt(3000),
		Deposit:     decimal.NewFromInt(1500),
		DueDay:      1,
		ServiceCharges: []TenancyServiceCharge{
			{Name: "Parking", Amount: decimal.NewFromInt(31)},
		},
	}

	params := tenancy.ScheduleParams()
	require.NoError(t, params.Validate())
	require.Len(t, params.ServiceCharges, 1)
	assert.Equal(t, "Parking", params.ServiceCharges[0].Name)

	rows := NewObligations(tenancy, rent.GenerateSchedule(params))
	require.Len(t, rows, 7)
	for _, r := range rows {
		assert.Equal(t, tenancy.ID, r.TenancyID)
		assert.Equal(t, tenancy.OrgID, r.OrgID)
		assert.Equal(t, tenancy.PropertyID, r.PropertyID)
		assert.True(t, r.AmountPaid.IsZero())
		assert.NotEqual(t, uuid.Nil, r.ID)
	}
	assert.Equal(t, rent.KindDeposit, rows[0].Kind)

	rows[1].AmountPaid = decimal.NewFromInt(1000)
	assert.True(t, rows[1].Outstanding().Equal(rows[1].AmountDue.Sub(decimal.NewFromInt(1000))))

	entries := Entries(rows)
	require.Len(t, entries, len(rows))
	assert.Equal(t, tenancy.ID.String(), entries[1].TenancyID)
	assert.True(t, entries[1].AmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestTenancyIsActive(t *testing.T) {
	tenancy := &Tenancy{StartDate: day("2025-01-15"), EndDate: day("2025-03-14")}

	assert.False(t, tenancy.IsActive(day("2025-01-14")))
	assert.True(t, tenancy.IsActive(day("2025-01-15")))
	assert.True(t, tenancy.IsActive(time.Date(2025, 3, 14, 23, 59, 0, 0, time.UTC)))
	assert.False(t, tenancy.IsActive(day("2025-03-15")))
}

func TestUserRoleCanWrite(t *testing.T) {
	assert.True(t, RoleOwner.CanWrite())
	assert.True(t, RoleManager.CanWrite())
	assert.False(t, RoleViewer.CanWrite())
	assert.False(t, UserRole("").CanWrite())
}
