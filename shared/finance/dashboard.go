package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-property-management/shared/rent"
)

// Lease is the part of a tenancy needed for occupancy
type Lease struct {
	PropertyID string
	StartDate  time.Time
	EndDate    time.Time
}

// Snapshot summarises one calendar month for the dashboard. Expected and
// Collected both leave deposits out; Net counts every receipt.
type Snapshot struct {
	Month              string          `json:"month"`
	RentExpected       decimal.Decimal `json:"rent_expected"`
	Collected          decimal.Decimal `json:"collected"`
	DepositsCollected  decimal.Decimal `json:"deposits_collected"`
	Expenses           decimal.Decimal `json:"expenses"`
	Net                decimal.Decimal `json:"net"`
	CollectionRate     decimal.Decimal `json:"collection_rate"`
	Properties         int             `json:"properties"`
	OccupiedProperties int             `json:"occupied_properties"`
}

// MonthSnapshot computes the dashboard figures for the month containing month.
// due lists scheduled obligations, income lists received payments.
func MonthSnapshot(month time.Time, due []rent.Obligation, income []IncomeItem, expenses []ExpenseItem, propertyIDs []string, leases []Lease) Snapshot {
	from := rent.FirstOfMonth(month)
	to := from.AddDate(0, 1, -1)

	expected := decimal.Zero
	for _, o := range due {
		d := rent.DateOf(o.DueDate)
		if o.Kind == rent.KindDeposit || d.Before(from) || d.After(to) {
			continue
		}
		expected = expected.Add(o.AmountDue)
	}

	pnl := ProfitAndLoss(income, expenses, from, to)
	deposits := pnl.IncomeByKind[rent.KindDeposit]
	collected := pnl.TotalIncome.Sub(deposits)

	rate := decimal.Zero
	if expected.IsPositive() {
		rate = collected.Div(expected).Mul(decimal.NewFromInt(100)).Round(1)
	}

	occupied := Occupied(propertyIDs, leases, to)

	return Snapshot{
		Month:              from.Format("2006-01"),
		RentExpected:       expected,
		Collected:          collected,
		DepositsCollected:  deposits,
		Expenses:           pnl.TotalExpenses,
		Net:                pnl.NetIncome,
		CollectionRate:     rate,
		Properties:         len(propertyIDs),
		OccupiedProperties: occupied,
	}
}

// Occupied counts properties with at least one lease covering on
func Occupied(propertyIDs []string, leases []Lease, on time.Time) int {
	day := rent.DateOf(on)
	active := make(map[string]bool, len(leases))
	for _, l := range leases {
		if rent.DateOf(l.StartDate).After(day) || rent.DateOf(l.EndDate).Before(day) {
			continue
		}
		active[l.PropertyID] = true
	}

	count := 0
	for _, id := range propertyIDs {
		if active[id] {
			count++
		}
	}
	return count
}
