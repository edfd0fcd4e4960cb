package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-property-management/shared/rent"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOccurrences(t *testing.T) {
	from, to := day(2025, time.January, 1), day(2025, time.December, 31)

	tests := []struct {
		name  string
		item  ExpenseItem
		count int
	}{
		{"one off inside", ExpenseItem{Date: day(2025, time.March, 3), Frequency: FrequencyOneOff}, 1},
		{"one off outside", ExpenseItem{Date: day(2024, time.March, 3), Frequency: FrequencyOneOff}, 0},
		{"monthly all year", ExpenseItem{Date: day(2025, time.January, 15), Frequency: FrequencyMonthly}, 12},
		{"monthly started earlier", ExpenseItem{Date: day(2024, time.November, 1), Frequency: FrequencyMonthly}, 12},
		{"quarterly", ExpenseItem{Date: day(2025, time.February, 1), Frequency: FrequencyQuarterly}, 4},
		{"yearly", ExpenseItem{Date: day(2023, time.June, 30), Frequency: FrequencyYearly}, 1},
		{"starts after range", ExpenseItem{Date: day(2026, time.January, 1), Frequency: FrequencyMonthly}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Occurrences(tt.item, from, to), tt.count)
		})
	}
}

func TestOccurrences_ClampsMonthEnd(t *testing.T) {
	dates := Occurrences(ExpenseItem{Date: day(2025, time.January, 31), Frequency: FrequencyMonthly},
		day(2025, time.January, 1), day(2025, time.March, 31))

	require.Len(t, dates, 3)
	assert.Equal(t, day(2025, time.February, 28), dates[1])
	assert.Equal(t, day(2025, time.March, 31), dates[2])
}

func TestProfitAndLoss(t *testing.T) {
	income := []IncomeItem{
		{Kind: rent.KindRent, Date: day(2025, time.January, 2), Amount: amt("1000")},
		{Kind: rent.KindRent, Date: day(2025, time.February, 2), Amount: amt("1000")},
		{Kind: rent.KindDeposit, Date: day(2025, time.January, 2), Amount: amt("500")},
		{Kind: rent.KindRent, Date: day(2025, time.April, 2), Amount: amt("1000")},
	}
	expenses := []ExpenseItem{
		{Category: "insurance", Date: day(2025, time.January, 10), Amount: amt("40"), Frequency: FrequencyMonthly},
		{Category: "repairs", Date: day(2025, time.February, 20), Amount: amt("300"), Frequency: FrequencyOneOff},
	}

	p := ProfitAndLoss(income, expenses, day(2025, time.January, 1), day(2025, time.February, 28))

	assert.True(t, p.TotalIncome.Equal(amt("2500")))
	assert.True(t, p.IncomeByKind[rent.KindDeposit].Equal(amt("500")))
	assert.True(t, p.TotalExpenses.Equal(amt("380")))
	assert.True(t, p.ExpenseByType["insurance"].Equal(amt("80")))
	assert.True(t, p.NetIncome.Equal(amt("2120")))

	require.Len(t, p.Months, 2)
	assert.Equal(t, "2025-01", p.Months[0].Month)
	assert.True(t, p.Months[0].Net.Equal(amt("1460")))
	assert.True(t, p.Months[1].Net.Equal(amt("660")))
}

func TestMonthSnapshot(t *testing.T) {
	due := rent.GenerateSchedule(rent.ScheduleParams{
		StartDate:   day(2025, time.January, 1),
		EndDate:     day(2025, time.December, 31),
		MonthlyRent: amt("1000"),
		DueDay:      1,
		Deposit:     amt("1000"),
	})
	income := []IncomeItem{{Kind: rent.KindRent, Date: day(2025, time.March, 3), Amount: amt("750")}}
	leases := []Lease{{PropertyID: "p1", StartDate: day(2025, time.January, 1), EndDate: day(2025, time.December, 31)}}

	s := MonthSnapshot(day(2025, time.March, 17), due, income, nil, []string{"p1", "p2"}, leases)

	assert.Equal(t, "2025-03", s.Month)
	assert.True(t, s.RentExpected.Equal(amt("1000")))
	assert.True(t, s.Collected.Equal(amt("750")))
	assert.True(t, s.CollectionRate.Equal(amt("75")))
	assert.Equal(t, 2, s.Properties)
	assert.Equal(t, 1, s.OccupiedProperties)
}

func TestMonthSnapshot_DepositKeptOutOfCollectionRate(t *testing.T) {
	due := rent.GenerateSchedule(rent.ScheduleParams{
		StartDate:   day(2025, time.January, 1),
		EndDate:     day(2025, time.June, 30),
		MonthlyRent: amt("1000"),
		DueDay:      1,
		Deposit:     amt("1500"),
	})
	income := []IncomeItem{
		{Kind: rent.KindDeposit, Date: day(2025, time.January, 1), Amount: amt("1500")},
		{Kind: rent.KindRent, Date: day(2025, time.January, 2), Amount: amt("1000")},
	}
	expenses := []ExpenseItem{{Category: "repairs", Date: day(2025, time.January, 20), Amount: amt("200")}}

	s := MonthSnapshot(day(2025, time.January, 1), due, income, expenses, []string{"p1"}, nil)

	assert.True(t, s.RentExpected.Equal(amt("1000")))
	assert.True(t, s.Collected.Equal(amt("1000")))
	assert.True(t, s.DepositsCollected.Equal(amt("1500")))
	assert.True(t, s.CollectionRate.Equal(amt("100")), "rate %s", s.CollectionRate)
	assert.True(t, s.Net.Equal(amt("2300")))
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, FrequencyQuarterly.Valid())
	assert.False(t, Frequency("weekly").Valid())
}
