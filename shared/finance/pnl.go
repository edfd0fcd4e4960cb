// Package finance aggregates payments and expenses into period reports.
package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-property-management/shared/rent"
)

// Frequency describes how often an expense repeats
type Frequency string

const (
	FrequencyOneOff    Frequency = "one_off"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneOff, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// IncomeItem is money actually received
type IncomeItem struct {
	Kind   rent.Kind
	Date   time.Time
	Amount decimal.Decimal
}

// ExpenseItem is a cost, possibly repeating from Date onwards
type ExpenseItem struct {
	Category  string
	Date      time.Time
	Amount    decimal.Decimal
	Frequency Frequency
}

// MonthLine is one row of the monthly breakdown
type MonthLine struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// PnL is a profit and loss statement for [From, To]
type PnL struct {
	From          time.Time                     `json:"from"`
	To            time.Time                     `json:"to"`
	IncomeByKind  map[rent.Kind]decimal.Decimal `json:"income_by_kind"`
	TotalIncome   decimal.Decimal               `json:"total_income"`
	ExpenseByType map[string]decimal.Decimal    `json:"expenses_by_category"`
	TotalExpenses decimal.Decimal               `json:"total_expenses"`
	NetIncome     decimal.Decimal               `json:"net_income"`
	Months        []MonthLine                   `json:"months"`
}

// ProfitAndLoss builds a statement over [from, to] (dates inclusive).
// Repeating expenses contribute once per occurrence inside the range.
func ProfitAndLoss(income []IncomeItem, expenses []ExpenseItem, from, to time.Time) PnL {
	from, to = rent.DateOf(from), rent.DateOf(to)

	p := PnL{
		From:          from,
		To:            to,
		IncomeByKind:  make(map[rent.Kind]decimal.Decimal),
		TotalIncome:   decimal.Zero,
		ExpenseByType: make(map[string]decimal.Decimal),
		TotalExpenses: decimal.Zero,
	}
	months := make(map[string]*MonthLine)
	line := func(d time.Time) *MonthLine {
		key := d.Format("2006-01")
		if m, ok := months[key]; ok {
			return m
		}
		m := &MonthLine{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
		months[key] = m
		return m
	}

	for _, in := range income {
		d := rent.DateOf(in.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		p.IncomeByKind[in.Kind] = p.IncomeByKind[in.Kind].Add(in.Amount)
		p.TotalIncome = p.TotalIncome.Add(in.Amount)
		m := line(d)
		m.Income = m.Income.Add(in.Amount)
	}

	for _, e := range expenses {
		for _, d := range Occurrences(e, from, to) {
			p.ExpenseByType[e.Category] = p.ExpenseByType[e.Category].Add(e.Amount)
			p.TotalExpenses = p.TotalExpenses.Add(e.Amount)
			m := line(d)
			m.Expenses = m.Expenses.Add(e.Amount)
		}
	}

	p.NetIncome = p.TotalIncome.Sub(p.TotalExpenses)
	p.Months = make([]MonthLine, 0, len(months))
	for _, m := range months {
		m.Net = m.Income.Sub(m.Expenses)
		p.Months = append(p.Months, *m)
	}
	sort.Slice(p.Months, func(i, j int) bool { return p.Months[i].Month < p.Months[j].Month })

	return p
}

// Occurrences lists the dates in [from, to] on which e is incurred
func Occurrences(e ExpenseItem, from, to time.Time) []time.Time {
	start := rent.DateOf(e.Date)
	var step int
	switch e.Frequency {
	case FrequencyMonthly:
		step = 1
	case FrequencyQuarterly:
		step = 3
	case FrequencyYearly:
		step = 12
	default:
		if start.Before(from) || start.After(to) {
			return nil
		}
		return []time.Time{start}
	}

	var dates []time.Time
	for i := 0; ; i++ {
		d := addMonthsClamped(start, i*step)
		if d.After(to) {
			break
		}
		if !d.Before(from) {
			dates = append(dates, d)
		}
	}
	return dates
}

// addMonthsClamped moves t by n months keeping the day of month where possible,
// falling back to the month's last day (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(t time.Time, n int) time.Time {
	first := rent.FirstOfMonth(t).AddDate(0, n, 0)
	day := t.Day()
	if last := rent.DaysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
