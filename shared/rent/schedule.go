package rent

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies what an obligation is charged for
type Kind string

const (
	KindRent          Kind = "rent"
	KindDeposit       Kind = "deposit"
	KindServiceCharge Kind = "service_charge"
)

var (
	ErrEndBeforeStart  = errors.New("end date is before start date")
	ErrInvalidDueDay   = errors.New("due day must be between 1 and 31")
	ErrNegativeAmount  = errors.New("amounts must not be negative")
	ErrEmptyChargeName = errors.New("service charge name can't be empty")
)

// ServiceCharge is a named recurring monthly charge on top of rent
type ServiceCharge struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ScheduleParams holds everything the generator needs from a tenancy
type ScheduleParams struct {
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	DueDay         int             `json:"due_day"`
	ServiceCharges []ServiceCharge `json:"service_charges"`
	Deposit        decimal.Decimal `json:"deposit"`
}

// Obligation is one expected payment produced by GenerateSchedule
type Obligation struct {
	Kind        Kind            `json:"kind"`
	Name        string          `json:"name"`
	DueDate     time.Time       `json:"due_date"`
	AmountDue   decimal.Decimal `json:"amount_due"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

// Validate reports the first problem that would make a persisted schedule wrong.
// GenerateSchedule itself never fails, so callers that store its output must
// call Validate first.
func (p ScheduleParams) Validate() error {
	if DateOf(p.EndDate).Before(DateOf(p.StartDate)) {
		return ErrEndBeforeStart
	}
	if p.DueDay < 1 || p.DueDay > 31 {
		return fmt.Errorf("%w: got %d", ErrInvalidDueDay, p.DueDay)
	}
	if p.MonthlyRent.IsNegative() || p.Deposit.IsNegative() {
		return ErrNegativeAmount
	}
	for _, sc := range p.ServiceCharges {
		if sc.Name == "" {
			return ErrEmptyChargeName
		}
		if sc.Amount.IsNegative() {
			return fmt.Errorf("%w: service charge %q", ErrNegativeAmount, sc.Name)
		}
	}
	return nil
}

// GenerateSchedule produces the deposit (if any) followed by one rent
// obligation and one obligation per service charge for every calendar month
// touched by [StartDate, EndDate]. Partial months are prorated by day count.
// An inverted range yields no obligations.
func GenerateSchedule(p ScheduleParams) []Obligation {
	start := DateOf(p.StartDate)
	end := DateOf(p.EndDate)
	if end.Before(start) {
		return []Obligation{}
	}

	obligations := make([]Obligation, 0, (monthsBetween(start, end)+1)*(1+len(p.ServiceCharges))+1)

	if p.Deposit.IsPositive() {
		obligations = append(obligations, Obligation{
			Kind:        KindDeposit,
			Name:        "Deposit",
			DueDate:     start,
			AmountDue:   p.Deposit,
			PeriodStart: start,
			PeriodEnd:   start,
		})
	}

	last := FirstOfMonth(end)
	for month := FirstOfMonth(start); !month.After(last); month = month.AddDate(0, 1, 0) {
		monthEnd := month.AddDate(0, 1, -1)
		daysInMonth := monthEnd.Day()

		activeStart := laterOf(start, month)
		activeEnd := earlierOf(end, monthEnd)
		daysActive := daysBetween(activeStart, activeEnd) + 1

		due := dueDateIn(month, p.DueDay)
		if month.Equal(FirstOfMonth(start)) {
			due = start
		}

		obligations = append(obligations, Obligation{
			Kind:        KindRent,
			Name:        "Rent",
			DueDate:     due,
			AmountDue:   Prorate(p.MonthlyRent, daysInMonth, daysActive),
			PeriodStart: activeStart,
			PeriodEnd:   activeEnd,
		})

		for _, sc := range p.ServiceCharges {
			amount := Prorate(sc.Amount, daysInMonth, daysActive)
			if amount.IsZero() {
				continue
			}
			obligations = append(obligations, Obligation{
				Kind:        KindServiceCharge,
				Name:        sc.Name,
				DueDate:     due,
				AmountDue:   amount,
				PeriodStart: activeStart,
				PeriodEnd:   activeEnd,
			})
		}
	}

	return obligations
}

// Prorate scales a monthly amount to the active days of a month.
// A fully covered month returns the amount untouched.
func Prorate(monthly decimal.Decimal, daysInMonth, daysActive int) decimal.Decimal {
	if daysActive >= daysInMonth {
		return monthly
	}
	if daysActive <= 0 {
		return decimal.Zero
	}
	return monthly.
		Div(decimal.NewFromInt(int64(daysInMonth))).
		Mul(decimal.NewFromInt(int64(daysActive))).
		Round(2)
}

// Total sums AmountDue over obligations
func Total(obligations []Obligation) decimal.Decimal {
	total := decimal.Zero
	for _, o := range obligations {
		total = total.Add(o.AmountDue)
	}
	return total
}

// TotalByKind sums AmountDue over obligations of one kind
func TotalByKind(obligations []Obligation, kind Kind) decimal.Decimal {
	total := decimal.Zero
	for _, o := range obligations {
		if o.Kind == kind {
			total = total.Add(o.AmountDue)
		}
	}
	return total
}

// DateOf truncates t to a UTC calendar date, keeping t's own year/month/day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns the first day of t's month
func FirstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in t's month
func DaysIn(t time.Time) int {
	return FirstOfMonth(t).AddDate(0, 1, -1).Day()
}

func dueDateIn(month time.Time, dueDay int) time.Time {
	if last := DaysIn(month); dueDay > last {
		dueDay = last
	}
	if dueDay < 1 {
		dueDay = 1
	}
	return time.Date(month.Year(), month.Month(), dueDay, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
