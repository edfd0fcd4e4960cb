package rent

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket classifies how long the oldest unpaid obligation has been overdue
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket1To30   Bucket = "1-30"
	Bucket31To60  Bucket = "31-60"
	Bucket61To90  Bucket = "61-90"
	BucketOver90  Bucket = "90+"
)

// Buckets lists aging buckets from youngest to oldest
var Buckets = []Bucket{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// Entry is the arrears view of one stored obligation
type Entry struct {
	TenancyID  string
	Kind       Kind
	DueDate    time.Time
	AmountDue  decimal.Decimal
	AmountPaid decimal.Decimal
}

// Summary is the arrears position of one tenancy at a point in time
type Summary struct {
	TenancyID         string          `json:"tenancy_id"`
	TotalDue          decimal.Decimal `json:"total_due"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	TotalOwed         decimal.Decimal `json:"total_owed"`
	Credit            decimal.Decimal `json:"credit"`
	DepositOwed       decimal.Decimal `json:"deposit_owed"`
	RentOwed          decimal.Decimal `json:"rent_owed"`
	ServiceChargeOwed decimal.Decimal `json:"service_charge_owed"`
	OldestUnpaidDue   *time.Time      `json:"oldest_unpaid_due,omitempty"`
	DaysOverdue       int             `json:"days_overdue"`
	Bucket            Bucket          `json:"bucket"`
}

// InArrears reports whether the tenancy owes anything
func (s Summary) InArrears() bool {
	return s.TotalOwed.IsPositive()
}

// Summarize computes the arrears position of a single tenancy. Entries due
// after asOf are ignored. The paid total is attributed to deposit, then rent,
// then service charges regardless of which obligation it was recorded on.
func Summarize(tenancyID string, entries []Entry, asOf time.Time) Summary {
	today := DateOf(asOf)

	var depositDue, rentDue, chargeDue, paid decimal.Decimal
	var oldest *time.Time

	for _, e := range entries {
		due := DateOf(e.DueDate)
		if due.After(today) {
			continue
		}

		switch e.Kind {
		case KindDeposit:
			depositDue = depositDue.Add(e.AmountDue)
		case KindRent:
			rentDue = rentDue.Add(e.AmountDue)
		default:
			chargeDue = chargeDue.Add(e.AmountDue)
		}
		paid = paid.Add(e.AmountPaid)

		if e.AmountPaid.LessThan(e.AmountDue) && (oldest == nil || due.Before(*oldest)) {
			d := due
			oldest = &d
		}
	}

	remaining := paid
	depositOwed, remaining := allocate(depositDue, remaining)
	rentOwed, remaining := allocate(rentDue, remaining)
	chargeOwed, _ := allocate(chargeDue, remaining)

	totalDue := depositDue.Add(rentDue).Add(chargeDue)
	owed := totalDue.Sub(paid)

	s := Summary{
		TenancyID:         tenancyID,
		TotalDue:          totalDue,
		TotalPaid:         paid,
		TotalOwed:         owed,
		Credit:            decimal.Zero,
		DepositOwed:       depositOwed,
		RentOwed:          rentOwed,
		ServiceChargeOwed: chargeOwed,
		Bucket:            BucketCurrent,
	}
	if owed.IsNegative() {
		s.Credit = owed.Neg()
	}
	if oldest != nil {
		s.OldestUnpaidDue = oldest
		s.DaysOverdue = daysBetween(*oldest, today)
		s.Bucket = BucketFor(s.DaysOverdue)
	}
	return s
}

// ComputeArrears groups entries by tenancy and returns only tenancies that
// owe money, largest balance first.
func ComputeArrears(entries []Entry, asOf time.Time) []Summary {
	byTenancy := make(map[string][]Entry)
	for _, e := range entries {
		byTenancy[e.TenancyID] = append(byTenancy[e.TenancyID], e)
	}

	summaries := make([]Summary, 0, len(byTenancy))
	for id, group := range byTenancy {
		s := Summarize(id, group, asOf)
		if !s.InArrears() {
			continue
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if c := summaries[i].TotalOwed.Cmp(summaries[j].TotalOwed); c != 0 {
			return c > 0
		}
		return summaries[i].TenancyID < summaries[j].TenancyID
	})
	return summaries
}

// AgingReport totals owed amounts per bucket
func AgingReport(summaries []Summary) map[Bucket]decimal.Decimal {
	report := make(map[Bucket]decimal.Decimal, len(Buckets))
	for _, b := range Buckets {
		report[b] = decimal.Zero
	}
	for _, s := range summaries {
		if !s.InArrears() {
			continue
		}
		report[s.Bucket] = report[s.Bucket].Add(s.TotalOwed)
	}
	return report
}

// BucketFor maps elapsed days to an aging bucket
func BucketFor(days int) Bucket {
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// allocate applies up to due from available and returns (owed, leftover)
func allocate(due, available decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	applied := decimal.Min(due, available)
	if applied.IsNegative() {
		applied = decimal.Zero
	}
	return due.Sub(applied), available.Sub(applied)
}
