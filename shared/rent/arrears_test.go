package rent

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(tenancy string, kind Kind, due time.Time, amountDue, amountPaid string) Entry {
	return Entry{
		TenancyID:  tenancy,
		Kind:       kind,
		DueDate:    due,
		AmountDue:  dec(amountDue),
		AmountPaid: dec(amountPaid),
	}
}

func TestSummarize_DepositAllocatedFirst(t *testing.T) {
	// the whole 150 was recorded against rent, but deposit is settled first
	entries := []Entry{
		entry("t1", KindDeposit, date(2025, time.January, 1), "100", "0"),
		entry("t1", KindRent, date(2025, time.January, 1), "500", "150"),
		entry("t1", KindRent, date(2025, time.February, 1), "500", "0"),
	}

	s := Summarize("t1", entries, date(2025, time.February, 15))

	assert.True(t, s.DepositOwed.IsZero(), "deposit owed %s", s.DepositOwed)
	assert.True(t, s.RentOwed.Equal(dec("950")), "rent owed %s", s.RentOwed)
	assert.True(t, s.TotalOwed.Equal(dec("950")))
	assert.True(t, s.ServiceChargeOwed.IsZero())
}

func TestSummarize_ServiceChargesLast(t *testing.T) {
	entries := []Entry{
		entry("t1", KindRent, date(2025, time.March, 1), "1000", "1000"),
		entry("t1", KindServiceCharge, date(2025, time.March, 1), "80", "0"),
		entry("t1", KindDeposit, date(2025, time.March, 1), "200", "100"),
	}

	s := Summarize("t1", entries, date(2025, time.March, 10))

	assert.True(t, s.DepositOwed.IsZero())
	assert.True(t, s.RentOwed.Equal(dec("100")))
	assert.True(t, s.ServiceChargeOwed.Equal(dec("80")))
	assert.True(t, s.TotalOwed.Equal(dec("180")))
}

func TestSummarize_IgnoresFutureObligations(t *testing.T) {
	entries := []Entry{
		entry("t1", KindRent, date(2025, time.May, 1), "900", "900"),
		entry("t1", KindRent, date(2025, time.June, 1), "900", "0"),
	}

	s := Summarize("t1", entries, date(2025, time.May, 31))

	assert.True(t, s.TotalDue.Equal(dec("900")))
	assert.False(t, s.InArrears())
	assert.Nil(t, s.OldestUnpaidDue)
	assert.Equal(t, BucketCurrent, s.Bucket)
}

func TestSummarize_DueTodayCounts(t *testing.T) {
	entries := []Entry{entry("t1", KindRent, date(2025, time.May, 1), "900", "0")}

	s := Summarize("t1", entries, time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC))

	assert.True(t, s.TotalOwed.Equal(dec("900")))
	assert.Equal(t, 0, s.DaysOverdue)
}

func TestSummarize_DaysOverdueUsesEarliestUnpaid(t *testing.T) {
	entries := []Entry{
		entry("t1", KindRent, date(2025, time.January, 1), "700", "700"),
		entry("t1", KindRent, date(2025, time.February, 1), "700", "200"),
		entry("t1", KindRent, date(2025, time.March, 1), "700", "0"),
	}

	s := Summarize("t1", entries, date(2025, time.April, 12))

	require.NotNil(t, s.OldestUnpaidDue)
	assert.Equal(t, date(2025, time.February, 1), *s.OldestUnpaidDue)
	assert.Equal(t, 70, s.DaysOverdue)
	assert.Equal(t, Bucket61To90, s.Bucket)
}

func TestSummarize_OverpaymentBecomesCredit(t *testing.T) {
	entries := []Entry{entry("t1", KindRent, date(2025, time.January, 1), "500", "650")}

	s := Summarize("t1", entries, date(2025, time.January, 20))

	assert.True(t, s.TotalOwed.Equal(dec("-150")))
	assert.True(t, s.Credit.Equal(dec("150")))
	assert.True(t, s.RentOwed.IsZero())
	assert.False(t, s.InArrears())
}

func TestComputeArrears_ExcludesSettledTenancies(t *testing.T) {
	asOf := date(2025, time.June, 15)
	entries := []Entry{
		entry("paid", KindRent, date(2025, time.June, 1), "1000", "1000"),
		entry("credit", KindRent, date(2025, time.June, 1), "1000", "1200"),
		entry("small", KindRent, date(2025, time.June, 1), "1000", "900"),
		entry("large", KindRent, date(2025, time.May, 1), "1000", "0"),
		entry("large", KindRent, date(2025, time.June, 1), "1000", "0"),
		entry("future", KindRent, date(2025, time.July, 1), "1000", "0"),
	}

	summaries := ComputeArrears(entries, asOf)

	require.Len(t, summaries, 2)
	assert.Equal(t, "large", summaries[0].TenancyID)
	assert.True(t, summaries[0].TotalOwed.Equal(dec("2000")))
	assert.Equal(t, "small", summaries[1].TenancyID)
	for _, s := range summaries {
		assert.True(t, s.TotalOwed.IsPositive())
	}
}

func TestComputeArrears_Empty(t *testing.T) {
	assert.Empty(t, ComputeArrears(nil, date(2025, time.January, 1)))
}

func TestAgingReport(t *testing.T) {
	summaries := []Summary{
		{TenancyID: "a", TotalOwed: dec("100"), Bucket: Bucket1To30},
		{TenancyID: "b", TotalOwed: dec("50"), Bucket: Bucket1To30},
		{TenancyID: "c", TotalOwed: dec("400"), Bucket: BucketOver90},
		{TenancyID: "d", TotalOwed: dec("-20"), Bucket: BucketCurrent},
	}

	report := AgingReport(summaries)

	assert.Len(t, report, len(Buckets))
	assert.True(t, report[Bucket1To30].Equal(dec("150")))
	assert.True(t, report[BucketOver90].Equal(dec("400")))
	assert.True(t, report[BucketCurrent].Equal(decimal.Zero))
}

func TestBucketFor(t *testing.T) {
	cases := map[int]Bucket{
		0:   BucketCurrent,
		1:   Bucket1To30,
		30:  Bucket1To30,
		31:  Bucket31To60,
		60:  Bucket31To60,
		61:  Bucket61To90,
		90:  Bucket61To90,
		91:  BucketOver90,
		400: BucketOver90,
	}
	for days, want := range cases {
		assert.Equal(t, want, BucketFor(days), "days=%d", days)
	}
}
