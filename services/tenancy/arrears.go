package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/finance"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/rent"
	"github.com/pavitra93/go-property-management/shared/utils"
)

const arrearsCacheTTL = 5 * time.Minute

// ArrearsLine is one tenancy in arrears with display fields
type ArrearsLine struct {
	rent.Summary
	TenantName         string    `json:"tenant_name"`
	PropertyID         uuid.UUID `json:"property_id"`
	TotalOwedFormatted string    `json:"total_owed_formatted"`
}

// ArrearsReport is the organization-wide arrears position on one date
type ArrearsReport struct {
	AsOf           string            `json:"as_of"`
	Locale         config.Locale     `json:"locale"`
	TotalOwed      decimal.Decimal   `json:"total_owed"`
	TotalFormatted string            `json:"total_owed_formatted"`
	Tenancies      []ArrearsLine     `json:"tenancies"`
	Aging          map[string]string `json:"aging"`
}

// AgingResponse is the aging report on its own
type AgingResponse struct {
	AsOf      string                          `json:"as_of"`
	Buckets   map[rent.Bucket]decimal.Decimal `json:"buckets"`
	Formatted map[string]string               `json:"formatted"`
}

func arrearsCachePrefix(orgID uuid.UUID) string {
	return "arrears:" + orgID.String() + ":"
}

// handleGetArrears lists every tenancy with money owed on as_of (default today)
func handleGetArrears(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		asOf, err := utils.DateQuery(c, "as_of", utils.Today())
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		report, err := loadArrears(c.Request.Context(), db, orgID, asOf)
		if err != nil {
			logrus.WithError(err).WithField("org_id", orgID).Error("Failed to compute arrears")
			utils.InternalServerErrorResponse(c, "Failed to compute arrears")
			return
		}

		utils.OKResponse(c, "Arrears computed successfully", report)
	}
}

// handleGetAging totals arrears by how long they have been overdue
func handleGetAging(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		asOf, err := utils.DateQuery(c, "as_of", utils.Today())
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		report, err := loadArrears(c.Request.Context(), db, orgID, asOf)
		if err != nil {
			logrus.WithError(err).WithField("org_id", orgID).Error("Failed to compute aging")
			utils.InternalServerErrorResponse(c, "Failed to compute aging")
			return
		}

		summaries := make([]rent.Summary, len(report.Tenancies))
		for i, line := range report.Tenancies {
			summaries[i] = line.Summary
		}

		utils.OKResponse(c, "Aging computed successfully", AgingResponse{
			AsOf:      report.AsOf,
			Buckets:   rent.AgingReport(summaries),
			Formatted: report.Aging,
		})
	}
}

// loadArrears returns the cached report for (org, date) or computes it from
// the stored obligations
func loadArrears(ctx context.Context, db *gorm.DB, orgID uuid.UUID, asOf time.Time) (*ArrearsReport, error) {
	cacheKey := arrearsCachePrefix(orgID) + asOf.Format(utils.DateLayout)

	var cached ArrearsReport
	err := utils.CacheGetJSON(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, utils.ErrCacheMiss) {
		logrus.WithError(err).Warn("Arrears cache read failed")
	}

	var obligations []models.RevenueObligation
	if err := db.WithContext(ctx).
		Where("org_id = ? AND due_date <= ?", orgID, asOf).
		Find(&obligations).Error; err != nil {
		return nil, fmt.Errorf("failed to load obligations: %w", err)
	}

	summaries := rent.ComputeArrears(models.Entries(obligations), asOf)

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.TenancyID
	}
	var tenancies []models.Tenancy
	if len(ids) > 0 {
		if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&tenancies).Error; err != nil {
			return nil, fmt.Errorf("failed to load tenancies: %w", err)
		}
	}
	byID := make(map[string]models.Tenancy, len(tenancies))
	for _, t := range tenancies {
		byID[t.ID.String()] = t
	}

	locale := orgLocale(ctx, db, orgID)
	report := &ArrearsReport{
		AsOf:      asOf.Format(utils.DateLayout),
		Locale:    locale,
		TotalOwed: decimal.Zero,
		Tenancies: make([]ArrearsLine, 0, len(summaries)),
	}
	for _, s := range summaries {
		t := byID[s.TenancyID]
		report.TotalOwed = report.TotalOwed.Add(s.TotalOwed)
		report.Tenancies = append(report.Tenancies, ArrearsLine{
			Summary:            s,
			TenantName:         t.TenantName,
			PropertyID:         t.PropertyID,
			TotalOwedFormatted: locale.FormatMoney(s.TotalOwed),
		})
	}
	report.TotalFormatted = locale.FormatMoney(report.TotalOwed)

	aging := rent.AgingReport(summaries)
	named := make(map[string]decimal.Decimal, len(aging))
	for bucket, amount := range aging {
		named[string(bucket)] = amount
	}
	report.Aging = locale.FormatAmounts(named)

	if err := utils.CacheSetJSON(ctx, cacheKey, report, arrearsCacheTTL); err != nil {
		logrus.WithError(err).Warn("Arrears cache write failed")
	}
	return report, nil
}

// handleGetDashboard summarises one month: rent expected and collected,
// expenses, net income and occupancy
func handleGetDashboard(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		month, err := utils.MonthQuery(c, "month", utils.Today())
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		from := rent.FirstOfMonth(month)
		to := from.AddDate(0, 1, -1)
		ctx := c.Request.Context()

		var obligations []models.RevenueObligation
		if err := db.WithContext(ctx).Where("org_id = ? AND due_date >= ? AND due_date <= ?", orgID, from, to).
			Find(&obligations).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch obligations")
			return
		}
		due := make([]rent.Obligation, len(obligations))
		for i, o := range obligations {
			due[i] = rent.Obligation{Kind: o.Kind, Name: o.Name, DueDate: o.DueDate, AmountDue: o.AmountDue}
		}

		var payments []models.Payment
		if err := db.WithContext(ctx).Where("org_id = ? AND paid_at >= ? AND paid_at < ?", orgID, from, to.AddDate(0, 0, 1)).
			Find(&payments).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch payments")
			return
		}
		income := make([]finance.IncomeItem, len(payments))
		for i, p := range payments {
			income[i] = finance.IncomeItem{Kind: p.Kind, Date: p.PaidAt, Amount: p.Amount}
		}

		// Recurring expenses started before the month still occur in it
		var expenses []models.Expense
		if err := db.WithContext(ctx).Where("org_id = ? AND date <= ?", orgID, to).Find(&expenses).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch expenses")
			return
		}
		expenseItems := make([]finance.ExpenseItem, len(expenses))
		for i := range expenses {
			expenseItems[i] = expenses[i].ToItem()
		}

		var propertyIDs []string
		if err := db.WithContext(ctx).Model(&models.Property{}).Where("org_id = ?", orgID).Pluck("id", &propertyIDs).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch properties")
			return
		}

		var tenancies []models.Tenancy
		if err := db.WithContext(ctx).Where("org_id = ? AND start_date <= ? AND end_date >= ?", orgID, to, from).
			Find(&tenancies).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenancies")
			return
		}
		leases := make([]finance.Lease, len(tenancies))
		for i, t := range tenancies {
			leases[i] = finance.Lease{PropertyID: t.PropertyID.String(), StartDate: t.StartDate, EndDate: t.EndDate}
		}

		snapshot := finance.MonthSnapshot(from, due, income, expenseItems, propertyIDs, leases)
		locale := orgLocale(ctx, db, orgID)

		utils.OKResponse(c, "Dashboard computed successfully", gin.H{
			"snapshot": snapshot,
			"locale":   locale,
			"formatted": locale.FormatAmounts(map[string]decimal.Decimal{
				"rent_expected":      snapshot.RentExpected,
				"collected":          snapshot.Collected,
				"deposits_collected": snapshot.DepositsCollected,
				"expenses":           snapshot.Expenses,
				"net":                snapshot.Net,
			}),
		})
	}
}

// orgLocale returns the organization's money formatting settings
func orgLocale(ctx context.Context, db *gorm.DB, orgID uuid.UUID) config.Locale {
	var org models.Organization
	if err := db.WithContext(ctx).Select("currency", "locale").Where("id = ?", orgID).First(&org).Error; err != nil {
		return config.DefaultLocale
	}
	return config.NewLocale(org.Currency, org.Locale)
}
