package main

import (
	"encoding/json"
	"strconv"

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

// PnLRequest asks for a narrative over [From, To]
type PnLRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// MarketResearchRequest asks for a brief on one property
type MarketResearchRequest struct {
	PropertyID string `json:"property_id" binding:"required,uuid"`
}

// ReminderRequest asks for an arrears reminder for one tenancy
type ReminderRequest struct {
	TenancyID string `json:"tenancy_id" binding:"required,uuid"`
}

// handleCreatePnL builds a profit and loss statement and asks the model to narrate it
func handleCreatePnL(db *gorm.DB, reporter *Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req PnLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		from, err := utils.ParseDate(req.From)
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		to, err := utils.ParseDate(req.To)
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		if to.Before(from) {
			utils.BadRequestResponse(c, "to must not be before from")
			return
		}

		ctx := c.Request.Context()
		org := loadOrg(db, orgID)

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

		var expenses []models.Expense
		if err := db.WithContext(ctx).Where("org_id = ? AND date <= ?", orgID, to).Find(&expenses).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch expenses")
			return
		}
		items := make([]finance.ExpenseItem, len(expenses))
		for i := range expenses {
			items[i] = expenses[i].ToItem()
		}

		var properties int64
		if err := db.WithContext(ctx).Model(&models.Property{}).Where("org_id = ?", orgID).Count(&properties).Error; err != nil {
			logrus.WithError(err).WithField("org_id", orgID).Error("Failed to count properties")
			utils.InternalServerErrorResponse(c, "Failed to fetch properties")
			return
		}

		facts := PnLFacts{
			Organization: org.Name,
			Currency:     org.Currency,
			Statement:    finance.ProfitAndLoss(income, items, from, to),
			Properties:   int(properties),
		}
		createReport(c, db, reporter, orgID, models.ReportProfitAndLoss, nil, facts)
	}
}

// handleCreateMarketResearch asks the model for a brief on a property
func handleCreateMarketResearch(db *gorm.DB, reporter *Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req MarketResearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var property models.Property
		if err := db.Where("id = ? AND org_id = ?", req.PropertyID, orgID).First(&property).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Property")
			return
		}

		today := utils.Today()
		var active []models.Tenancy
		if err := db.Where("org_id = ? AND property_id = ? AND start_date <= ? AND end_date >= ?",
			orgID, property.ID, today, today).Find(&active).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenancies")
			return
		}
		rentNow := decimal.Zero
		for _, t := range active {
			rentNow = rentNow.Add(t.MonthlyRent)
		}

		org := loadOrg(db, orgID)
		facts := MarketFacts{
			Name:          property.Name,
			Type:          string(property.Type),
			Address:       property.Address,
			City:          property.City,
			Postcode:      property.Postcode,
			Units:         property.Units,
			Bedrooms:      property.Bedrooms,
			Currency:      org.Currency,
			PurchasePrice: property.PurchasePrice,
			CurrentRent:   rentNow,
			Occupied:      len(active) > 0,
		}
		createReport(c, db, reporter, orgID, models.ReportMarketResearch, &property.ID, facts)
	}
}

// handleCreateReminder drafts a reminder for a tenancy that is in arrears
func handleCreateReminder(db *gorm.DB, reporter *Reporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req ReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var tenancy models.Tenancy
		if err := db.Preload("Property").Where("id = ? AND org_id = ?", req.TenancyID, orgID).First(&tenancy).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Tenancy")
			return
		}

		today := utils.Today()
		var obligations []models.RevenueObligation
		if err := db.Where("tenancy_id = ? AND due_date <= ?", tenancy.ID, today).Find(&obligations).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch obligations")
			return
		}
		summary := rent.Summarize(tenancy.ID.String(), models.Entries(obligations), today)
		if !summary.InArrears() {
			utils.ConflictResponse(c, "Tenancy is not in arrears")
			return
		}

		org := loadOrg(db, orgID)
		locale := config.NewLocale(org.Currency, org.Locale)
		facts := ReminderFacts{
			Organization: org.Name,
			TenantName:   tenancy.TenantName,
			TenantEmail:  tenancy.TenantEmail,
			TotalOwed:    locale.FormatMoney(summary.TotalOwed),
			RentOwed:     locale.FormatMoney(summary.RentOwed),
			DepositOwed:  locale.FormatMoney(summary.DepositOwed),
			ChargesOwed:  locale.FormatMoney(summary.ServiceChargeOwed),
			DaysOverdue:  summary.DaysOverdue,
		}
		if tenancy.Property != nil {
			facts.PropertyName = tenancy.Property.Name
		}
		if summary.OldestUnpaidDue != nil {
			facts.OldestUnpaidDue = summary.OldestUnpaidDue.Format(utils.DateLayout)
		}
		createReport(c, db, reporter, orgID, models.ReportReminder, &tenancy.ID, facts)
	}
}

// createReport stores a pending report and makes the first attempt inline.
// The response carries the report whether or not that attempt succeeded.
func createReport(c *gin.Context, db *gorm.DB, reporter *Reporter, orgID uuid.UUID, kind models.ReportKind, subject *uuid.UUID, facts interface{}) {
	input, err := json.Marshal(facts)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to encode report input")
		return
	}

	report := models.Report{
		ID:          uuid.New(),
		OrgID:       orgID,
		Kind:        kind,
		SubjectID:   subject,
		Status:      models.ReportPending,
		Input:       string(input),
		RequestedBy: c.GetString("user_id"),
	}
	if err := db.Create(&report).Error; err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create report")
		return
	}

	if err := reporter.Run(c.Request.Context(), &report); err != nil {
		utils.InternalServerErrorResponse(c, "Failed to save report")
		return
	}

	message := "Report generated successfully"
	switch report.Status {
	case models.ReportPending:
		message = "Report queued for retry"
	case models.ReportFailed:
		message = "Report generation failed"
	}
	utils.CreatedResponse(c, message, report)
}

// handleListReports lists the org's reports, newest first, filtered by kind and status
func handleListReports(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 200 {
			utils.BadRequestResponse(c, "limit must be between 1 and 200")
			return
		}

		query := db.Where("org_id = ?", orgID)
		if v := c.Query("kind"); v != "" {
			query = query.Where("kind = ?", v)
		}
		if v := c.Query("status"); v != "" {
			query = query.Where("status = ?", v)
		}

		var reports []models.Report
		if err := query.Omit("input").Order("created_at DESC").Limit(limit).Find(&reports).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch reports")
			return
		}

		utils.OKResponse(c, "Reports retrieved successfully", reports)
	}
}

// handleGetReport returns one report including its input facts
func handleGetReport(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}
		if _, err := uuid.Parse(c.Param("id")); err != nil {
			utils.BadRequestResponse(c, "Invalid report ID")
			return
		}

		var report models.Report
		if err := db.Where("id = ? AND org_id = ?", c.Param("id"), orgID).First(&report).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Report")
			return
		}

		utils.OKResponse(c, "Report retrieved successfully", report)
	}
}

// handleReportStats returns report counts and the model connection status
func handleReportStats(worker *RetryWorker, llm *LLMClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		utils.OKResponse(c, "Report statistics retrieved successfully", gin.H{
			"reports": worker.Stats(orgID.String()),
			"model":   llm.Status(),
		})
	}
}

func loadOrg(db *gorm.DB, orgID uuid.UUID) models.Organization {
	org := models.Organization{ID: orgID, Currency: config.DefaultLocale.Currency, Locale: config.DefaultLocale.Language}
	db.Where("id = ?", orgID).First(&org)
	return org
}
