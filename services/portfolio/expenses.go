package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/finance"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// ExpenseRequest is the body of create and update expense requests.
// Every field is optional on update.
type ExpenseRequest struct {
	PropertyID   *string            `json:"property_id" binding:"omitempty,uuid"`
	ContractorID *string            `json:"contractor_id" binding:"omitempty,uuid"`
	Amount       *decimal.Decimal   `json:"amount"`
	Date         *string            `json:"date"`
	Category     *string            `json:"category"`
	Description  *string            `json:"description"`
	Frequency    *finance.Frequency `json:"frequency"`
}

func (r ExpenseRequest) apply(db *gorm.DB, orgID uuid.UUID, e *models.Expense) error {
	if r.Amount != nil {
		if !r.Amount.IsPositive() {
			return fmt.Errorf("amount must be greater than zero")
		}
		e.Amount = r.Amount.Round(2)
	}
	if r.Date != nil {
		d, err := utils.ParseDate(*r.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	if r.Category != nil {
		if strings.TrimSpace(*r.Category) == "" {
			return fmt.Errorf("category can't be empty")
		}
		e.Category = strings.ToLower(strings.TrimSpace(*r.Category))
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.Frequency != nil {
		if !r.Frequency.Valid() {
			return fmt.Errorf("frequency must be one_off, monthly, quarterly or yearly")
		}
		e.Frequency = *r.Frequency
	}
	if r.PropertyID != nil {
		id := uuid.MustParse(*r.PropertyID)
		if !existsInOrg(db, &models.Property{}, orgID, id) {
			return fmt.Errorf("property %s not found", id)
		}
		e.PropertyID = &id
	}
	if r.ContractorID != nil {
		id := uuid.MustParse(*r.ContractorID)
		if !existsInOrg(db, &models.Contractor{}, orgID, id) {
			return fmt.Errorf("contractor %s not found", id)
		}
		e.ContractorID = &id
	}
	return nil
}

// handleCreateExpense records a cost
func handleCreateExpense(db *gorm.DB, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req ExpenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if req.Amount == nil || req.Category == nil {
			utils.BadRequestResponse(c, "Amount and category are required")
			return
		}

		expense := models.Expense{
			ID:        uuid.New(),
			OrgID:     orgID,
			Date:      utils.Today(),
			Frequency: finance.FrequencyOneOff,
		}
		if err := req.apply(db, orgID, &expense); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Create(&expense).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create expense")
			return
		}

		publish(pub, events.ExpenseCreated, orgID, expense.ID.String(), c.GetString("user_id"),
			fmt.Sprintf("%s expense of %s recorded", expense.Category, expense.Amount.StringFixed(2)),
			map[string]interface{}{"category": expense.Category, "amount": expense.Amount, "frequency": expense.Frequency})

		utils.CreatedResponse(c, "Expense created successfully", expense)
	}
}

// handleListExpenses lists expenses filtered by from, to, property_id and category
func handleListExpenses(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Where("org_id = ?", orgID)
		if c.Query("from") != "" {
			from, err := utils.DateQuery(c, "from", time.Time{})
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			query = query.Where("date >= ?", from)
		}
		if c.Query("to") != "" {
			to, err := utils.DateQuery(c, "to", time.Time{})
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			query = query.Where("date <= ?", to)
		}
		if v := c.Query("property_id"); v != "" {
			query = query.Where("property_id = ?", v)
		}
		if v := c.Query("category"); v != "" {
			query = query.Where("category = ?", strings.ToLower(v))
		}

		var expenses []models.Expense
		if err := query.Order("date DESC").Find(&expenses).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch expenses")
			return
		}

		total := decimal.Zero
		for _, e := range expenses {
			total = total.Add(e.Amount)
		}

		utils.OKResponse(c, "Expenses retrieved successfully", gin.H{
			"expenses": expenses,
			"total":    total,
		})
	}
}

// handleGetExpense handles getting a specific expense
func handleGetExpense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var expense models.Expense
		if err := findInOrg(db, orgID, c.Param("id"), &expense); err != nil {
			utils.LookupErrorResponse(c, err, "Expense")
			return
		}

		utils.OKResponse(c, "Expense retrieved successfully", expense)
	}
}

// handleUpdateExpense handles updating an expense
func handleUpdateExpense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var expense models.Expense
		if err := findInOrg(db, orgID, c.Param("id"), &expense); err != nil {
			utils.LookupErrorResponse(c, err, "Expense")
			return
		}

		var req ExpenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if err := req.apply(db, orgID, &expense); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Save(&expense).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update expense")
			return
		}

		utils.OKResponse(c, "Expense updated successfully", expense)
	}
}

// handleDeleteExpense handles deleting an expense
func handleDeleteExpense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var expense models.Expense
		if err := findInOrg(db, orgID, c.Param("id"), &expense); err != nil {
			utils.LookupErrorResponse(c, err, "Expense")
			return
		}

		if err := db.Delete(&expense).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete expense")
			return
		}

		utils.OKResponse(c, "Expense deleted successfully", nil)
	}
}
