package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// CategoryMaintenance is the expense category used for completed jobs
const CategoryMaintenance = "maintenance"

// CreateMaintenanceRequest represents a new repair job
type CreateMaintenanceRequest struct {
	PropertyID   string                     `json:"property_id" binding:"required,uuid"`
	ContractorID *string                    `json:"contractor_id" binding:"omitempty,uuid"`
	Title        string                     `json:"title" binding:"required"`
	Description  string                     `json:"description"`
	Priority     models.MaintenancePriority `json:"priority"`
}

// UpdateMaintenanceRequest edits the descriptive fields of a job
type UpdateMaintenanceRequest struct {
	ContractorID *string                     `json:"contractor_id" binding:"omitempty,uuid"`
	Title        *string                     `json:"title"`
	Description  *string                     `json:"description"`
	Priority     *models.MaintenancePriority `json:"priority"`
}

// StatusRequest moves a job through its lifecycle. Cost is only used when
// completing.
type StatusRequest struct {
	Status models.MaintenanceStatus `json:"status" binding:"required"`
	Cost   *decimal.Decimal         `json:"cost"`
}

// handleCreateMaintenance handles raising a maintenance request
func handleCreateMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req CreateMaintenanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		priority := req.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		if !priority.Valid() {
			utils.BadRequestResponse(c, "Priority must be low, medium, high or urgent")
			return
		}

		propertyID := uuid.MustParse(req.PropertyID)
		if !existsInOrg(db, &models.Property{}, orgID, propertyID) {
			utils.NotFoundResponse(c, "Property not found")
			return
		}

		job := models.MaintenanceRequest{
			ID:          uuid.New(),
			OrgID:       orgID,
			PropertyID:  propertyID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Priority:    priority,
			Status:      models.MaintenanceOpen,
		}
		if req.ContractorID != nil {
			contractorID := uuid.MustParse(*req.ContractorID)
			if !existsInOrg(db, &models.Contractor{}, orgID, contractorID) {
				utils.NotFoundResponse(c, "Contractor not found")
				return
			}
			job.ContractorID = &contractorID
		}

		if err := db.Create(&job).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create maintenance request")
			return
		}

		utils.CreatedResponse(c, "Maintenance request created successfully", job)
	}
}

// handleListMaintenance lists jobs with optional status, priority and
// property filters
func handleListMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Where("org_id = ?", orgID)
		if v := c.Query("status"); v != "" {
			query = query.Where("status = ?", v)
		}
		if v := c.Query("priority"); v != "" {
			query = query.Where("priority = ?", v)
		}
		if v := c.Query("property_id"); v != "" {
			query = query.Where("property_id = ?", v)
		}

		var jobs []models.MaintenanceRequest
		if err := query.Order("reported_at DESC").Find(&jobs).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch maintenance requests")
			return
		}

		utils.OKResponse(c, "Maintenance requests retrieved successfully", jobs)
	}
}

// handleGetMaintenance returns a job with its property and contractor
func handleGetMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var job models.MaintenanceRequest
		if err := findInOrg(db.Preload("Property").Preload("Contractor"), orgID, c.Param("id"), &job); err != nil {
			utils.LookupErrorResponse(c, err, "Maintenance request")
			return
		}

		utils.OKResponse(c, "Maintenance request retrieved successfully", job)
	}
}

// handleUpdateMaintenance edits a job that is not yet closed
func handleUpdateMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var job models.MaintenanceRequest
		if err := findInOrg(db, orgID, c.Param("id"), &job); err != nil {
			utils.LookupErrorResponse(c, err, "Maintenance request")
			return
		}
		if job.Status == models.MaintenanceCompleted || job.Status == models.MaintenanceCancelled {
			utils.ConflictResponse(c, "Closed maintenance requests can't be edited")
			return
		}

		var req UpdateMaintenanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Title != nil {
			if strings.TrimSpace(*req.Title) == "" {
				utils.BadRequestResponse(c, "Title can't be empty")
				return
			}
			job.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			job.Description = *req.Description
		}
		if req.Priority != nil {
			if !req.Priority.Valid() {
				utils.BadRequestResponse(c, "Priority must be low, medium, high or urgent")
				return
			}
			job.Priority = *req.Priority
		}
		if req.ContractorID != nil {
			contractorID := uuid.MustParse(*req.ContractorID)
			if !existsInOrg(db, &models.Contractor{}, orgID, contractorID) {
				utils.NotFoundResponse(c, "Contractor not found")
				return
			}
			job.ContractorID = &contractorID
		}

		if err := db.Save(&job).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update maintenance request")
			return
		}

		utils.OKResponse(c, "Maintenance request updated successfully", job)
	}
}

// handleMaintenanceStatus applies a lifecycle transition. Completing a job
// with a cost books a maintenance expense against the property.
func handleMaintenanceStatus(db *gorm.DB, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if req.Cost != nil && req.Cost.IsNegative() {
			utils.BadRequestResponse(c, "Cost can't be negative")
			return
		}

		var job models.MaintenanceRequest
		if err := findInOrg(db, orgID, c.Param("id"), &job); err != nil {
			utils.LookupErrorResponse(c, err, "Maintenance request")
			return
		}

		previous := job.Status
		if err := job.Transition(req.Status); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				utils.ConflictResponse(c, err.Error())
				return
			}
			utils.BadRequestResponse(c, err.Error())
			return
		}

		var expense *models.Expense
		if job.Status == models.MaintenanceCompleted && req.Cost != nil && req.Cost.IsPositive() {
			job.Cost = req.Cost
			propertyID := job.PropertyID
			expense = &models.Expense{
				ID:           uuid.New(),
				OrgID:        orgID,
				PropertyID:   &propertyID,
				ContractorID: job.ContractorID,
				Amount:       *req.Cost,
				Date:         utils.Today(),
				Category:     CategoryMaintenance,
				Description:  job.Title,
			}
			job.ExpenseID = &expense.ID
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if expense != nil {
				if err := tx.Create(expense).Error; err != nil {
					return fmt.Errorf("failed to create expense: %w", err)
				}
			}
			return tx.Save(&job).Error
		})
		if err != nil {
			logrus.WithError(err).WithField("maintenance_id", job.ID).Error("Status change rolled back")
			utils.InternalServerErrorResponse(c, "Failed to update maintenance status")
			return
		}

		actor := c.GetString("user_id")
		publish(pub, events.MaintenanceStatusChanged, orgID, job.ID.String(), actor,
			fmt.Sprintf("%s moved from %s to %s", job.Title, previous, job.Status),
			map[string]interface{}{"from": previous, "to": job.Status, "property_id": job.PropertyID})
		if expense != nil {
			publish(pub, events.ExpenseCreated, orgID, expense.ID.String(), actor,
				fmt.Sprintf("Maintenance expense of %s booked", expense.Amount.StringFixed(2)),
				map[string]interface{}{"category": expense.Category, "amount": expense.Amount})
		}

		utils.OKResponse(c, "Maintenance status updated successfully", job)
	}
}

// handleDeleteMaintenance deletes a job. A booked expense stays.
func handleDeleteMaintenance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var job models.MaintenanceRequest
		if err := findInOrg(db, orgID, c.Param("id"), &job); err != nil {
			utils.LookupErrorResponse(c, err, "Maintenance request")
			return
		}

		if err := db.Delete(&job).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete maintenance request")
			return
		}

		utils.OKResponse(c, "Maintenance request deleted successfully", nil)
	}
}
