package main

import (
	"context"
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
	"github.com/pavitra93/go-property-management/shared/rent"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// ScheduleRequest is the generator input as it arrives over HTTP
type ScheduleRequest struct {
	StartDate      string               `json:"start_date" binding:"required"`
	EndDate        string               `json:"end_date" binding:"required"`
	MonthlyRent    decimal.Decimal      `json:"monthly_rent"`
	DueDay         int                  `json:"due_day"`
	Deposit        decimal.Decimal      `json:"deposit"`
	ServiceCharges []rent.ServiceCharge `json:"service_charges"`
}

// Params converts the request, defaulting the due day to the start day
func (r ScheduleRequest) Params() (rent.ScheduleParams, error) {
	start, err := utils.ParseDate(r.StartDate)
	if err != nil {
		return rent.ScheduleParams{}, err
	}
	end, err := utils.ParseDate(r.EndDate)
	if err != nil {
		return rent.ScheduleParams{}, err
	}
	dueDay := r.DueDay
	if dueDay == 0 {
		dueDay = start.Day()
	}
	return rent.ScheduleParams{
		StartDate:      start,
		EndDate:        end,
		MonthlyRent:    r.MonthlyRent,
		DueDay:         dueDay,
		ServiceCharges: r.ServiceCharges,
		Deposit:        r.Deposit,
	}, nil
}

// CreateTenancyRequest represents the create tenancy request
type CreateTenancyRequest struct {
	ScheduleRequest
	PropertyID       string                  `json:"property_id" binding:"required,uuid"`
	TenantName       string                  `json:"tenant_name" binding:"required"`
	TenantEmail      string                  `json:"tenant_email" binding:"omitempty,email"`
	TenantPhone      string                  `json:"tenant_phone"`
	PaymentFrequency models.PaymentFrequency `json:"payment_frequency"`
	Notes            string                  `json:"notes"`
}

// UpdateTenancyRequest holds the fields that may change after creation.
// The remaining fields exist only to reject attempts to change them.
type UpdateTenancyRequest struct {
	TenantName  *string `json:"tenant_name"`
	TenantEmail *string `json:"tenant_email"`
	TenantPhone *string `json:"tenant_phone"`
	Notes       *string `json:"notes"`

	StartDate      *string          `json:"start_date"`
	EndDate        *string          `json:"end_date"`
	MonthlyRent    *decimal.Decimal `json:"monthly_rent"`
	Deposit        *decimal.Decimal `json:"deposit"`
	DueDay         *int             `json:"due_day"`
	ServiceCharges []interface{}    `json:"service_charges"`
}

func (r UpdateTenancyRequest) touchesSchedule() bool {
	return r.StartDate != nil || r.EndDate != nil || r.MonthlyRent != nil ||
		r.Deposit != nil || r.DueDay != nil || r.ServiceCharges != nil
}

// TenancyDetail is a tenancy with its schedule and current position
type TenancyDetail struct {
	Tenancy models.Tenancy `json:"tenancy"`
	Summary rent.Summary   `json:"summary"`
}

// SchedulePreview is generator output that was not stored
type SchedulePreview struct {
	Obligations []rent.Obligation `json:"obligations"`
	Total       decimal.Decimal   `json:"total"`
	RentTotal   decimal.Decimal   `json:"rent_total"`
}

func newPreview(schedule []rent.Obligation) SchedulePreview {
	return SchedulePreview{
		Obligations: schedule,
		Total:       rent.Total(schedule),
		RentTotal:   rent.TotalByKind(schedule, rent.KindRent),
	}
}

// handleCreateTenancy creates a tenancy and its full obligation schedule in
// one transaction
func handleCreateTenancy(db *gorm.DB, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req CreateTenancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		params, err := req.Params()
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		if err := params.Validate(); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		var property models.Property
		if err := db.Where("id = ? AND org_id = ?", req.PropertyID, orgID).First(&property).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Property")
			return
		}

		frequency := req.PaymentFrequency
		if frequency == "" {
			frequency = models.PaymentMonthly
		}

		tenancy := models.Tenancy{
			ID:               uuid.New(),
			OrgID:            orgID,
			PropertyID:       property.ID,
			TenantName:       strings.TrimSpace(req.TenantName),
			TenantEmail:      req.TenantEmail,
			TenantPhone:      req.TenantPhone,
			StartDate:        params.StartDate,
			EndDate:          params.EndDate,
			MonthlyRent:      params.MonthlyRent,
			Deposit:          params.Deposit,
			DueDay:           params.DueDay,
			PaymentFrequency: frequency,
			Notes:            req.Notes,
		}
		for _, sc := range params.ServiceCharges {
			tenancy.ServiceCharges = append(tenancy.ServiceCharges, models.TenancyServiceCharge{
				Name:   sc.Name,
				Amount: sc.Amount,
			})
		}

		schedule := rent.GenerateSchedule(params)
		obligations := models.NewObligations(&tenancy, schedule)

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&tenancy).Error; err != nil {
				return fmt.Errorf("failed to create tenancy: %w", err)
			}
			if len(obligations) > 0 {
				if err := tx.CreateInBatches(obligations, 100).Error; err != nil {
					return fmt.Errorf("failed to create obligations: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			logrus.WithError(err).WithField("org_id", orgID).Error("Tenancy creation rolled back")
			utils.InternalServerErrorResponse(c, "Failed to create tenancy")
			return
		}

		tenancy.Obligations = obligations
		invalidateArrears(c.Request.Context(), orgID)
		publish(pub, events.TenancyCreated, orgID, tenancy.ID.String(), c.GetString("user_id"),
			fmt.Sprintf("Tenancy for %s at %s created", tenancy.TenantName, property.Name),
			map[string]interface{}{
				"property_id": property.ID,
				"obligations": len(obligations),
				"total":       rent.Total(schedule),
			})

		utils.CreatedResponse(c, "Tenancy created successfully", tenancy)
	}
}

// handleListTenancies lists the organization's tenancies
func handleListTenancies(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Preload("ServiceCharges").Where("org_id = ?", orgID)
		if propertyID := c.Query("property_id"); propertyID != "" {
			query = query.Where("property_id = ?", propertyID)
		}
		if c.Query("active_on") != "" {
			day, err := utils.DateQuery(c, "active_on", utils.Today())
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			query = query.Where("start_date <= ? AND end_date >= ?", day, day)
		}

		var tenancies []models.Tenancy
		if err := query.Order("start_date DESC").Find(&tenancies).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenancies")
			return
		}

		utils.OKResponse(c, "Tenancies retrieved successfully", tenancies)
	}
}

// handleGetTenancy returns a tenancy, its obligations and its arrears position
func handleGetTenancy(db *gorm.DB) gin.HandlerFunc {
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

		tenancy, err := findTenancy(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Tenancy")
			return
		}

		if err := db.Where("tenancy_id = ?", tenancy.ID).Order("due_date, kind").Find(&tenancy.Obligations).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch obligations")
			return
		}

		utils.OKResponse(c, "Tenancy retrieved successfully", TenancyDetail{
			Tenancy: *tenancy,
			Summary: rent.Summarize(tenancy.ID.String(), models.Entries(tenancy.Obligations), asOf),
		})
	}
}

// handleUpdateTenancy applies administrative edits. Dates and amounts drive
// the stored schedule, so they can't change after creation.
func handleUpdateTenancy(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		tenancy, err := findTenancy(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Tenancy")
			return
		}

		var req UpdateTenancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if req.touchesSchedule() {
			utils.BadRequestResponse(c, "Dates and amounts can't be changed once a tenancy is created")
			return
		}

		if req.TenantName != nil {
			if strings.TrimSpace(*req.TenantName) == "" {
				utils.BadRequestResponse(c, "Tenant name can't be empty")
				return
			}
			tenancy.TenantName = strings.TrimSpace(*req.TenantName)
		}
		if req.TenantEmail != nil {
			tenancy.TenantEmail = *req.TenantEmail
		}
		if req.TenantPhone != nil {
			tenancy.TenantPhone = *req.TenantPhone
		}
		if req.Notes != nil {
			tenancy.Notes = *req.Notes
		}

		if err := db.Model(tenancy).Select("tenant_name", "tenant_email", "tenant_phone", "notes").Updates(tenancy).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update tenancy")
			return
		}

		utils.OKResponse(c, "Tenancy updated successfully", tenancy)
	}
}

// handleDeleteTenancy removes a tenancy with all of its obligations and
// payments in one transaction
func handleDeleteTenancy(db *gorm.DB, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		tenancy, err := findTenancy(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Tenancy")
			return
		}

		var removed int64
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("tenancy_id = ?", tenancy.ID).Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			res := tx.Where("tenancy_id = ?", tenancy.ID).Delete(&models.RevenueObligation{})
			if res.Error != nil {
				return res.Error
			}
			removed = res.RowsAffected
			if err := tx.Where("tenancy_id = ?", tenancy.ID).Delete(&models.TenancyServiceCharge{}).Error; err != nil {
				return err
			}
			return tx.Delete(tenancy).Error
		})
		if err != nil {
			logrus.WithError(err).WithField("tenancy_id", tenancy.ID).Error("Tenancy deletion rolled back")
			utils.InternalServerErrorResponse(c, "Failed to delete tenancy")
			return
		}

		invalidateArrears(c.Request.Context(), orgID)
		publish(pub, events.TenancyDeleted, orgID, tenancy.ID.String(), c.GetString("user_id"),
			fmt.Sprintf("Tenancy for %s deleted", tenancy.TenantName),
			map[string]interface{}{"obligations_removed": removed})

		utils.OKResponse(c, "Tenancy deleted successfully", gin.H{"obligations_removed": removed})
	}
}

// handlePreviewTenancySchedule regenerates a stored tenancy's schedule without
// touching the database
func handlePreviewTenancySchedule(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		tenancy, err := findTenancy(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Tenancy")
			return
		}

		utils.OKResponse(c, "Schedule generated", newPreview(rent.GenerateSchedule(tenancy.ScheduleParams())))
	}
}

// handlePreviewSchedule runs the generator on ad-hoc input
func handlePreviewSchedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		params, err := req.Params()
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		if err := params.Validate(); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		utils.OKResponse(c, "Schedule generated", newPreview(rent.GenerateSchedule(params)))
	}
}

func findTenancy(db *gorm.DB, orgID uuid.UUID, id string) (*models.Tenancy, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var tenancy models.Tenancy
	err := db.Preload("ServiceCharges").Where("id = ? AND org_id = ?", id, orgID).First(&tenancy).Error
	if err != nil {
		return nil, err
	}
	return &tenancy, nil
}

// invalidateArrears drops every cached arrears view of the organization
func invalidateArrears(ctx context.Context, orgID uuid.UUID) {
	if err := utils.CacheDeletePattern(ctx, arrearsCachePrefix(orgID)+"*"); err != nil {
		logrus.WithError(err).WithField("org_id", orgID).Warn("Failed to invalidate arrears cache")
	}
}

// publish emits an event, logging instead of failing the request
func publish(pub events.Publisher, t events.Type, orgID uuid.UUID, entityID, actor, summary string, payload interface{}) {
	ev, err := events.New(t, orgID, entityID, actor, summary, payload)
	if err == nil {
		err = pub.Publish(ev)
	}
	if err != nil {
		fields := logrus.Fields{"event_type": t, "org_id": orgID}
		if errors.Is(err, events.ErrQueueFull) {
			logrus.WithFields(fields).Warn("Event dropped")
			return
		}
		logrus.WithFields(fields).WithError(err).Error("Failed to publish event")
	}
}
