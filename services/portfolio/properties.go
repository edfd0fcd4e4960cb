package main

import (
	"errors"
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

// PropertyRequest is the body of create and update property requests.
// Pointer fields are optional on update.
type PropertyRequest struct {
	Name          *string              `json:"name"`
	Address       *string              `json:"address"`
	City          *string              `json:"city"`
	Postcode      *string              `json:"postcode"`
	Type          *models.PropertyType `json:"type" binding:"omitempty,oneof=house apartment commercial other"`
	Units         *int                 `json:"units" binding:"omitempty,min=1"`
	Bedrooms      *int                 `json:"bedrooms" binding:"omitempty,min=0"`
	PurchasePrice *decimal.Decimal     `json:"purchase_price"`
	Notes         *string              `json:"notes"`
}

func (r PropertyRequest) apply(p *models.Property) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return errors.New("property name can't be empty")
		}
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.City != nil {
		p.City = *r.City
	}
	if r.Postcode != nil {
		p.Postcode = *r.Postcode
	}
	if r.Type != nil {
		p.Type = *r.Type
	}
	if r.Units != nil {
		p.Units = *r.Units
	}
	if r.Bedrooms != nil {
		p.Bedrooms = *r.Bedrooms
	}
	if r.PurchasePrice != nil {
		if r.PurchasePrice.IsNegative() {
			return errors.New("purchase price can't be negative")
		}
		p.PurchasePrice = r.PurchasePrice
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	return nil
}

// PropertyDetail is a property with counts of the records hanging off it
type PropertyDetail struct {
	models.Property
	Tenancies       int64 `json:"tenancies"`
	OpenMaintenance int64 `json:"open_maintenance"`
}

// handleCreateProperty handles property creation
func handleCreateProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req PropertyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if req.Name == nil {
			utils.BadRequestResponse(c, "Property name is required")
			return
		}

		property := models.Property{
			ID:    uuid.New(),
			OrgID: orgID,
			Type:  models.PropertyTypeHouse,
			Units: 1,
		}
		if err := req.apply(&property); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Create(&property).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create property")
			return
		}

		utils.CreatedResponse(c, "Property created successfully", property)
	}
}

// handleListProperties lists the organization's properties, optionally by type
func handleListProperties(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Where("org_id = ?", orgID)
		if t := c.Query("type"); t != "" {
			query = query.Where("type = ?", t)
		}

		var properties []models.Property
		if err := query.Order("name").Find(&properties).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch properties")
			return
		}

		utils.OKResponse(c, "Properties retrieved successfully", properties)
	}
}

// handleGetProperty returns one property with its tenancy and open job counts
func handleGetProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var property models.Property
		if err := findInOrg(db, orgID, c.Param("id"), &property); err != nil {
			utils.LookupErrorResponse(c, err, "Property")
			return
		}

		detail := PropertyDetail{Property: property}
		db.Model(&models.Tenancy{}).Where("property_id = ?", property.ID).Count(&detail.Tenancies)
		db.Model(&models.MaintenanceRequest{}).
			Where("property_id = ? AND status IN ?", property.ID, []models.MaintenanceStatus{models.MaintenanceOpen, models.MaintenanceInProgress}).
			Count(&detail.OpenMaintenance)

		utils.OKResponse(c, "Property retrieved successfully", detail)
	}
}

// handleUpdateProperty handles updating a property
func handleUpdateProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var property models.Property
		if err := findInOrg(db, orgID, c.Param("id"), &property); err != nil {
			utils.LookupErrorResponse(c, err, "Property")
			return
		}

		var req PropertyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if err := req.apply(&property); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Save(&property).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update property")
			return
		}

		utils.OKResponse(c, "Property updated successfully", property)
	}
}

// handleDeleteProperty deletes a property that has no tenancies
func handleDeleteProperty(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var property models.Property
		if err := findInOrg(db, orgID, c.Param("id"), &property); err != nil {
			utils.LookupErrorResponse(c, err, "Property")
			return
		}

		// Tenancies own the rent schedule, so they have to go first
		var tenancyCount int64
		if err := db.Model(&models.Tenancy{}).Where("property_id = ?", property.ID).Count(&tenancyCount).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to check property tenancies")
			return
		}
		if tenancyCount > 0 {
			utils.ConflictResponse(c, "Cannot delete property with existing tenancies")
			return
		}

		if err := db.Delete(&property).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete property")
			return
		}

		utils.OKResponse(c, "Property deleted successfully", nil)
	}
}

// ContractorRequest is the body of create and update contractor requests
type ContractorRequest struct {
	Name  *string `json:"name"`
	Trade *string `json:"trade"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

func (r ContractorRequest) apply(ct *models.Contractor) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return errors.New("contractor name can't be empty")
		}
		ct.Name = strings.TrimSpace(*r.Name)
	}
	if r.Trade != nil {
		ct.Trade = *r.Trade
	}
	if r.Email != nil {
		ct.Email = *r.Email
	}
	if r.Phone != nil {
		ct.Phone = *r.Phone
	}
	if r.Notes != nil {
		ct.Notes = *r.Notes
	}
	return nil
}

// handleCreateContractor handles contractor creation
func handleCreateContractor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req ContractorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if req.Name == nil {
			utils.BadRequestResponse(c, "Contractor name is required")
			return
		}

		contractor := models.Contractor{ID: uuid.New(), OrgID: orgID}
		if err := req.apply(&contractor); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Create(&contractor).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create contractor")
			return
		}

		utils.CreatedResponse(c, "Contractor created successfully", contractor)
	}
}

// handleListContractors lists contractors, optionally by trade
func handleListContractors(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Where("org_id = ?", orgID)
		if trade := c.Query("trade"); trade != "" {
			query = query.Where("trade = ?", trade)
		}

		var contractors []models.Contractor
		if err := query.Order("name").Find(&contractors).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch contractors")
			return
		}

		utils.OKResponse(c, "Contractors retrieved successfully", contractors)
	}
}

// handleGetContractor handles getting a specific contractor
func handleGetContractor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var contractor models.Contractor
		if err := findInOrg(db, orgID, c.Param("id"), &contractor); err != nil {
			utils.LookupErrorResponse(c, err, "Contractor")
			return
		}

		utils.OKResponse(c, "Contractor retrieved successfully", contractor)
	}
}

// handleUpdateContractor handles updating a contractor
func handleUpdateContractor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var contractor models.Contractor
		if err := findInOrg(db, orgID, c.Param("id"), &contractor); err != nil {
			utils.LookupErrorResponse(c, err, "Contractor")
			return
		}

		var req ContractorRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if err := req.apply(&contractor); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if err := db.Save(&contractor).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update contractor")
			return
		}

		utils.OKResponse(c, "Contractor updated successfully", contractor)
	}
}

// handleDeleteContractor deletes a contractor. Past jobs keep their reference.
func handleDeleteContractor(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var contractor models.Contractor
		if err := findInOrg(db, orgID, c.Param("id"), &contractor); err != nil {
			utils.LookupErrorResponse(c, err, "Contractor")
			return
		}

		var active int64
		db.Model(&models.MaintenanceRequest{}).
			Where("contractor_id = ? AND status = ?", contractor.ID, models.MaintenanceInProgress).
			Count(&active)
		if active > 0 {
			utils.ConflictResponse(c, "Contractor has maintenance in progress")
			return
		}

		if err := db.Delete(&contractor).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete contractor")
			return
		}

		utils.OKResponse(c, "Contractor deleted successfully", nil)
	}
}

// findInOrg loads the record with id into dest, scoped to the organization
func findInOrg(db *gorm.DB, orgID uuid.UUID, id string, dest interface{}) error {
	if _, err := uuid.Parse(id); err != nil {
		return gorm.ErrRecordNotFound
	}
	return db.Where("id = ? AND org_id = ?", id, orgID).First(dest).Error
}

// existsInOrg reports whether a row of model with id belongs to the organization
func existsInOrg(db *gorm.DB, model interface{}, orgID uuid.UUID, id uuid.UUID) bool {
	var count int64
	db.Model(model).Where("id = ? AND org_id = ?", id, orgID).Count(&count)
	return count > 0
}

// publish emits an event, logging instead of failing the request
func publish(pub events.Publisher, t events.Type, orgID uuid.UUID, entityID, actor, summary string, payload interface{}) {
	ev, err := events.New(t, orgID, entityID, actor, summary, payload)
	if err == nil {
		err = pub.Publish(ev)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"event_type": t, "org_id": orgID}).WithError(err).Warn("Failed to publish event")
	}
}
