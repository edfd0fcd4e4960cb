package main

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// UpdateOrganizationRequest represents the update organization request
type UpdateOrganizationRequest struct {
	Name     *string `json:"name"`
	Currency *string `json:"currency"`
	Locale   *string `json:"locale"`
}

// UpdateMemberRequest changes a member's role
type UpdateMemberRequest struct {
	Role models.UserRole `json:"role" binding:"required,oneof=owner manager viewer"`
}

var errLastOwner = errors.New("an organization must keep at least one owner")

// handleGetOrganization returns the caller's organization
func handleGetOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var org models.Organization
		if err := db.Where("id = ?", orgID).First(&org).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Organization")
			return
		}

		utils.OKResponse(c, "Organization retrieved successfully", org)
	}
}

// handleUpdateOrganization changes the name and the money formatting settings
func handleUpdateOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var org models.Organization
		if err := db.Where("id = ?", orgID).First(&org).Error; err != nil {
			utils.LookupErrorResponse(c, err, "Organization")
			return
		}

		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				utils.BadRequestResponse(c, "Name can't be empty")
				return
			}
			org.Name = strings.TrimSpace(*req.Name)
		}

		localeChanged := req.Currency != nil || req.Locale != nil
		if localeChanged {
			currency, lang := org.Currency, org.Locale
			if req.Currency != nil {
				currency = *req.Currency
			}
			if req.Locale != nil {
				lang = *req.Locale
			}
			locale, err := config.ParseLocale(currency, lang)
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			org.Currency, org.Locale = locale.Currency, locale.Language
		}

		if err := db.Save(&org).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update organization")
			return
		}

		// Cached arrears views carry formatted amounts
		if localeChanged {
			if err := utils.CacheDeletePattern(c.Request.Context(), "arrears:"+orgID.String()+":*"); err != nil {
				logrus.WithError(err).WithField("org_id", orgID).Warn("Failed to invalidate arrears cache")
			}
		}

		utils.OKResponse(c, "Organization updated successfully", org)
	}
}

// handleListMembers lists the organization's users
func handleListMembers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var users []models.User
		if err := db.Where("org_id = ?", orgID).Order("created_at").Find(&users).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch members")
			return
		}

		utils.OKResponse(c, "Members retrieved successfully", users)
	}
}

// handleUpdateMember changes a member's role. Owners only.
func handleUpdateMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req UpdateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Role must be owner, manager or viewer")
			return
		}

		var user models.User
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("cognito_id = ? AND org_id = ?", c.Param("user_id"), orgID).First(&user).Error; err != nil {
				return err
			}
			if user.Role == models.RoleOwner && req.Role != models.RoleOwner {
				if err := ensureAnotherOwner(tx, user); err != nil {
					return err
				}
			}
			return tx.Model(&user).Update("role", req.Role).Error
		})
		if err != nil {
			memberErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Member role updated", user)
	}
}

// handleRemoveMember removes a user from the organization. Owners only.
func handleRemoveMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}
		if c.Param("user_id") == c.GetString("user_id") {
			utils.BadRequestResponse(c, "You can't remove yourself")
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.Where("cognito_id = ? AND org_id = ?", c.Param("user_id"), orgID).First(&user).Error; err != nil {
				return err
			}
			if user.Role == models.RoleOwner {
				if err := ensureAnotherOwner(tx, user); err != nil {
					return err
				}
			}
			// The identity provider account is left in place
			return tx.Delete(&user).Error
		})
		if err != nil {
			memberErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Member removed from organization", nil)
	}
}

func ensureAnotherOwner(tx *gorm.DB, user models.User) error {
	var owners int64
	if err := tx.Model(&models.User{}).
		Where("org_id = ? AND role = ? AND cognito_id <> ?", user.OrgID, models.RoleOwner, user.CognitoID).
		Count(&owners).Error; err != nil {
		return err
	}
	if owners == 0 {
		return errLastOwner
	}
	return nil
}

func memberErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.NotFoundResponse(c, "Member not found")
	case errors.Is(err, errLastOwner):
		utils.ConflictResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c, "Failed to update member")
	}
}
