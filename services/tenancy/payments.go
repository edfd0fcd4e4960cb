package main

import (
	"fmt"
	"time"

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

// RecordPaymentRequest represents a payment received against one obligation
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    string          `json:"paid_at"`
	Method    string          `json:"method" binding:"omitempty,oneof=bank_transfer card cash cheque direct_debit other"`
	Reference string          `json:"reference"`
}

// PaymentResult is the stored payment and the obligation after it
type PaymentResult struct {
	Payment    models.Payment           `json:"payment"`
	Obligation models.RevenueObligation `json:"obligation"`
}

// handleRecordPayment appends a payment and adds it to the obligation's paid
// amount. Paying more than is due is accepted; the surplus shows as credit.
func handleRecordPayment(db *gorm.DB, pub events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		var req RecordPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
		if !req.Amount.IsPositive() {
			utils.BadRequestResponse(c, "Payment amount must be greater than zero")
			return
		}
		if !req.Amount.Equal(req.Amount.Round(2)) {
			utils.BadRequestResponse(c, "Payment amount can't have more than two decimal places")
			return
		}

		paidAt := time.Now().UTC()
		if req.PaidAt != "" {
			day, err := utils.ParseDate(req.PaidAt)
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			paidAt = day
		}

		obligation, err := findObligation(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Obligation")
			return
		}

		payment := models.Payment{
			ID:           uuid.New(),
			OrgID:        orgID,
			ObligationID: obligation.ID,
			TenancyID:    obligation.TenancyID,
			Kind:         obligation.Kind,
			Amount:       req.Amount,
			PaidAt:       paidAt,
			Method:       req.Method,
			Reference:    req.Reference,
			RecordedBy:   c.GetString("user_id"),
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("failed to create payment: %w", err)
			}
			// Increment in SQL so concurrent payments can't overwrite each other
			res := tx.Model(&models.RevenueObligation{}).
				Where("id = ?", obligation.ID).
				Updates(map[string]interface{}{
					"amount_paid":     gorm.Expr("amount_paid + ?", req.Amount),
					"last_payment_at": paidAt,
				})
			if res.Error != nil {
				return fmt.Errorf("failed to update obligation: %w", res.Error)
			}
			return tx.First(obligation, "id = ?", obligation.ID).Error
		})
		if err != nil {
			logrus.WithError(err).WithField("obligation_id", obligation.ID).Error("Payment rolled back")
			utils.InternalServerErrorResponse(c, "Failed to record payment")
			return
		}

		invalidateArrears(c.Request.Context(), orgID)
		publish(pub, events.PaymentRecorded, orgID, obligation.ID.String(), payment.RecordedBy,
			fmt.Sprintf("Payment of %s recorded against %s due %s",
				payment.Amount.StringFixed(2), obligation.Name, obligation.DueDate.Format(utils.DateLayout)),
			map[string]interface{}{
				"payment_id": payment.ID,
				"tenancy_id": obligation.TenancyID,
				"amount":     payment.Amount,
			})

		utils.CreatedResponse(c, "Payment recorded successfully", PaymentResult{
			Payment:    payment,
			Obligation: *obligation,
		})
	}
}

// handleListPayments returns the payment history of one obligation
func handleListPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		obligation, err := findObligation(db, orgID, c.Param("id"))
		if err != nil {
			utils.LookupErrorResponse(c, err, "Obligation")
			return
		}

		var payments []models.Payment
		if err := db.Where("obligation_id = ?", obligation.ID).Order("paid_at, created_at").Find(&payments).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch payments")
			return
		}

		utils.OKResponse(c, "Payments retrieved successfully", payments)
	}
}

// handleListObligations lists obligations with optional filters:
// tenancy_id, property_id, kind, from, to (due date range) and unpaid=true
func handleListObligations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		query := db.Where("org_id = ?", orgID)
		if v := c.Query("tenancy_id"); v != "" {
			query = query.Where("tenancy_id = ?", v)
		}
		if v := c.Query("property_id"); v != "" {
			query = query.Where("property_id = ?", v)
		}
		if v := c.Query("kind"); v != "" {
			switch rent.Kind(v) {
			case rent.KindRent, rent.KindDeposit, rent.KindServiceCharge:
				query = query.Where("kind = ?", v)
			default:
				utils.BadRequestResponse(c, "Unknown obligation kind")
				return
			}
		}
		if c.Query("from") != "" {
			from, err := utils.DateQuery(c, "from", time.Time{})
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			query = query.Where("due_date >= ?", from)
		}
		if c.Query("to") != "" {
			to, err := utils.DateQuery(c, "to", time.Time{})
			if err != nil {
				utils.BadRequestResponse(c, err.Error())
				return
			}
			query = query.Where("due_date <= ?", to)
		}
		if c.Query("unpaid") == "true" {
			query = query.Where("amount_paid < amount_due")
		}

		var obligations []models.RevenueObligation
		if err := query.Order("due_date, kind").Find(&obligations).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch obligations")
			return
		}

		utils.OKResponse(c, "Obligations retrieved successfully", obligations)
	}
}

func findObligation(db *gorm.DB, orgID uuid.UUID, id string) (*models.RevenueObligation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var obligation models.RevenueObligation
	if err := db.Where("id = ? AND org_id = ?", id, orgID).First(&obligation).Error; err != nil {
		return nil, err
	}
	return &obligation, nil
}
