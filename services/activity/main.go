package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	logger := utils.InitLogger("activity-service")

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	consumer := NewConsumer(config.GetKafkaConfig("activity-service"), db, logger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go consumer.Run(ctx)

	router := setupRouter(db, logger)

	port := config.Port("ACTIVITY_SERVICE_PORT", "8005")
	logger.Infof("Activity service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start activity service:", err)
	}
}

func setupRouter(db *gorm.DB, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Activity service is healthy", nil)
	})

	router.GET("/activity", middleware.TrustGateway(), handleListActivity(db))

	return router
}

// handleListActivity returns the org's feed, newest first
func handleListActivity(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := middleware.OrgID(c)
		if !ok {
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 500 {
			utils.BadRequestResponse(c, "limit must be between 1 and 500")
			return
		}

		query := db.Where("org_id = ?", orgID)
		if v := c.Query("type"); v != "" {
			query = query.Where("event_type = ?", v)
		}
		if v := c.Query("entity_id"); v != "" {
			query = query.Where("entity_id = ?", v)
		}

		var feed []models.Activity
		if err := query.Order("occurred_at DESC").Limit(limit).Find(&feed).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch activity")
			return
		}

		utils.OKResponse(c, "Activity retrieved successfully", feed)
	}
}
