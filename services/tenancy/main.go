package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	logger := utils.InitLogger("tenancy-service")

	// Arrears views are cached; the service still works without Redis
	if err := utils.InitRedis(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, arrears cache disabled")
	}
	defer utils.CloseRedis()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	producer := events.NewProducer(config.GetKafkaConfig(""))
	defer producer.Close()

	router := setupRouter(db, producer, logger)

	port := config.Port("TENANCY_SERVICE_PORT", "8003")
	logger.Infof("Tenancy service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start tenancy service:", err)
	}
}

func setupRouter(db *gorm.DB, pub events.Publisher, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Tenancy service is healthy", nil)
	})

	api := router.Group("/")
	api.Use(middleware.TrustGateway())
	{
		tenancies := api.Group("/tenancies")
		tenancies.GET("", handleListTenancies(db))
		tenancies.GET("/:id", handleGetTenancy(db))
		tenancies.GET("/:id/schedule/preview", handlePreviewTenancySchedule(db))
		tenancies.POST("", middleware.RequireWrite(), handleCreateTenancy(db, pub))
		tenancies.PUT("/:id", middleware.RequireWrite(), handleUpdateTenancy(db))
		tenancies.DELETE("/:id", middleware.RequireWrite(), handleDeleteTenancy(db, pub))

		api.POST("/schedule/preview", handlePreviewSchedule())

		obligations := api.Group("/obligations")
		obligations.GET("", handleListObligations(db))
		obligations.GET("/:id/payments", handleListPayments(db))
		obligations.POST("/:id/payments", middleware.RequireWrite(), handleRecordPayment(db, pub))

		api.GET("/arrears", handleGetArrears(db))
		api.GET("/arrears/aging", handleGetAging(db))
		api.GET("/dashboard", handleGetDashboard(db))
	}

	return router
}
