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
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	logger := utils.InitLogger("portfolio-service")

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	producer := events.NewProducer(config.GetKafkaConfig(""))
	defer producer.Close()

	router := setupRouter(db, producer, logger)

	port := config.Port("PORTFOLIO_SERVICE_PORT", "8002")
	logger.Infof("Portfolio service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start portfolio service:", err)
	}
}

func setupRouter(db *gorm.DB, pub events.Publisher, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Portfolio service is healthy", nil)
	})

	api := router.Group("/")
	api.Use(middleware.TrustGateway())

	properties := api.Group("/properties")
	{
		properties.GET("", handleListProperties(db))
		properties.GET("/:id", handleGetProperty(db))
		properties.POST("", middleware.RequireWrite(), handleCreateProperty(db))
		properties.PUT("/:id", middleware.RequireWrite(), handleUpdateProperty(db))
		properties.DELETE("/:id", middleware.RequireWrite(), handleDeleteProperty(db))
	}

	contractors := api.Group("/contractors")
	{
		contractors.GET("", handleListContractors(db))
		contractors.GET("/:id", handleGetContractor(db))
		contractors.POST("", middleware.RequireWrite(), handleCreateContractor(db))
		contractors.PUT("/:id", middleware.RequireWrite(), handleUpdateContractor(db))
		contractors.DELETE("/:id", middleware.RequireWrite(), handleDeleteContractor(db))
	}

	maintenance := api.Group("/maintenance")
	{
		maintenance.GET("", handleListMaintenance(db))
		maintenance.GET("/:id", handleGetMaintenance(db))
		maintenance.POST("", middleware.RequireWrite(), handleCreateMaintenance(db))
		maintenance.PUT("/:id", middleware.RequireWrite(), handleUpdateMaintenance(db))
		maintenance.PATCH("/:id/status", middleware.RequireWrite(), handleMaintenanceStatus(db, pub))
		maintenance.DELETE("/:id", middleware.RequireWrite(), handleDeleteMaintenance(db))
	}

	expenses := api.Group("/expenses")
	{
		expenses.GET("", handleListExpenses(db))
		expenses.GET("/:id", handleGetExpense(db))
		expenses.POST("", middleware.RequireWrite(), handleCreateExpense(db, pub))
		expenses.PUT("/:id", middleware.RequireWrite(), handleUpdateExpense(db))
		expenses.DELETE("/:id", middleware.RequireWrite(), handleDeleteExpense(db))
	}

	organization := api.Group("/organization")
	{
		organization.GET("", handleGetOrganization(db))
		organization.PUT("", middleware.RequireRole(models.RoleOwner), handleUpdateOrganization(db))
		organization.GET("/members", handleListMembers(db))
		organization.PUT("/members/:user_id", middleware.RequireRole(models.RoleOwner), handleUpdateMember(db))
		organization.DELETE("/members/:user_id", middleware.RequireRole(models.RoleOwner), handleRemoveMember(db))
	}

	return router
}
