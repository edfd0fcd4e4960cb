package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}
	logger := utils.InitLogger("api-gateway")

	// Initialize Redis for caching
	if err := utils.InitRedis(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, caching disabled")
	}
	defer utils.CloseRedis()

	// Users without org claims are looked up in the database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	authMiddleware, err := middleware.NewAuthMiddleware(db, config.GetAuthConfig())
	if err != nil {
		log.Fatal("Failed to initialize auth middleware:", err)
	}

	serviceClients := &ServiceClients{
		Portfolio: NewServiceClient("portfolio", serviceURL("PORTFOLIO_SERVICE_URL", "http://localhost:8002"), 30*time.Second),
		Tenancy:   NewServiceClient("tenancy", serviceURL("TENANCY_SERVICE_URL", "http://localhost:8003"), 30*time.Second),
		// Report generation waits on the model
		Reports:  NewServiceClient("reports", serviceURL("REPORTS_SERVICE_URL", "http://localhost:8004"), 2*time.Minute),
		Activity: NewServiceClient("activity", serviceURL("ACTIVITY_SERVICE_URL", "http://localhost:8005"), 30*time.Second),
	}

	router := setupRouter(serviceClients, authMiddleware.RequireAuth(), logger)

	port := config.Port("API_GATEWAY_PORT", "8080")
	logger.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}

func setupRouter(clients *ServiceClients, requireAuth gin.HandlerFunc, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})

	router.GET("/health/services", func(c *gin.Context) {
		status, healthy := clients.GetServiceStatus(c.Request.Context())
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, utils.APIResponse{
				Success: false,
				Message: "One or more services are unhealthy",
				Data:    status,
			})
			return
		}
		utils.OKResponse(c, "All services are healthy", status)
	})

	api := router.Group("/")
	api.Use(requireAuth)
	api.GET("/me", func(c *gin.Context) {
		info, err := middleware.GetUserInfoFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Organization not found in context")
			return
		}
		utils.OKResponse(c, "Caller identity", info)
	})
	routes := clients.routePrefixes()
	for _, prefix := range sortedPrefixes(routes) {
		sc := routes[prefix]
		api.Any(prefix, sc.ProxyRequest)
		api.Any(prefix+"/*path", sc.ProxyRequest)
	}

	return router
}

func serviceURL(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
