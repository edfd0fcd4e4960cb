package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

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
	logger := utils.InitLogger("reports-service")

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	producer := events.NewProducer(config.GetKafkaConfig(""))
	defer producer.Close()

	llm := NewLLMClient(config.GetLLMConfig())

	storage := config.GetStorageConfig()
	var archive Archiver
	if storage.Bucket != "" {
		s3Archive, err := NewS3Archiver(storage)
		if err != nil {
			log.Fatal("Failed to initialize report storage:", err)
		}
		archive = s3Archive
		logger.WithField("bucket", storage.Bucket).Info("Report archive enabled")
	}

	reporter := NewReporter(db, llm, archive, storage.Prefix, producer, logger)
	worker := NewRetryWorker(db, reporter, 30*time.Second, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go worker.Run(ctx)

	router := setupRouter(db, reporter, worker, llm, logger)

	port := config.Port("REPORTS_SERVICE_PORT", "8004")
	logger.Infof("Reports service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start reports service:", err)
	}
}

func setupRouter(db *gorm.DB, reporter *Reporter, worker *RetryWorker, llm *LLMClient, logger *logrus.Entry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Reports service is healthy", gin.H{"model": llm.Status()})
	})

	reports := router.Group("/reports")
	reports.Use(middleware.TrustGateway())
	{
		reports.GET("", handleListReports(db))
		reports.GET("/stats", handleReportStats(worker, llm))
		reports.GET("/:id", handleGetReport(db))
		reports.POST("/pnl", middleware.RequireWrite(), handleCreatePnL(db, reporter))
		reports.POST("/market-research", middleware.RequireWrite(), handleCreateMarketResearch(db, reporter))
		reports.POST("/reminders", middleware.RequireWrite(), handleCreateReminder(db, reporter))
	}

	return router
}
