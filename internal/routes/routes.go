package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/primabonus/backend/internal/config"
	"github.com/primabonus/backend/internal/handlers"
	"github.com/primabonus/backend/internal/jobs"
	"github.com/primabonus/backend/internal/middleware"
	"github.com/primabonus/backend/internal/services/approval"
	"github.com/primabonus/backend/internal/services/export"
	"github.com/primabonus/backend/internal/services/report"
	"github.com/primabonus/backend/internal/services/reward"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, uploadJob *jobs.UploadJob, goalJob *jobs.GoalEvaluationJob) {
	// 60 requests per second per IP, 10 auth attempts per minute
	rateLimiter := middleware.NewRateLimiter(60, 10, 20, 5)
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	authHandler := handlers.NewAuthHandler(db)
	accountHandler := handlers.NewAccountHandler(db)
	rewardHandler := handlers.NewRewardHandler(db)
	uploadHandler := handlers.NewUploadHandler(db, uploadJob)
	goalHandler := handlers.NewGoalHandler(db, goalJob)

	rewardSvc := reward.NewRewardService(db)
	approvalSvc := approval.NewApprovalService(db, cfg.Program.ApprovalLagMonths)
	exportSvc := export.NewExportService(db, cfg.Program.SMSPhonePrefix)
	reportSvc := report.NewReportService(db)
	managerHandler := handlers.NewManagerHandler(rewardSvc, approvalSvc, exportSvc, reportSvc)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Client account routes
	accountGroup := router.Group("/api/account")
	accountGroup.Use(middleware.AuthMiddleware())
	{
		accountGroup.GET("/balance", accountHandler.Balance)
		accountGroup.GET("/transactions", accountHandler.Transactions)
		accountGroup.GET("/contract", accountHandler.Contract)
		accountGroup.GET("/rewards", accountHandler.Rewards)
	}

	// Reward redemption routes
	requestGroup := router.Group("/api/requests")
	requestGroup.Use(middleware.AuthMiddleware())
	{
		requestGroup.GET("/draft", rewardHandler.GetDraft)
		requestGroup.PUT("/draft", rewardHandler.SaveDraft)
		requestGroup.POST("/draft/submit", rewardHandler.Submit)
		requestGroup.GET("/", rewardHandler.MyRequests)
	}

	// Manager console routes
	managerGroup := router.Group("/api/manager")
	managerGroup.Use(middleware.AuthMiddleware(), middleware.ManagerMiddleware())
	{
		managerGroup.GET("/dashboard", managerHandler.Dashboard)
		managerGroup.POST("/approve", managerHandler.Approve)

		managerGroup.GET("/requests", managerHandler.Requests)
		managerGroup.PUT("/requests/:id", managerHandler.UpdateRequest)
		managerGroup.GET("/requests/:id/export", managerHandler.TelemarketingExport)

		managerGroup.POST("/sms-export", managerHandler.SMSExport)
		managerGroup.GET("/clients/:id/turnover", managerHandler.ClientTurnover)

		managerGroup.POST("/uploads", uploadHandler.Upload)
		managerGroup.GET("/uploads", uploadHandler.ListUploads)
		managerGroup.GET("/uploads/:id", uploadHandler.GetUpload)

		managerGroup.POST("/goals/evaluate", goalHandler.TriggerSweep)
		managerGroup.GET("/goals/:id/evaluations", goalHandler.Evaluations)
	}
}
