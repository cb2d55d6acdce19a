package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacepoints-ledger/internal/api_gateway/handler"
	"github.com/spacepoints-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	rewardHandler *handler.RewardHandler,
	burnHandler *handler.BurnHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Metrics())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Point balance operations
		points := v1.Group("/points")
		{
			points.POST("/issue", ledgerHandler.Issue)
			points.POST("/collect", ledgerHandler.Collect)
			points.POST("/transfer", ledgerHandler.Transfer)
			points.GET("/balance/:user_id", ledgerHandler.GetBalance)
			points.GET("/history/:user_id", ledgerHandler.GetHistory)
		}

		// Reward distribution operations
		rewards := v1.Group("/rewards")
		{
			rewards.POST("", rewardHandler.Create)
			rewards.GET("/statistics", rewardHandler.Statistics)
			rewards.GET("/user/:user_id", rewardHandler.GetByUser)
			rewards.GET("/:id", rewardHandler.GetByID)
			rewards.POST("/:id/approve", rewardHandler.Approve)
			rewards.POST("/:id/process", rewardHandler.Process)
			rewards.POST("/:id/cancel", rewardHandler.Cancel)
		}

		// Supply burn decisions
		burns := v1.Group("/burns")
		{
			burns.POST("", burnHandler.Create)
			burns.GET("/statistics", burnHandler.Statistics)
			burns.GET("/high-value", burnHandler.HighValue)
			burns.GET("/space/:space_id", burnHandler.GetBySpace)
			burns.GET("/:id", burnHandler.GetByID)
			burns.POST("/:id/approve", burnHandler.Approve)
			burns.POST("/:id/reject", burnHandler.Reject)
			burns.POST("/:id/execute", burnHandler.StartExecution)
			burns.POST("/:id/complete", burnHandler.CompleteExecution)
		}

		// Dual-ledger reconciliation
		reconciliation := v1.Group("/reconciliation")
		{
			reconciliation.GET("/check/:user_id", reconciliationHandler.CheckConsistency)
			reconciliation.POST("/repair/:user_id", reconciliationHandler.Repair)
			reconciliation.POST("/replay-transfer", reconciliationHandler.ReplayLegacyTransfer)
			reconciliation.GET("/summary", reconciliationHandler.SystemSyncSummary)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
