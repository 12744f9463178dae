package routes

import (
	"gridsettle/internal/handlers"
	"gridsettle/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReconcileRoutes(r *gin.Engine) {
	// Trigger endpoints are rate limited: a reconcile run is expensive and
	// the per-date lock already rejects duplicates.
	triggers := r.Group("/reconcile")
	triggers.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             2,
	}))
	{
		triggers.POST("/run", handlers.RunReconcileHandler)
		triggers.POST("/queue/purge", handlers.PurgeReconcileQueueHandler)
	}

	runs := r.Group("/reconcile")
	{
		runs.GET("/runs", handlers.ListReconcileRunsHandler)
		runs.GET("/runs/:date", handlers.GetReconcileRunsByDateHandler)
		runs.GET("/progress", handlers.ReconcileProgressHandler)
	}

	r.POST("/audit", handlers.AuditRangeHandler)
}
