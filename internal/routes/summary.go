package routes

import (
	"gridsettle/internal/handlers"

	"github.com/gin-gonic/gin"
)

func SetupSummaryRoutes(r *gin.Engine) {
	summary := r.Group("/summary")
	{
		summary.GET("/daily/:date", handlers.GetDailySummaryHandler)
		summary.GET("/monthly/:yearMonth", handlers.GetMonthlySummaryHandler)
		summary.GET("/yearly/:year", handlers.GetYearlySummaryHandler)
	}
}
