package handlers

import (
	"net/http"

	"gridsettle/internal/models"
	dbconfig "gridsettle/pkg/config"

	"github.com/gin-gonic/gin"
)

// GetDailySummaryHandler returns the per-model daily summary rows for a date.
func GetDailySummaryHandler(c *gin.Context) {
	date := c.Param("date")

	var rows []models.DailySummary
	if err := dbconfig.DB.Where("summary_date = ?", date).Order("miner_model").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No summary for date"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetMonthlySummaryHandler returns the per-model monthly summary rows for a
// "YYYY-MM" key.
func GetMonthlySummaryHandler(c *gin.Context) {
	yearMonth := c.Param("yearMonth")

	var rows []models.MonthlySummary
	if err := dbconfig.DB.Where("year_month = ?", yearMonth).Order("miner_model").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No summary for month"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetYearlySummaryHandler returns the per-model yearly summary rows for a
// "YYYY" key.
func GetYearlySummaryHandler(c *gin.Context) {
	year := c.Param("year")

	var rows []models.YearlySummary
	if err := dbconfig.DB.Where("year = ?", year).Order("miner_model").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No summary for year"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
