package handlers

import (
	"net/http"
	"strconv"

	"gridsettle/internal/models"
	dbconfig "gridsettle/pkg/config"

	"github.com/gin-gonic/gin"
)

// GetCurtailmentByDateHandler lists the curtailment records stored for a
// settlement date, optionally filtered to one period.
func GetCurtailmentByDateHandler(c *gin.Context) {
	date := c.Param("date")

	query := dbconfig.DB.Where("settlement_date = ?", date)
	if raw := c.Query("period"); raw != "" {
		period, err := strconv.Atoi(raw)
		if err != nil || period < 1 || period > 48 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settlement period"})
			return
		}
		query = query.Where("settlement_period = ?", period)
	}

	var records []models.CurtailmentRecord
	if err := query.Order("settlement_period, bm_unit").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetCurtailmentGridHandler reports which settlement periods of a date are
// present and which are missing.
func GetCurtailmentGridHandler(c *gin.Context) {
	date := c.Param("date")

	var periods []int
	err := dbconfig.DB.Model(&models.CurtailmentRecord{}).
		Where("settlement_date = ?", date).
		Distinct("settlement_period").
		Order("settlement_period").
		Pluck("settlement_period", &periods).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	missing := make([]int, 0, 48)
	seen := make(map[int]bool, len(periods))
	for _, p := range periods {
		seen[p] = true
	}
	for p := 1; p <= 48; p++ {
		if !seen[p] {
			missing = append(missing, p)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date,
		"present":  periods,
		"missing":  missing,
		"complete": len(missing) == 0,
	})
}

// GetMintingByDateHandler lists the minting records for a date, optionally
// filtered to one miner model.
func GetMintingByDateHandler(c *gin.Context) {
	date := c.Param("date")

	query := dbconfig.DB.Where("settlement_date = ?", date)
	if model := c.Query("model"); model != "" {
		query = query.Where("miner_model = ?", model)
	}

	var records []models.MintingRecord
	if err := query.Order("settlement_period, bm_unit, miner_model").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
