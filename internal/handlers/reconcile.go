package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"gridsettle/internal/reconcile"
	"gridsettle/pkg/config"
	"gridsettle/pkg/difficulty"
	"gridsettle/pkg/elexon"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var (
	orchestratorOnce sync.Once
	orchestrator     *reconcile.Orchestrator
)

// Orchestrator returns the process-wide orchestrator. A single instance is
// required so the per-date in-flight lock covers every trigger path.
func Orchestrator() *reconcile.Orchestrator {
	orchestratorOnce.Do(func() {
		orchestrator = reconcile.NewOrchestrator(config.DB, elexon.NewClient(), difficulty.NewClient())
		orchestrator.SetListener(func(ev reconcile.RunEvent) {
			progressHub.Broadcast(ev)
		})
	})
	return orchestrator
}

// ReconcileRequest selects an action over a date or inclusive date range.
type ReconcileRequest struct {
	Action      string `json:"action" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date"`
	Concurrency int    `json:"concurrency"`
	Async       bool   `json:"async"`
}

// RunReconcileHandler triggers a reconciliation run and returns the
// orchestrator's structured report. With async=true the request is queued
// for the worker instead.
func RunReconcileHandler(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !reconcile.ValidAction(req.Action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be one of validate, backfill, recompute, audit, full-reconcile"})
		return
	}
	if req.EndDate == "" {
		req.EndDate = req.StartDate
	}
	if req.Concurrency <= 0 {
		req.Concurrency = 4
	}

	if req.Async {
		if config.RabbitMQ == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RabbitMQ not initialized"})
			return
		}
		publisher, err := config.NewPublisher()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer publisher.Close()

		if err := publisher.Publish(config.QueueReconcileRequests, req); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"message":    "Reconcile request queued",
			"action":     req.Action,
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
		})
		return
	}

	action := reconcile.Action(req.Action)
	if req.StartDate == req.EndDate {
		report, err := Orchestrator().RunDate(c.Request.Context(), req.StartDate, action)
		if err != nil {
			if errors.Is(err, reconcile.ErrDateBusy) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	report, err := Orchestrator().RunRange(c.Request.Context(), req.StartDate, req.EndDate, action, req.Concurrency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListReconcileRunsHandler lists persisted run reports, newest first.
func ListReconcileRunsHandler(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	query := config.DB.Order("id DESC").Limit(limit)
	if date := c.Query("date"); date != "" {
		query = query.Where("settlement_date = ?", date)
	}

	var runs []struct {
		ID               uint   `json:"id"`
		SettlementDate   string `json:"settlement_date"`
		Action           string `json:"action"`
		FinalState       string `json:"final_state"`
		DiscrepancyCount int    `json:"discrepancy_count"`
		RecordsIngested  int    `json:"records_ingested"`
	}
	if err := query.Table("reconcile_run").Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetReconcileRunsByDateHandler returns the full reports stored for a date.
func GetReconcileRunsByDateHandler(c *gin.Context) {
	date := c.Param("date")

	var runs []map[string]interface{}
	err := config.DB.Table("reconcile_run").
		Where("settlement_date = ?", date).
		Order("id DESC").
		Find(&runs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(runs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No runs found for date"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// AuditRequest asks for a read-only consistency check over a date range.
type AuditRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"`
}

// AuditRangeHandler audits every date in the range plus the months and years
// they fall in, without writing anything.
func AuditRangeHandler(c *gin.Context) {
	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndDate == "" {
		req.EndDate = req.StartDate
	}

	dates, err := reconcile.DatesBetween(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auditor := reconcile.NewAuditor(config.DB)
	months := make(map[string]bool)
	years := make(map[string]bool)
	discrepancies := []reconcile.Discrepancy{}

	for _, date := range dates {
		out, err := auditor.AuditDate(date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		discrepancies = append(discrepancies, out...)
		months[date[:7]] = true
		years[date[:4]] = true
	}
	for month := range months {
		out, err := auditor.AuditMonth(month)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		discrepancies = append(discrepancies, out...)
	}
	for year := range years {
		out, err := auditor.AuditYear(year)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		discrepancies = append(discrepancies, out...)
	}

	c.JSON(http.StatusOK, gin.H{
		"start_date":    req.StartDate,
		"end_date":      req.EndDate,
		"count":         len(discrepancies),
		"discrepancies": discrepancies,
	})
}

// PurgeReconcileQueueHandler drops all pending queued reconcile requests.
func PurgeReconcileQueueHandler(c *gin.Context) {
	if config.RabbitMQ == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RabbitMQ not initialized"})
		return
	}
	if err := config.PurgeQueue(config.QueueReconcileRequests); err != nil {
		log.Errorf("Failed to purge reconcile queue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Queue purged"})
}
