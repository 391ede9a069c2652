package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davet/jobdigest/internal/service"
)

// DispatchHandler exposes the dispatch cycle and queue maintenance over
// HTTP for diagnostics. It runs the identical code path the scheduled
// trigger uses, so on-demand runs cannot drift from production behavior.
type DispatchHandler struct {
	dispatcher *service.Dispatcher
}

// NewDispatchHandler creates a dispatch handler.
func NewDispatchHandler(dispatcher *service.Dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: dispatcher}
}

// Run executes one dispatch cycle and returns its structured result.
func (h *DispatchHandler) Run(c *gin.Context) {
	result, err := h.dispatcher.RunCycle(c.Request.Context())
	if err != nil {
		// The result still describes what happened; mark failures in
		// particular must reach the caller with the campaign id.
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats returns the derived queue statistics.
func (h *DispatchHandler) Stats(c *gin.Context) {
	stats := h.dispatcher.Stats(c.Request.Context())
	if stats.Error != "" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Cleanup prunes sent records older than the given age in days.
func (h *DispatchHandler) Cleanup(c *gin.Context) {
	maxAgeDays, err := strconv.Atoi(c.DefaultQuery("max_age_days", "30"))
	if err != nil || maxAgeDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_age_days must be a non-negative integer"})
		return
	}

	state, err := h.dispatcher.Cleanup(c.Request.Context(), maxAgeDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_jobs":   len(state.JobQueue),
		"pending_jobs": state.PendingCount(),
		"sent_jobs":    state.SentCount(),
	})
}
