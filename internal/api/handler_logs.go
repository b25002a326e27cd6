package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/store"
)

// GetGateLogs handles GET /api/gate-logs.
func (h *Handler) GetGateLogs(c *gin.Context) {
	q := store.GateLogQuery{
		VehicleNumber: c.Query("vehicleNumber"),
		EventType:     model.GateEventType(c.Query("eventType")),
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		q.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}

	page, err := h.store.ListGateLogs(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve gate logs"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetGateStats handles GET /api/gate-logs/stats.
func (h *Handler) GetGateStats(c *gin.Context) {
	stats, err := h.store.GateStats(c.Request.Context(), h.loc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute gate stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
