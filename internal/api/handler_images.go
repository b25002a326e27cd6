package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amitRaDev/GMS/internal/plate"
)

// GetImage handles GET /api/images/:id.
func (h *Handler) GetImage(c *gin.Context) {
	img, err := h.store.FindImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}
	c.JSON(http.StatusOK, img)
}

// GetVehicleImages handles GET /api/images/vehicle/:vehicleNumber, newest
// first.
func (h *Handler) GetVehicleImages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	images, err := h.store.ImagesForVehicle(c.Request.Context(), plate.Normalize(c.Param("vehicleNumber")), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, images)
}
