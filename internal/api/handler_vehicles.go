package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/plate"
)

type vehicleRequest struct {
	VehicleNumber string `json:"vehicleNumber" binding:"required"`
	Make          string `json:"make"`
	Model         string `json:"model"`
	Year          int    `json:"year"`
	Color         string `json:"color"`
	OwnerName     string `json:"ownerName"`
	OwnerPhone    string `json:"ownerPhone"`
	OwnerEmail    string `json:"ownerEmail"`
}

// ListVehicles handles GET /api/vehicles. An optional vehicleNumber query
// filters by plate substring.
func (h *Handler) ListVehicles(c *gin.Context) {
	db := h.store.DB().WithContext(c.Request.Context()).Order("created_at DESC")
	if search := plate.Normalize(c.Query("vehicleNumber")); search != "" {
		db = db.Where("vehicle_number LIKE ?", "%"+search+"%")
	}

	var vehicles []model.Vehicle
	if err := db.Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve vehicles"})
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// CreateVehicle handles POST /api/vehicles. The plate is normalized before
// storage; a duplicate plate is a conflict.
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized := plate.Normalize(req.VehicleNumber)
	if normalized == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicleNumber is required"})
		return
	}

	existing, err := h.store.FindVehicleByNumber(c.Request.Context(), normalized)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "vehicle already exists", "vehicle": existing})
		return
	}

	vehicle := model.Vehicle{
		VehicleNumber: normalized,
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		Color:         req.Color,
		OwnerName:     req.OwnerName,
		OwnerPhone:    req.OwnerPhone,
		OwnerEmail:    req.OwnerEmail,
	}
	if err := h.store.CreateVehicle(c.Request.Context(), &vehicle); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusCreated, vehicle)
}

// GetVehicle handles GET /api/vehicles/:id.
func (h *Handler) GetVehicle(c *gin.Context) {
	vehicle, err := h.store.FindVehicleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// UpdateVehicle handles PUT /api/vehicles/:id. The plate itself is immutable;
// only descriptive fields change.
func (h *Handler) UpdateVehicle(c *gin.Context) {
	var req struct {
		Make       *string `json:"make"`
		Model      *string `json:"model"`
		Year       *int    `json:"year"`
		Color      *string `json:"color"`
		OwnerName  *string `json:"ownerName"`
		OwnerPhone *string `json:"ownerPhone"`
		OwnerEmail *string `json:"ownerEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]any{}
	if req.Make != nil {
		fields["make"] = *req.Make
	}
	if req.Model != nil {
		fields["model"] = *req.Model
	}
	if req.Year != nil {
		fields["year"] = *req.Year
	}
	if req.Color != nil {
		fields["color"] = *req.Color
	}
	if req.OwnerName != nil {
		fields["owner_name"] = *req.OwnerName
	}
	if req.OwnerPhone != nil {
		fields["owner_phone"] = *req.OwnerPhone
	}
	if req.OwnerEmail != nil {
		fields["owner_email"] = *req.OwnerEmail
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	vehicle, err := h.store.UpdateVehicle(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, vehicle)
}

// DeleteVehicle handles DELETE /api/vehicles/:id.
func (h *Handler) DeleteVehicle(c *gin.Context) {
	vehicle, err := h.store.FindVehicleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.Status(http.StatusNoContent)
}
