package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/internal/camera"
	"github.com/amitRaDev/GMS/internal/model"
)

// CameraEvent handles POST /api/camera/event.
func (h *Handler) CameraEvent(c *gin.Context) {
	var in camera.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.camera.ProcessEvent(c.Request.Context(), in, c.GetHeader("X-API-Token"))
	if err != nil {
		writeCameraError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CameraEventsBulk handles POST /api/camera/events/bulk. Items are processed
// in order and failures are reported per item.
func (h *Handler) CameraEventsBulk(c *gin.Context) {
	var req struct {
		Events []camera.EventInput `json:"events" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.camera.ProcessBulk(c.Request.Context(), req.Events, c.GetHeader("X-API-Token"))
	c.JSON(http.StatusOK, result)
}

// CameraEventUpload handles POST /api/camera/event/upload, the multipart
// variant used by cameras that send the frame as a file.
func (h *Handler) CameraEventUpload(c *gin.Context) {
	in := camera.EventInput{
		CameraID:           c.PostForm("cameraId"),
		RegistrationNumber: c.PostForm("registrationNumber"),
		MovementType:       c.PostForm("movementType"),
		Time:               c.PostForm("time"),
		VehicleType:        c.PostForm("vehicleType"),
	}
	if in.RegistrationNumber == "" || in.MovementType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registrationNumber and movementType are required"})
		return
	}

	if fileHeader, err := c.FormFile("image"); err == nil {
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image"})
			return
		}
		defer f.Close()

		raw, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/jpeg"
		}
		in.Image = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw))
	}

	result, err := h.camera.ProcessEvent(c.Request.Context(), in, c.GetHeader("X-API-Token"))
	if err != nil {
		writeCameraError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type cameraRequest struct {
	CameraID    string `json:"cameraId" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location"`
	GateType    string `json:"gateType"`
	IsActive    *bool  `json:"isActive"`
	Description string `json:"description"`
}

// ListCameras handles GET /api/cameras.
func (h *Handler) ListCameras(c *gin.Context) {
	var cameras []model.Camera
	if err := h.store.DB().WithContext(c.Request.Context()).Order("created_at ASC").Find(&cameras).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve cameras"})
		return
	}
	c.JSON(http.StatusOK, cameras)
}

// CreateCamera handles POST /api/cameras. Every camera gets an API token on
// creation.
func (h *Handler) CreateCamera(c *gin.Context) {
	var req cameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := camera.GenerateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cam := model.Camera{
		CameraID:    req.CameraID,
		Name:        req.Name,
		Location:    req.Location,
		GateType:    req.GateType,
		IsActive:    true,
		APIToken:    token,
		Description: req.Description,
	}
	if req.GateType == "" {
		cam.GateType = "BOTH"
	}
	if req.IsActive != nil {
		cam.IsActive = *req.IsActive
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Create(&cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusCreated, cam)
}

// GetCamera handles GET /api/cameras/:id.
func (h *Handler) GetCamera(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cam)
}

// UpdateCamera handles PUT /api/cameras/:id.
func (h *Handler) UpdateCamera(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}

	var req cameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam.CameraID = req.CameraID
	cam.Name = req.Name
	cam.Location = req.Location
	cam.Description = req.Description
	if req.GateType != "" {
		cam.GateType = req.GateType
	}
	if req.IsActive != nil {
		cam.IsActive = *req.IsActive
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Save(cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, cam)
}

// DeleteCamera handles DELETE /api/cameras/:id.
func (h *Handler) DeleteCamera(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).Delete(cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.Status(http.StatusNoContent)
}

// RegenerateCameraToken handles POST /api/cameras/:id/regenerate-token.
func (h *Handler) RegenerateCameraToken(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}

	token, err := camera.GenerateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cam.APIToken = token
	if err := h.store.DB().WithContext(c.Request.Context()).Save(cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"apiToken": token})
}

func (h *Handler) findCamera(c *gin.Context) (*model.Camera, bool) {
	var cam model.Camera
	err := h.store.DB().WithContext(c.Request.Context()).First(&cam, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "camera not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return &cam, true
}

func writeCameraError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, camera.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, camera.ErrInactiveCamera):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		writeGateError(c, err)
	}
}
