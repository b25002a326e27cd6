package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/plate"
	"github.com/amitRaDev/GMS/internal/store"
)

type jobCardRequest struct {
	VehicleNumber      string  `json:"vehicleNumber" binding:"required"`
	ServiceDescription string  `json:"serviceDescription"`
	EstimatedCost      float64 `json:"estimatedCost"`
	Notes              string  `json:"notes"`
	OwnerName          string  `json:"ownerName"`
	OwnerPhone         string  `json:"ownerPhone"`
}

// ListJobCards handles GET /api/job-cards. An optional status query filters
// by job status.
func (h *Handler) ListJobCards(c *gin.Context) {
	db := h.store.DB().WithContext(c.Request.Context()).Preload("Vehicle").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	var jobs []model.JobCard
	if err := db.Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job cards"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// ListActiveJobCards handles GET /api/job-cards/active. Active means any
// status other than CLOSED.
func (h *Handler) ListActiveJobCards(c *gin.Context) {
	var jobs []model.JobCard
	err := h.store.DB().WithContext(c.Request.Context()).
		Preload("Vehicle").
		Where("status <> ?", model.StatusClosed).
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve job cards"})
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// CreateJobCard handles POST /api/job-cards. The vehicle is created lazily
// from the normalized plate when it does not exist yet.
func (h *Handler) CreateJobCard(c *gin.Context) {
	var req jobCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	normalized := plate.Normalize(req.VehicleNumber)
	if normalized == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicleNumber is required"})
		return
	}

	vehicle, err := h.store.FindVehicleByNumber(ctx, normalized)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if vehicle == nil {
		vehicle = &model.Vehicle{
			VehicleNumber: normalized,
			OwnerName:     req.OwnerName,
			OwnerPhone:    req.OwnerPhone,
		}
		if err := h.store.CreateVehicle(ctx, vehicle); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	job := model.JobCard{
		JobNumber:          store.GenerateJobNumber(time.Now()),
		VehicleID:          vehicle.ID,
		Status:             model.StatusIdle,
		ServiceDescription: req.ServiceDescription,
		EstimatedCost:      req.EstimatedCost,
		Notes:              req.Notes,
	}
	if err := h.store.CreateJobCard(ctx, &job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	job.Vehicle = vehicle

	if err := h.store.AppendGateLog(ctx, &model.GateLog{
		VehicleNumber: normalized,
		EventType:     model.EventJobCreated,
		JobNumber:     job.JobNumber,
		NewStatus:     string(job.Status),
		Message:       "Job card " + job.JobNumber + " created",
		HasJobCard:    true,
		ActionTaken:   true,
		VehicleID:     vehicle.ID,
		JobCardID:     job.ID,
	}); err != nil {
		log.Printf("gate log append failed for job creation %s: %v", job.JobNumber, err)
	}

	h.invalidateCache()
	c.JSON(http.StatusCreated, job)
}

// GetJobCard handles GET /api/job-cards/:id.
func (h *Handler) GetJobCard(c *gin.Context) {
	job, err := h.store.FindJobCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job card not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJobCard handles PUT /api/job-cards/:id. Descriptive fields only;
// status changes go through the status endpoint so transitions are broadcast.
func (h *Handler) UpdateJobCard(c *gin.Context) {
	var req struct {
		ServiceDescription *string  `json:"serviceDescription"`
		EstimatedCost      *float64 `json:"estimatedCost"`
		FinalCost          *float64 `json:"finalCost"`
		Notes              *string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	job, err := h.store.FindJobCard(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job card not found"})
		return
	}

	if req.ServiceDescription != nil {
		job.ServiceDescription = *req.ServiceDescription
	}
	if req.EstimatedCost != nil {
		job.EstimatedCost = *req.EstimatedCost
	}
	if req.FinalCost != nil {
		job.FinalCost = *req.FinalCost
	}
	if req.Notes != nil {
		job.Notes = *req.Notes
	}

	if err := h.store.SaveJobCard(ctx, job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, job)
}

// DeleteJobCard handles DELETE /api/job-cards/:id.
func (h *Handler) DeleteJobCard(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := h.store.FindJobCard(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job card not found"})
		return
	}

	if err := h.store.DB().WithContext(ctx).Delete(&model.JobCard{}, "id = ?", job.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.invalidateCache()
	c.Status(http.StatusNoContent)
}

// UpdateJobStatus handles PUT /api/job-cards/:id/status. The transition is
// recorded in the gate log and broadcast like the gate's own transitions.
func (h *Handler) UpdateJobStatus(c *gin.Context) {
	var req struct {
		Status model.JobStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	ctx := c.Request.Context()
	job, err := h.store.FindJobCard(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job card not found"})
		return
	}

	previous := job.Status
	if previous == req.Status {
		c.JSON(http.StatusOK, job)
		return
	}

	job.Status = req.Status
	if err := h.store.SaveJobCard(ctx, job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	vehicleNumber := ""
	if job.Vehicle != nil {
		vehicleNumber = job.Vehicle.VehicleNumber
	}

	if err := h.store.AppendGateLog(ctx, &model.GateLog{
		VehicleNumber:  vehicleNumber,
		EventType:      model.EventJobStatusChange,
		JobNumber:      job.JobNumber,
		PreviousStatus: string(previous),
		NewStatus:      string(job.Status),
		Message:        "Job " + job.JobNumber + " status changed",
		HasJobCard:     true,
		ActionTaken:    true,
		VehicleID:      job.VehicleID,
		JobCardID:      job.ID,
	}); err != nil {
		log.Printf("gate log append failed for status change %s: %v", job.JobNumber, err)
	}

	h.gate.EmitJobStatusChanged(job, vehicleNumber, previous)

	h.invalidateCache()
	c.JSON(http.StatusOK, job)
}
