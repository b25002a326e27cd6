package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amitRaDev/GMS/internal/gate"
	"github.com/amitRaDev/GMS/internal/model"
)

type gateEventRequest struct {
	VehicleNumber string `json:"vehicleNumber" binding:"required"`
	Direction     string `json:"direction" binding:"required"`
	IsTestDrive   bool   `json:"isTestDrive"`
}

// SubmitGateEvent handles POST /api/gate/event. This is the request phase
// only; nothing is mutated until the operator confirms.
func (h *Handler) SubmitGateEvent(c *gin.Context) {
	var req gateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.gate.HandleGateEvent(c.Request.Context(), gate.Event{
		VehicleNumber: req.VehicleNumber,
		Direction:     model.GateDirection(req.Direction),
		IsTestDrive:   req.IsTestDrive,
	}, nil)
	if err != nil {
		writeGateError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

type confirmRequest struct {
	VehicleNumber string `json:"vehicleNumber" binding:"required"`
	IsTestDrive   bool   `json:"isTestDrive"`
}

// ConfirmEntry handles POST /api/gate/confirm-entry.
func (h *Handler) ConfirmEntry(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.gate.ConfirmEntry(c.Request.Context(), req.VehicleNumber)
	if err != nil {
		writeGateError(c, err)
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, decision)
}

// ConfirmExit handles POST /api/gate/confirm-exit.
func (h *Handler) ConfirmExit(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision, err := h.gate.ConfirmExit(c.Request.Context(), req.VehicleNumber, req.IsTestDrive)
	if err != nil {
		writeGateError(c, err)
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, decision)
}

// ForceCloseJob handles POST /api/gate/force-close/:jobCardId.
func (h *Handler) ForceCloseJob(c *gin.Context) {
	decision, err := h.gate.ForceCloseJob(c.Request.Context(), c.Param("jobCardId"))
	if err != nil {
		writeGateError(c, err)
		return
	}

	if !decision.Success {
		c.JSON(http.StatusNotFound, decision)
		return
	}

	h.invalidateCache()
	c.JSON(http.StatusOK, decision)
}

func writeGateError(c *gin.Context, err error) {
	if errors.Is(err, gate.ErrMissingPlate) || errors.Is(err, gate.ErrInvalidDirection) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
