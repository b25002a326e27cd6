package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GateEventType tags a gate log entry with the occurrence it records.
type GateEventType string

const (
	EventEntryRequest    GateEventType = "ENTRY_REQUEST"
	EventEntryAllowed    GateEventType = "ENTRY_ALLOWED"
	EventEntryDenied     GateEventType = "ENTRY_DENIED"
	EventExitRequest     GateEventType = "EXIT_REQUEST"
	EventExitAllowed     GateEventType = "EXIT_ALLOWED"
	EventExitDenied      GateEventType = "EXIT_DENIED"
	EventTestDriveOut    GateEventType = "TEST_DRIVE_OUT"
	EventTestDriveReturn GateEventType = "TEST_DRIVE_RETURN"
	EventJobCreated      GateEventType = "JOB_CREATED"
	EventJobStatusChange GateEventType = "JOB_STATUS_CHANGED"
	EventJobClosed       GateEventType = "JOB_CLOSED"
)

// GateDirection is the physical direction of a gate crossing.
type GateDirection string

const (
	DirectionIn  GateDirection = "IN"
	DirectionOut GateDirection = "OUT"
)

// GateLog is one immutable entry in the gate audit trail. Rows are only ever
// inserted, never updated or deleted.
type GateLog struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	VehicleNumber  string        `gorm:"index;size:20;not null" json:"vehicleNumber"`
	EventType      GateEventType `gorm:"index;size:30;not null" json:"eventType"`
	Direction      GateDirection `gorm:"size:5" json:"direction,omitempty"`
	JobNumber      string        `gorm:"size:50" json:"jobNumber,omitempty"`
	PreviousStatus string        `gorm:"size:50" json:"previousStatus,omitempty"`
	NewStatus      string        `gorm:"size:50" json:"newStatus,omitempty"`
	Message        string        `gorm:"type:text" json:"message,omitempty"`
	HasJobCard     bool          `json:"hasJobCard"`
	ActionTaken    bool          `json:"actionTaken"`
	VehicleID      string        `gorm:"size:36" json:"vehicleId,omitempty"`
	JobCardID      string        `gorm:"size:36" json:"jobCardId,omitempty"`
	CameraID       string        `gorm:"size:50" json:"cameraId,omitempty"`
	VehicleType    string        `gorm:"size:50" json:"vehicleType,omitempty"`
	ImageID        string        `gorm:"size:36" json:"imageId,omitempty"`
	EventTime      *time.Time    `json:"eventTime,omitempty"`
	CreatedAt      time.Time     `gorm:"index" json:"createdAt"`
}

func (g *GateLog) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
