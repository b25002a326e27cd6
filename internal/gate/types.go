package gate

import (
	"context"
	"time"

	"github.com/amitRaDev/GMS/internal/model"
)

// Decision action codes returned to callers.
const (
	ActionEntryRequest      = "ENTRY_REQUEST"
	ActionEntryConfirmed    = "ENTRY_CONFIRMED"
	ActionEntryAllowedNoJob = "ENTRY_ALLOWED_NO_JOB"
	ActionExitRequest       = "EXIT_REQUEST"
	ActionExitConfirmed     = "EXIT_CONFIRMED"
	ActionTestDriveOut      = "TEST_DRIVE_OUT"
	ActionTestDriveReturn   = "TEST_DRIVE_RETURN"
	ActionForceClosed       = "FORCE_CLOSED"
	ActionCannotExit        = "CANNOT_EXIT"
	ActionNotFound          = "NOT_FOUND"
	ActionNoJob             = "NO_JOB"
)

// Broadcast event names sent through the notifier.
const (
	NotifyEntryRequest     = "ENTRY_REQUEST"
	NotifyExitRequest      = "EXIT_REQUEST"
	NotifyEntryLogged      = "ENTRY_LOGGED"
	NotifyTestDriveOut     = "TEST_DRIVE_OUT"
	NotifyTestDriveReturn  = "TEST_DRIVE_RETURN"
	NotifyJobStatusChanged = "JOB_STATUS_CHANGED"
	NotifyJobClosed        = "JOB_CLOSED"
)

// Event is one inbound vehicle detection.
type Event struct {
	VehicleNumber string              `json:"vehicleNumber" binding:"required"`
	Direction     model.GateDirection `json:"direction" binding:"required"`
	IsTestDrive   bool                `json:"isTestDrive"`
}

// CameraContext carries optional detector metadata along with an event.
type CameraContext struct {
	CameraID    string
	VehicleType string
	ImageID     string
	Image       string // base64 data URL, passed through to the popup
	EventTime   *time.Time
}

// Decision is the structured outcome of a gate operation.
type Decision struct {
	Success        bool           `json:"success"`
	Action         string         `json:"action"`
	Message        string         `json:"message"`
	JobCard        *model.JobCard `json:"jobCard,omitempty"`
	RequiresAction bool           `json:"requiresAction,omitempty"`
	VehicleNumber  string         `json:"vehicleNumber,omitempty"`
	HasJobCard     bool           `json:"hasJobCard"`
	CanExit        bool           `json:"canExit"`
	ExitReason     string         `json:"exitReason,omitempty"`
}

// EntryRequestPayload is broadcast for every inbound detection so the operator
// console always gets a confirmation prompt.
type EntryRequestPayload struct {
	VehicleNumber string    `json:"vehicleNumber"`
	HasJobCard    bool      `json:"hasJobCard"`
	JobCardID     string    `json:"jobCardId,omitempty"`
	JobNumber     string    `json:"jobNumber,omitempty"`
	JobStatus     string    `json:"jobStatus,omitempty"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Image         string    `json:"image,omitempty"`
	VehicleType   string    `json:"vehicleType,omitempty"`
	CameraID      string    `json:"cameraId,omitempty"`
}

// ExitRequestPayload is broadcast for every outbound detection.
type ExitRequestPayload struct {
	VehicleNumber string    `json:"vehicleNumber"`
	CanExit       bool      `json:"canExit"`
	ExitReason    string    `json:"exitReason"`
	JobCardID     string    `json:"jobCardId,omitempty"`
	JobNumber     string    `json:"jobNumber,omitempty"`
	JobStatus     string    `json:"jobStatus,omitempty"`
	IsTestDrive   bool      `json:"isTestDrive"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Image         string    `json:"image,omitempty"`
	VehicleType   string    `json:"vehicleType,omitempty"`
	CameraID      string    `json:"cameraId,omitempty"`
}

// JobEventPayload is broadcast for entry-logged, test-drive and job-closed
// notifications.
type JobEventPayload struct {
	VehicleNumber string `json:"vehicleNumber"`
	JobCardID     string `json:"jobCardId"`
	JobNumber     string `json:"jobNumber"`
	Message       string `json:"message"`
}

// StatusChangedPayload is broadcast whenever a job card status mutates.
type StatusChangedPayload struct {
	JobCardID      string `json:"jobCardId"`
	JobNumber      string `json:"jobNumber"`
	VehicleNumber  string `json:"vehicleNumber"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
}

// Registry is the vehicle/job lookup and mutation surface the state machine
// drives. It performs no transition validation of its own.
type Registry interface {
	FindVehicleByNumber(ctx context.Context, vehicleNumber string) (*model.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	LatestJobCard(ctx context.Context, vehicleID string) (*model.JobCard, error)
	FindJobCard(ctx context.Context, id string) (*model.JobCard, error)
	SaveJobCard(ctx context.Context, job *model.JobCard) error
}

// Ledger is the append-only audit log.
type Ledger interface {
	AppendGateLog(ctx context.Context, entry *model.GateLog) error
}

// Notifier fans a named event out to all connected observers. Delivery is
// fire-and-forget; failures never surface to the state machine.
type Notifier interface {
	Broadcast(event string, payload any)
}

// Pusher dispatches a job-closed push notification job. Implementations must
// not block.
type Pusher interface {
	DispatchJobClosed(jobCardID string)
}
