package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/plate"
)

// Validation failures, rejected before any lookup or mutation.
var (
	ErrMissingPlate     = errors.New("vehicle number is required")
	ErrInvalidDirection = errors.New("direction must be IN or OUT")
)

// Service is the gate event state machine. Detection events only ever raise a
// confirmation prompt; a human confirmation commits the transition. This keeps
// false-positive plate reads from silently mutating job state.
type Service struct {
	registry Registry
	ledger   Ledger
	notifier Notifier
	pusher   Pusher
	locks    *plateLocks
}

// NewService wires the state machine to its collaborators. notifier and pusher
// may be nil (broadcasts and pushes are then skipped).
func NewService(registry Registry, ledger Ledger, notifier Notifier, pusher Pusher) *Service {
	return &Service{
		registry: registry,
		ledger:   ledger,
		notifier: notifier,
		pusher:   pusher,
		locks:    newPlateLocks(),
	}
}

func (s *Service) broadcast(event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(event, payload)
}

// HandleGateEvent processes one ANPR detection. Request phase only: it never
// mutates vehicle or job state, for any input.
func (s *Service) HandleGateEvent(ctx context.Context, ev Event, camera *CameraContext) (*Decision, error) {
	normalized := plate.Normalize(ev.VehicleNumber)
	if normalized == "" {
		return nil, ErrMissingPlate
	}
	if ev.Direction != model.DirectionIn && ev.Direction != model.DirectionOut {
		return nil, ErrInvalidDirection
	}

	log.Printf("gate event: %s %s testDrive=%v camera=%s", normalized, ev.Direction, ev.IsTestDrive, cameraID(camera))

	vehicle, err := s.registry.FindVehicleByNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}

	var latestJob *model.JobCard
	if vehicle != nil {
		latestJob, err = s.registry.LatestJobCard(ctx, vehicle.ID)
		if err != nil {
			return nil, err
		}
	}

	if ev.Direction == model.DirectionIn {
		return s.handleGateIn(ctx, normalized, vehicle, latestJob, camera)
	}
	return s.handleGateOut(ctx, normalized, vehicle, latestJob, ev.IsTestDrive, camera)
}

// handleGateIn always raises an entry-request prompt, whether or not an active
// job exists.
func (s *Service) handleGateIn(ctx context.Context, vehicleNumber string, vehicle *model.Vehicle, latestJob *model.JobCard, camera *CameraContext) (*Decision, error) {
	hasActiveJob := latestJob != nil && latestJob.Status.IsActive()

	var message string
	if hasActiveJob {
		message = fmt.Sprintf("Vehicle %s detected. Job Card: %s (%s)", vehicleNumber, latestJob.JobNumber, latestJob.Status)
	} else {
		message = fmt.Sprintf("Vehicle %s detected. No active job card found.", vehicleNumber)
	}

	entry := &model.GateLog{
		VehicleNumber: vehicleNumber,
		EventType:     model.EventEntryRequest,
		Direction:     model.DirectionIn,
		Message:       message,
		HasJobCard:    hasActiveJob,
	}
	applyRefs(entry, vehicle, latestJob)
	applyCamera(entry, camera)
	if err := s.ledger.AppendGateLog(ctx, entry); err != nil {
		return nil, err
	}

	payload := EntryRequestPayload{
		VehicleNumber: vehicleNumber,
		HasJobCard:    hasActiveJob,
		Message:       message,
		Timestamp:     time.Now(),
	}
	if latestJob != nil {
		payload.JobCardID = latestJob.ID
		payload.JobNumber = latestJob.JobNumber
		payload.JobStatus = string(latestJob.Status)
	}
	if camera != nil {
		payload.Image = camera.Image
		payload.VehicleType = camera.VehicleType
		payload.CameraID = camera.CameraID
	}
	s.broadcast(NotifyEntryRequest, payload)

	return &Decision{
		Success:        true,
		Action:         ActionEntryRequest,
		Message:        fmt.Sprintf("Entry request sent for %s. Awaiting confirmation.", vehicleNumber),
		RequiresAction: true,
		VehicleNumber:  vehicleNumber,
		HasJobCard:     hasActiveJob,
		JobCard:        latestJob,
	}, nil
}

// handleGateOut always raises an exit-request prompt and reports whether the
// exit would be legal.
func (s *Service) handleGateOut(ctx context.Context, vehicleNumber string, vehicle *model.Vehicle, latestJob *model.JobCard, isTestDrive bool, camera *CameraContext) (*Decision, error) {
	canExit := latestJob != nil &&
		(latestJob.Status == model.StatusCompleted ||
			latestJob.Status == model.StatusTestDrive ||
			(latestJob.Status == model.StatusOngoing && isTestDrive))

	exitReason := exitReasonFor(latestJob, isTestDrive)

	var message string
	if canExit {
		message = fmt.Sprintf("Vehicle %s requesting exit. %s", vehicleNumber, exitReason)
	} else {
		message = fmt.Sprintf("Vehicle %s cannot exit. %s", vehicleNumber, exitReason)
	}

	entry := &model.GateLog{
		VehicleNumber: vehicleNumber,
		EventType:     model.EventExitRequest,
		Direction:     model.DirectionOut,
		Message:       message,
		HasJobCard:    latestJob != nil,
	}
	applyRefs(entry, vehicle, latestJob)
	applyCamera(entry, camera)
	if err := s.ledger.AppendGateLog(ctx, entry); err != nil {
		return nil, err
	}

	payload := ExitRequestPayload{
		VehicleNumber: vehicleNumber,
		CanExit:       canExit,
		ExitReason:    exitReason,
		IsTestDrive:   isTestDrive,
		Message:       message,
		Timestamp:     time.Now(),
	}
	if latestJob != nil {
		payload.JobCardID = latestJob.ID
		payload.JobNumber = latestJob.JobNumber
		payload.JobStatus = string(latestJob.Status)
	}
	if camera != nil {
		payload.Image = camera.Image
		payload.VehicleType = camera.VehicleType
		payload.CameraID = camera.CameraID
	}
	s.broadcast(NotifyExitRequest, payload)

	return &Decision{
		Success:        true,
		Action:         ActionExitRequest,
		Message:        fmt.Sprintf("Exit request sent for %s. Awaiting confirmation.", vehicleNumber),
		RequiresAction: true,
		VehicleNumber:  vehicleNumber,
		CanExit:        canExit,
		ExitReason:     exitReason,
		JobCard:        latestJob,
	}, nil
}

// exitReasonFor computes the human-readable exit verdict. The precedence of
// these checks is part of the contract; reorder nothing.
func exitReasonFor(latestJob *model.JobCard, isTestDrive bool) string {
	switch {
	case latestJob == nil:
		return "No job card found for this vehicle"
	case latestJob.Status == model.StatusIdle:
		return "Vehicle has not entered yet (status: IDLE)"
	case latestJob.Status == model.StatusOngoing && !isTestDrive:
		return "Service is still ongoing. Mark as Complete or Test Drive first."
	case latestJob.Status == model.StatusClosed:
		return "Job is already closed"
	case latestJob.Status == model.StatusCompleted:
		return "Service completed. Ready for exit."
	case latestJob.Status == model.StatusTestDrive:
		return "Vehicle is on test drive. Ready for exit."
	case isTestDrive:
		return "Test drive requested."
	}
	return ""
}

// ConfirmEntry commits an operator-approved entry. This is the only place a
// vehicle record may be auto-created.
func (s *Service) ConfirmEntry(ctx context.Context, vehicleNumber string) (*Decision, error) {
	normalized := plate.Normalize(vehicleNumber)
	if normalized == "" {
		return nil, ErrMissingPlate
	}

	unlock := s.locks.acquire(normalized)
	defer unlock()

	vehicle, err := s.registry.FindVehicleByNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		vehicle = &model.Vehicle{VehicleNumber: normalized}
		if err := s.registry.CreateVehicle(ctx, vehicle); err != nil {
			return nil, err
		}
	}

	latestJob, err := s.registry.LatestJobCard(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}

	// Exactly one of the three branches below fires.
	if latestJob != nil && latestJob.Status == model.StatusIdle {
		previous := latestJob.Status
		now := time.Now()
		latestJob.Status = model.StatusOngoing
		latestJob.VehicleEntryTime = &now
		if err := s.registry.SaveJobCard(ctx, latestJob); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Vehicle %s entered. Job %s started.", normalized, latestJob.JobNumber)
		s.appendTransitionLog(ctx, &model.GateLog{
			VehicleNumber:  normalized,
			EventType:      model.EventEntryAllowed,
			Direction:      model.DirectionIn,
			JobNumber:      latestJob.JobNumber,
			PreviousStatus: string(previous),
			NewStatus:      string(model.StatusOngoing),
			Message:        message,
			HasJobCard:     true,
			ActionTaken:    true,
			VehicleID:      vehicle.ID,
			JobCardID:      latestJob.ID,
		})

		s.broadcast(NotifyEntryLogged, JobEventPayload{
			VehicleNumber: normalized,
			JobCardID:     latestJob.ID,
			JobNumber:     latestJob.JobNumber,
			Message:       message,
		})
		s.broadcastStatusChange(latestJob, normalized, previous)

		return &Decision{
			Success: true,
			Action:  ActionEntryConfirmed,
			Message: fmt.Sprintf("Entry confirmed. Job %s is now ONGOING.", latestJob.JobNumber),
			JobCard: latestJob,
		}, nil
	}

	if latestJob != nil && latestJob.Status == model.StatusTestDrive {
		previous := latestJob.Status
		now := time.Now()
		latestJob.Status = model.StatusOngoing
		latestJob.TestDriveInTime = &now
		if err := s.registry.SaveJobCard(ctx, latestJob); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Vehicle %s returned from test drive.", normalized)
		s.appendTransitionLog(ctx, &model.GateLog{
			VehicleNumber:  normalized,
			EventType:      model.EventTestDriveReturn,
			Direction:      model.DirectionIn,
			JobNumber:      latestJob.JobNumber,
			PreviousStatus: string(previous),
			NewStatus:      string(model.StatusOngoing),
			Message:        message,
			HasJobCard:     true,
			ActionTaken:    true,
			VehicleID:      vehicle.ID,
			JobCardID:      latestJob.ID,
		})

		s.broadcast(NotifyTestDriveReturn, JobEventPayload{
			VehicleNumber: normalized,
			JobCardID:     latestJob.ID,
			JobNumber:     latestJob.JobNumber,
			Message:       message,
		})
		s.broadcastStatusChange(latestJob, normalized, previous)

		return &Decision{
			Success: true,
			Action:  ActionTestDriveReturn,
			Message: "Test drive return confirmed. Job continues as ONGOING.",
			JobCard: latestJob,
		}, nil
	}

	// No job, or job in a non-enterable status: entry stands but the caller
	// should prompt for job card creation. No mutation.
	s.appendTransitionLog(ctx, &model.GateLog{
		VehicleNumber: normalized,
		EventType:     model.EventEntryAllowed,
		Direction:     model.DirectionIn,
		Message:       fmt.Sprintf("Entry allowed for %s. No active job card.", normalized),
		HasJobCard:    false,
		ActionTaken:   true,
		VehicleID:     vehicle.ID,
	})

	return &Decision{
		Success:       true,
		Action:        ActionEntryAllowedNoJob,
		Message:       fmt.Sprintf("Entry allowed for %s. No active job card - create one.", normalized),
		VehicleNumber: normalized,
		HasJobCard:    false,
	}, nil
}

// ConfirmExit commits an operator-approved exit. Vehicles are never
// auto-created on exit.
func (s *Service) ConfirmExit(ctx context.Context, vehicleNumber string, isTestDrive bool) (*Decision, error) {
	normalized := plate.Normalize(vehicleNumber)
	if normalized == "" {
		return nil, ErrMissingPlate
	}

	unlock := s.locks.acquire(normalized)
	defer unlock()

	vehicle, err := s.registry.FindVehicleByNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return &Decision{Success: false, Action: ActionNotFound, Message: "Vehicle not found."}, nil
	}

	latestJob, err := s.registry.LatestJobCard(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	if latestJob == nil {
		return &Decision{Success: false, Action: ActionNoJob, Message: "No job card found."}, nil
	}

	// Exactly one of the four branches below fires, in this order.
	if latestJob.Status == model.StatusOngoing && isTestDrive {
		previous := latestJob.Status
		now := time.Now()
		latestJob.Status = model.StatusTestDrive
		latestJob.TestDriveOutTime = &now
		if err := s.registry.SaveJobCard(ctx, latestJob); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Vehicle %s out for test drive.", normalized)
		s.appendTransitionLog(ctx, &model.GateLog{
			VehicleNumber:  normalized,
			EventType:      model.EventTestDriveOut,
			Direction:      model.DirectionOut,
			JobNumber:      latestJob.JobNumber,
			PreviousStatus: string(previous),
			NewStatus:      string(model.StatusTestDrive),
			Message:        message,
			HasJobCard:     true,
			ActionTaken:    true,
			VehicleID:      vehicle.ID,
			JobCardID:      latestJob.ID,
		})

		s.broadcast(NotifyTestDriveOut, JobEventPayload{
			VehicleNumber: normalized,
			JobCardID:     latestJob.ID,
			JobNumber:     latestJob.JobNumber,
			Message:       message,
		})
		s.broadcastStatusChange(latestJob, normalized, previous)

		return &Decision{
			Success: true,
			Action:  ActionTestDriveOut,
			Message: fmt.Sprintf("Test drive started for %s.", normalized),
			JobCard: latestJob,
		}, nil
	}

	if latestJob.Status == model.StatusCompleted {
		previous := latestJob.Status
		now := time.Now()
		latestJob.Status = model.StatusClosed
		latestJob.VehicleExitTime = &now
		if err := s.registry.SaveJobCard(ctx, latestJob); err != nil {
			return nil, err
		}

		message := fmt.Sprintf("Vehicle %s exited. Job closed.", normalized)
		s.appendTransitionLog(ctx, &model.GateLog{
			VehicleNumber:  normalized,
			EventType:      model.EventExitAllowed,
			Direction:      model.DirectionOut,
			JobNumber:      latestJob.JobNumber,
			PreviousStatus: string(previous),
			NewStatus:      string(model.StatusClosed),
			Message:        message,
			HasJobCard:     true,
			ActionTaken:    true,
			VehicleID:      vehicle.ID,
			JobCardID:      latestJob.ID,
		})

		s.broadcast(NotifyJobClosed, JobEventPayload{
			VehicleNumber: normalized,
			JobCardID:     latestJob.ID,
			JobNumber:     latestJob.JobNumber,
			Message:       message,
		})
		s.broadcastStatusChange(latestJob, normalized, previous)
		s.dispatchJobClosed(latestJob.ID)

		return &Decision{
			Success: true,
			Action:  ActionExitConfirmed,
			Message: fmt.Sprintf("Exit confirmed. Job %s closed.", latestJob.JobNumber),
			JobCard: latestJob,
		}, nil
	}

	if latestJob.Status == model.StatusTestDrive {
		// Vehicle is already correctly marked as out; no status change.
		s.appendTransitionLog(ctx, &model.GateLog{
			VehicleNumber: normalized,
			EventType:     model.EventExitAllowed,
			Direction:     model.DirectionOut,
			JobNumber:     latestJob.JobNumber,
			Message:       fmt.Sprintf("Exit confirmed for test drive vehicle %s.", normalized),
			HasJobCard:    true,
			ActionTaken:   true,
			VehicleID:     vehicle.ID,
			JobCardID:     latestJob.ID,
		})

		return &Decision{
			Success: true,
			Action:  ActionExitConfirmed,
			Message: fmt.Sprintf("Exit confirmed for test drive vehicle %s.", normalized),
			JobCard: latestJob,
		}, nil
	}

	// Denied. The denial is itself a durable, auditable outcome, so a failed
	// ledger append here fails the call.
	message := fmt.Sprintf("Cannot exit. Current status: %s", latestJob.Status)
	if err := s.ledger.AppendGateLog(ctx, &model.GateLog{
		VehicleNumber: normalized,
		EventType:     model.EventExitDenied,
		Direction:     model.DirectionOut,
		JobNumber:     latestJob.JobNumber,
		Message:       message,
		HasJobCard:    true,
		ActionTaken:   false,
		VehicleID:     vehicle.ID,
		JobCardID:     latestJob.ID,
	}); err != nil {
		return nil, err
	}

	return &Decision{Success: false, Action: ActionCannotExit, Message: message}, nil
}

// ForceCloseJob closes a job card unconditionally. Administrative escape hatch
// for stuck jobs; bypasses all status preconditions.
func (s *Service) ForceCloseJob(ctx context.Context, jobCardID string) (*Decision, error) {
	jobCard, err := s.registry.FindJobCard(ctx, jobCardID)
	if err != nil {
		return nil, err
	}
	if jobCard == nil {
		return &Decision{Success: false, Action: ActionNotFound, Message: "Job card not found."}, nil
	}

	vehicleNumber := ""
	if jobCard.Vehicle != nil {
		vehicleNumber = jobCard.Vehicle.VehicleNumber
	}

	unlock := s.locks.acquire(vehicleNumber)
	defer unlock()

	// Reload under the lock; the first read raced with confirm-phase writers
	// and a stale struct would overwrite their transition.
	jobCard, err = s.registry.FindJobCard(ctx, jobCardID)
	if err != nil {
		return nil, err
	}
	if jobCard == nil {
		return &Decision{Success: false, Action: ActionNotFound, Message: "Job card not found."}, nil
	}

	previous := jobCard.Status
	now := time.Now()
	jobCard.Status = model.StatusClosed
	jobCard.VehicleExitTime = &now
	if err := s.registry.SaveJobCard(ctx, jobCard); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Job %s force closed.", jobCard.JobNumber)
	s.appendTransitionLog(ctx, &model.GateLog{
		VehicleNumber:  vehicleNumber,
		EventType:      model.EventJobClosed,
		JobNumber:      jobCard.JobNumber,
		PreviousStatus: string(previous),
		NewStatus:      string(model.StatusClosed),
		Message:        message,
		HasJobCard:     true,
		ActionTaken:    true,
		VehicleID:      jobCard.VehicleID,
		JobCardID:      jobCard.ID,
	})

	s.broadcast(NotifyJobClosed, JobEventPayload{
		VehicleNumber: vehicleNumber,
		JobCardID:     jobCard.ID,
		JobNumber:     jobCard.JobNumber,
		Message:       message,
	})
	s.broadcastStatusChange(jobCard, vehicleNumber, previous)
	s.dispatchJobClosed(jobCard.ID)

	return &Decision{
		Success: true,
		Action:  ActionForceClosed,
		Message: fmt.Sprintf("Job %s has been closed.", jobCard.JobNumber),
		JobCard: jobCard,
	}, nil
}

// appendTransitionLog records a confirm-phase ledger entry. The status write
// already committed, so an append failure must not undo the decision; it is
// logged and swallowed.
func (s *Service) appendTransitionLog(ctx context.Context, entry *model.GateLog) {
	if err := s.ledger.AppendGateLog(ctx, entry); err != nil {
		log.Printf("gate: failed to append %s log for %s: %v", entry.EventType, entry.VehicleNumber, err)
	}
}

func (s *Service) broadcastStatusChange(job *model.JobCard, vehicleNumber string, previous model.JobStatus) {
	s.broadcast(NotifyJobStatusChanged, StatusChangedPayload{
		JobCardID:      job.ID,
		JobNumber:      job.JobNumber,
		VehicleNumber:  vehicleNumber,
		PreviousStatus: string(previous),
		NewStatus:      string(job.Status),
	})
}

func (s *Service) dispatchJobClosed(jobCardID string) {
	if s.pusher == nil {
		return
	}
	s.pusher.DispatchJobClosed(jobCardID)
}

func (s *Service) EmitJobStatusChanged(job *model.JobCard, vehicleNumber string, previous model.JobStatus) {
	s.broadcastStatusChange(job, vehicleNumber, previous)
}

func applyRefs(entry *model.GateLog, vehicle *model.Vehicle, job *model.JobCard) {
	if vehicle != nil {
		entry.VehicleID = vehicle.ID
	}
	if job != nil {
		entry.JobNumber = job.JobNumber
		entry.JobCardID = job.ID
	}
}

func applyCamera(entry *model.GateLog, camera *CameraContext) {
	if camera == nil {
		return
	}
	entry.CameraID = camera.CameraID
	entry.VehicleType = camera.VehicleType
	entry.ImageID = camera.ImageID
	entry.EventTime = camera.EventTime
}

func cameraID(camera *CameraContext) string {
	if camera == nil {
		return "-"
	}
	return camera.CameraID
}
