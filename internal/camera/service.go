package camera

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/internal/gate"
	"github.com/amitRaDev/GMS/internal/model"
	"github.com/amitRaDev/GMS/internal/plate"
	"github.com/amitRaDev/GMS/internal/store"
)

var (
	// ErrUnauthorized means the camera is registered with a token and the
	// request token did not match.
	ErrUnauthorized = errors.New("invalid camera token")
	// ErrInactiveCamera means the camera is registered but disabled.
	ErrInactiveCamera = errors.New("camera is inactive")
)

// EventInput is the raw detection payload an ANPR camera sends.
type EventInput struct {
	CameraID           string `json:"cameraId"`
	RegistrationNumber string `json:"registrationNumber" binding:"required"`
	MovementType       string `json:"movementType" binding:"required"` // IN or OUT
	Time               string `json:"time"`                            // RFC3339
	VehicleType        string `json:"vehicleType"`
	Image              string `json:"image"` // base64 data URL
}

// EventResult is the gate decision plus camera bookkeeping.
type EventResult struct {
	gate.Decision
	CameraID  string `json:"cameraId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	ImageID   string `json:"imageId,omitempty"`
}

// Service turns camera payloads into gate events: it authenticates the
// camera, persists the captured frame and forwards the detection.
type Service struct {
	store store.Store
	gate  *gate.Service
}

func NewService(s store.Store, g *gate.Service) *Service {
	return &Service{store: s, gate: g}
}

// ProcessEvent handles one camera detection end to end. Request phase only;
// job state is never mutated here.
func (s *Service) ProcessEvent(ctx context.Context, in EventInput, token string) (*EventResult, error) {
	log.Printf("camera event: %s - %s - %s", in.CameraID, in.RegistrationNumber, in.MovementType)

	if err := s.authorize(ctx, in.CameraID, token); err != nil {
		return nil, err
	}

	eventTime := s.parseEventTime(in.Time)

	var imageID string
	if in.Image != "" {
		img := &model.Image{
			Data:          in.Image,
			VehicleNumber: plate.Normalize(in.RegistrationNumber),
			CameraID:      in.CameraID,
			EventType:     in.MovementType,
			CapturedAt:    eventTime,
		}
		if err := s.store.CreateImage(ctx, img); err != nil {
			// The detection itself still matters; continue without the frame.
			log.Printf("camera: failed to store image from %s: %v", in.CameraID, err)
		} else {
			imageID = img.ID
		}
	}

	direction := model.DirectionOut
	if in.MovementType == string(model.DirectionIn) {
		direction = model.DirectionIn
	}

	decision, err := s.gate.HandleGateEvent(ctx, gate.Event{
		VehicleNumber: in.RegistrationNumber,
		Direction:     direction,
	}, &gate.CameraContext{
		CameraID:    in.CameraID,
		VehicleType: in.VehicleType,
		ImageID:     imageID,
		Image:       in.Image,
		EventTime:   eventTime,
	})
	if err != nil {
		return nil, err
	}

	return &EventResult{
		Decision:  *decision,
		CameraID:  in.CameraID,
		Timestamp: in.Time,
		ImageID:   imageID,
	}, nil
}

// BulkResult tallies a batch submission.
type BulkResult struct {
	Success   bool             `json:"success"`
	Total     int              `json:"total"`
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// BulkItemResult is the per-item outcome of a batch submission.
type BulkItemResult struct {
	Success       bool         `json:"success"`
	VehicleNumber string       `json:"vehicleNumber"`
	Error         string       `json:"error,omitempty"`
	Result        *EventResult `json:"result,omitempty"`
}

// ProcessBulk handles an ordered batch, isolating per-item failures so one
// malformed event cannot abort the rest.
func (s *Service) ProcessBulk(ctx context.Context, events []EventInput, token string) *BulkResult {
	out := &BulkResult{Success: true, Total: len(events)}
	for _, in := range events {
		result, err := s.ProcessEvent(ctx, in, token)
		if err != nil {
			out.Failed++
			out.Results = append(out.Results, BulkItemResult{
				Success:       false,
				VehicleNumber: in.RegistrationNumber,
				Error:         err.Error(),
			})
			continue
		}
		out.Processed++
		out.Results = append(out.Results, BulkItemResult{
			Success:       true,
			VehicleNumber: in.RegistrationNumber,
			Result:        result,
		})
	}
	return out
}

// authorize checks the camera registration. Unregistered camera IDs pass
// through (the ID is then metadata only); registered cameras must be active
// and, when a token is set, present it.
func (s *Service) authorize(ctx context.Context, cameraID, token string) error {
	if cameraID == "" {
		return nil
	}

	var cam model.Camera
	err := s.store.DB().WithContext(ctx).Where("camera_id = ?", cameraID).First(&cam).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up camera %s: %w", cameraID, err)
	}

	if !cam.IsActive {
		return ErrInactiveCamera
	}
	if cam.APIToken != "" && cam.APIToken != token {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) parseEventTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Printf("camera: could not parse event time %q: %v", raw, err)
		return nil
	}
	return &parsed
}

// GenerateToken creates a camera API token.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate camera token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
