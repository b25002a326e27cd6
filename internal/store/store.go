package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/internal/model"
)

// Store defines the interface for all database operations. The registry part
// performs no business validation; transition legality lives in the gate
// package.
type Store interface {
	DB() *gorm.DB

	// Vehicle/Job registry
	FindVehicleByNumber(ctx context.Context, vehicleNumber string) (*model.Vehicle, error)
	FindVehicleByID(ctx context.Context, id string) (*model.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error
	UpdateVehicle(ctx context.Context, id string, fields map[string]any) (*model.Vehicle, error)
	LatestJobCard(ctx context.Context, vehicleID string) (*model.JobCard, error)
	FindJobCard(ctx context.Context, id string) (*model.JobCard, error)
	CreateJobCard(ctx context.Context, job *model.JobCard) error
	SaveJobCard(ctx context.Context, job *model.JobCard) error

	// Ledger
	AppendGateLog(ctx context.Context, entry *model.GateLog) error
	ListGateLogs(ctx context.Context, q GateLogQuery) (*GateLogPage, error)
	GateStats(ctx context.Context, loc *time.Location) (GateStats, error)

	// Images
	CreateImage(ctx context.Context, img *model.Image) error
	FindImage(ctx context.Context, id string) (*model.Image, error)
	ImagesForVehicle(ctx context.Context, vehicleNumber string, limit int) ([]model.Image, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// FindVehicleByNumber looks up a vehicle by its normalized plate. A missing
// vehicle is not an error; it returns (nil, nil).
func (s *gormStore) FindVehicleByNumber(ctx context.Context, vehicleNumber string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := s.db.WithContext(ctx).Where("vehicle_number = ?", vehicleNumber).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle %q: %w", vehicleNumber, err)
	}
	return &vehicle, nil
}

func (s *gormStore) FindVehicleByID(ctx context.Context, id string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := s.db.WithContext(ctx).Preload("JobCards").First(&vehicle, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle %s: %w", id, err)
	}
	return &vehicle, nil
}

func (s *gormStore) CreateVehicle(ctx context.Context, vehicle *model.Vehicle) error {
	if err := s.db.WithContext(ctx).Create(vehicle).Error; err != nil {
		return fmt.Errorf("failed to create vehicle %q: %w", vehicle.VehicleNumber, err)
	}
	return nil
}

func (s *gormStore) UpdateVehicle(ctx context.Context, id string, fields map[string]any) (*model.Vehicle, error) {
	if err := s.db.WithContext(ctx).Model(&model.Vehicle{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update vehicle %s: %w", id, err)
	}
	return s.FindVehicleByID(ctx, id)
}

// LatestJobCard returns the most recently created job card for a vehicle.
// This ordering is the system-wide definition of the vehicle's "current job".
func (s *gormStore) LatestJobCard(ctx context.Context, vehicleID string) (*model.JobCard, error) {
	var job model.JobCard
	err := s.db.WithContext(ctx).
		Preload("Vehicle").
		Where("vehicle_id = ?", vehicleID).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest job card for vehicle %s: %w", vehicleID, err)
	}
	return &job, nil
}

func (s *gormStore) FindJobCard(ctx context.Context, id string) (*model.JobCard, error) {
	var job model.JobCard
	err := s.db.WithContext(ctx).Preload("Vehicle").First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job card %s: %w", id, err)
	}
	return &job, nil
}

// CreateJobCard persists a new job card, generating its job number and
// initializing the status to IDLE.
func (s *gormStore) CreateJobCard(ctx context.Context, job *model.JobCard) error {
	if job.JobNumber == "" {
		job.JobNumber = GenerateJobNumber(time.Now())
	}
	if job.Status == "" {
		job.Status = model.StatusIdle
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job card %s: %w", job.JobNumber, err)
	}
	return nil
}

func (s *gormStore) SaveJobCard(ctx context.Context, job *model.JobCard) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("failed to save job card %s: %w", job.JobNumber, err)
	}
	return nil
}

// jobSeq keeps job numbers generated within the same millisecond distinct.
var jobSeq atomic.Uint64

// GenerateJobNumber builds a human-legible, roughly monotonic job number from
// the creation timestamp plus a two character sequence tail. The tail keeps
// the unique index on job_number safe when several cards are created in the
// same millisecond.
func GenerateJobNumber(now time.Time) string {
	tail := strconv.FormatUint(jobSeq.Add(1)%1296, 36)
	if len(tail) < 2 {
		tail = "0" + tail
	}
	return "JC-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)+tail)
}
