package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobCard tracks one service visit of one vehicle. The "current" job for a
// vehicle is always the most recently created card, regardless of status.
type JobCard struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	JobNumber          string     `gorm:"uniqueIndex;size:20;not null" json:"jobNumber"`
	VehicleID          string     `gorm:"index;size:36;not null" json:"vehicleId"`
	Status             JobStatus  `gorm:"size:20;not null;default:IDLE" json:"status"`
	ServiceDescription string     `gorm:"type:text" json:"serviceDescription,omitempty"`
	EstimatedCost      float64    `json:"estimatedCost,omitempty"`
	FinalCost          float64    `json:"finalCost,omitempty"`
	VehicleEntryTime   *time.Time `json:"vehicleEntryTime,omitempty"`
	VehicleExitTime    *time.Time `json:"vehicleExitTime,omitempty"`
	TestDriveOutTime   *time.Time `json:"testDriveOutTime,omitempty"`
	TestDriveInTime    *time.Time `json:"testDriveInTime,omitempty"`
	Notes              string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt          time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	// Associations
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
}

func (j *JobCard) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
