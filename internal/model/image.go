package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image is a captured camera frame stored as an opaque base64 data URL.
type Image struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Data          string     `gorm:"type:text;not null" json:"data"`
	VehicleNumber string     `gorm:"index;size:50" json:"vehicleNumber,omitempty"`
	CameraID      string     `gorm:"size:50" json:"cameraId,omitempty"`
	EventType     string     `gorm:"size:20" json:"eventType,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
