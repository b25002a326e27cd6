package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Camera is a registered ANPR detector identity.
type Camera struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CameraID    string    `gorm:"uniqueIndex;size:50;not null" json:"cameraId"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Location    string    `gorm:"size:255" json:"location,omitempty"`
	GateType    string    `gorm:"size:10;default:BOTH" json:"gateType"` // IN, OUT or BOTH
	IsActive    bool      `json:"isActive"`
	APIToken    string    `gorm:"size:255" json:"apiToken,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (c *Camera) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
