package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is the identity record for one registration number.
type Vehicle struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	VehicleNumber string    `gorm:"uniqueIndex;size:20;not null" json:"vehicleNumber"`
	Make          string    `gorm:"size:50" json:"make,omitempty"`
	Model         string    `gorm:"size:50" json:"model,omitempty"`
	Year          int       `json:"year,omitempty"`
	Color         string    `gorm:"size:30" json:"color,omitempty"`
	OwnerName     string    `gorm:"size:100" json:"ownerName,omitempty"`
	OwnerPhone    string    `gorm:"size:15" json:"ownerPhone,omitempty"`
	OwnerEmail    string    `gorm:"size:100" json:"ownerEmail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Associations
	JobCards []JobCard `gorm:"foreignKey:VehicleID" json:"jobCards,omitempty"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
