package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/amitRaDev/GMS/internal/model"
)

func (s *gormStore) CreateImage(ctx context.Context, img *model.Image) error {
	if err := s.db.WithContext(ctx).Create(img).Error; err != nil {
		return fmt.Errorf("failed to store image for %q: %w", img.VehicleNumber, err)
	}
	return nil
}

func (s *gormStore) FindImage(ctx context.Context, id string) (*model.Image, error) {
	var img model.Image
	err := s.db.WithContext(ctx).First(&img, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find image %s: %w", id, err)
	}
	return &img, nil
}

func (s *gormStore) ImagesForVehicle(ctx context.Context, vehicleNumber string, limit int) ([]model.Image, error) {
	if limit <= 0 {
		limit = 10
	}
	var images []model.Image
	err := s.db.WithContext(ctx).
		Where("vehicle_number = ?", vehicleNumber).
		Order("created_at DESC").
		Limit(limit).
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images for %q: %w", vehicleNumber, err)
	}
	return images, nil
}
