package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

type RoomTypeService struct {
	DB *gorm.DB
}

func NewRoomTypeService(db *gorm.DB) *RoomTypeService {
	return &RoomTypeService{DB: db}
}

func (s *RoomTypeService) Create(ctx context.Context, rt *models.RoomType) error {
	rt.Code = strings.ToUpper(strings.TrimSpace(rt.Code))
	if rt.Code == "" || strings.TrimSpace(rt.Name) == "" {
		return &engine.ValidationError{Field: "code", Message: "code and name are required"}
	}
	if rt.BasePrice.IsNegative() {
		return &engine.ValidationError{Field: "basePrice", Message: "must not be negative"}
	}
	if rt.MinOccupancy <= 0 {
		rt.MinOccupancy = 1
	}
	if rt.MaxOccupancy < rt.MinOccupancy {
		return &engine.ValidationError{Field: "maxOccupancy", Message: "must be at least minOccupancy"}
	}
	if err := s.DB.WithContext(ctx).Create(rt).Error; err != nil {
		return fmt.Errorf("failed to create room type: %w", err)
	}
	return nil
}

func (s *RoomTypeService) GetAll(ctx context.Context) ([]models.RoomType, error) {
	var types []models.RoomType
	err := s.DB.WithContext(ctx).Order("id").Find(&types).Error
	return types, err
}

func (s *RoomTypeService) GetByID(ctx context.Context, id uint) (models.RoomType, error) {
	var rt models.RoomType
	if err := s.DB.WithContext(ctx).First(&rt, id).Error; err != nil {
		return rt, notFound("room type", id, err)
	}
	return rt, nil
}

func (s *RoomTypeService) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.RoomType{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete room type %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room type %d: %w", id, engine.ErrNotFound)
	}
	return nil
}
