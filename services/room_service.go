package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

type RoomService struct {
	DB *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{DB: db}
}

func (s *RoomService) Create(ctx context.Context, room *models.Room) error {
	room.RoomNumber = strings.TrimSpace(room.RoomNumber)
	if room.RoomNumber == "" {
		return &engine.ValidationError{Field: "roomNumber", Message: "is required"}
	}
	if room.CustomPrice != nil && room.CustomPrice.IsNegative() {
		return &engine.ValidationError{Field: "customPrice", Message: "must not be negative"}
	}
	if room.Status == "" {
		room.Status = models.RoomAvailable
	}
	if !engine.ValidRoomStatus(room.Status) {
		return &engine.ValidationError{Field: "status", Message: fmt.Sprintf("unknown room status %q", room.Status)}
	}
	var rt models.RoomType
	if err := s.DB.WithContext(ctx).First(&rt, room.RoomTypeID).Error; err != nil {
		return notFound("room type", room.RoomTypeID, err)
	}
	room.RoomType = models.RoomType{}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(room).Error; err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	room.RoomType = rt
	return nil
}

func (s *RoomService) GetAll(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.WithContext(ctx).Preload("RoomType").Order("room_number").Find(&rooms).Error
	return rooms, err
}

func (s *RoomService) GetByID(ctx context.Context, id uint) (models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).Preload("RoomType").First(&room, id).Error; err != nil {
		return room, notFound("room", id, err)
	}
	return room, nil
}

// UpdateStatus moves a room through the housekeeping state machine. A room
// with a checked-in guest cannot be released to available.
func (s *RoomService) UpdateStatus(ctx context.Context, id uint, to models.RoomStatus, actor string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockRoom(tx, id)
		if err != nil {
			return err
		}
		room = *locked

		if to == models.RoomAvailable {
			var inHouse int64
			if err := tx.Model(&models.Booking{}).
				Where("room_id = ? AND status = ?", id, models.BookingCheckedIn).
				Count(&inHouse).Error; err != nil {
				return fmt.Errorf("failed to check in-house bookings: %w", err)
			}
			if inHouse > 0 {
				return fmt.Errorf("room %s has a checked-in guest: %w", room.RoomNumber, engine.ErrIllegalTransition)
			}
		}

		next, err := engine.TransitionRoom(room.Status, to)
		if err != nil {
			return err
		}
		if err := tx.Model(&room).Update("status", next).Error; err != nil {
			return fmt.Errorf("failed to update room %d status: %w", id, err)
		}
		log.Printf("room %s: %s -> %s by %q", room.RoomNumber, room.Status, next, actor)
		room.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// lockRoom takes the row lock that serializes all writers of a room's calendar.
func lockRoom(tx *gorm.DB, id uint) (*models.Room, error) {
	var room models.Room
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, id).Error; err != nil {
		return nil, notFound("room", id, err)
	}
	return &room, nil
}
