package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

// CreditService manages complimentary night credits. Consumption happens
// inside BookingService transactions.
type CreditService struct {
	DB *gorm.DB
}

func NewCreditService(db *gorm.DB) *CreditService {
	return &CreditService{DB: db}
}

func (s *CreditService) Balance(ctx context.Context, guestID uint) ([]models.ComplimentaryCredit, error) {
	var credits []models.ComplimentaryCredit
	err := s.DB.WithContext(ctx).Where("guest_id = ?", guestID).Order("room_type_id").Find(&credits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load credits for guest %d: %w", guestID, err)
	}
	return credits, nil
}

// Grant adds nights to the guest's credit row for a room type, creating it if needed.
func (s *CreditService) Grant(ctx context.Context, guestID, roomTypeID uint, nights int, notes string) (models.ComplimentaryCredit, error) {
	if nights <= 0 {
		return models.ComplimentaryCredit{}, &engine.ValidationError{Field: "nights", Message: "must be positive"}
	}
	var out models.ComplimentaryCredit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guest models.Guest
		if err := tx.First(&guest, guestID).Error; err != nil {
			return notFound("guest", guestID, err)
		}
		var rt models.RoomType
		if err := tx.First(&rt, roomTypeID).Error; err != nil {
			return notFound("room type", roomTypeID, err)
		}
		c, err := adjustCredit(tx, guestID, roomTypeID, nights, notes)
		if err != nil {
			return err
		}
		out = *c
		return nil
	})
	return out, err
}

// lockCredit returns the locked credit row, or nil when the guest has none
// for the room type.
func lockCredit(tx *gorm.DB, guestID, roomTypeID uint) (*models.ComplimentaryCredit, error) {
	var c models.ComplimentaryCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("guest_id = ? AND room_type_id = ?", guestID, roomTypeID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock credits: %w", err)
	}
	return &c, nil
}

// adjustCredit adds delta (negative to consume) under the row lock. The
// balance never goes below zero.
func adjustCredit(tx *gorm.DB, guestID, roomTypeID uint, delta int, notes string) (*models.ComplimentaryCredit, error) {
	c, err := lockCredit(tx, guestID, roomTypeID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if delta < 0 {
			return nil, &engine.InsufficientCreditsError{Selected: -delta, Available: 0}
		}
		c = &models.ComplimentaryCredit{GuestID: guestID, RoomTypeID: roomTypeID, NightsAvailable: delta, Notes: notes}
		if err := tx.Create(c).Error; err != nil {
			return nil, fmt.Errorf("failed to create credits: %w", err)
		}
		return c, nil
	}
	next := c.NightsAvailable + delta
	if next < 0 {
		return nil, &engine.InsufficientCreditsError{Selected: -delta, Available: c.NightsAvailable}
	}
	updates := map[string]interface{}{"nights_available": next}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := tx.Model(c).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update credits: %w", err)
	}
	c.NightsAvailable = next
	if notes != "" {
		c.Notes = notes
	}
	return c, nil
}
