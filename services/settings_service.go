package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

// Get returns the hotel settings row, or defaults when none has been saved yet.
func (s *SettingsService) Get(ctx context.Context) (models.HotelSetting, error) {
	var hotel models.HotelSetting
	err := s.DB.WithContext(ctx).Order("id").First(&hotel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultHotelSetting(), nil
	}
	if err != nil {
		return hotel, fmt.Errorf("failed to load hotel settings: %w", err)
	}
	return hotel, nil
}

// Update validates and upserts the single settings row.
func (s *SettingsService) Update(ctx context.Context, in models.HotelSetting) (models.HotelSetting, error) {
	if _, err := EngineSettings(in); err != nil {
		return in, err
	}
	var hotel models.HotelSetting
	err := s.DB.WithContext(ctx).Order("id").First(&hotel).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return in, fmt.Errorf("failed to load hotel settings: %w", err)
	}
	in.ID = hotel.ID
	in.CreatedAt = hotel.CreatedAt
	if err := s.DB.WithContext(ctx).Save(&in).Error; err != nil {
		return in, fmt.Errorf("failed to save hotel settings: %w", err)
	}
	return in, nil
}

// Engine loads the row and converts it to the engine's configuration value.
func (s *SettingsService) Engine(ctx context.Context) (engine.Settings, error) {
	hotel, err := s.Get(ctx)
	if err != nil {
		return engine.Settings{}, err
	}
	return EngineSettings(hotel)
}

func DefaultHotelSetting() models.HotelSetting {
	return models.HotelSetting{
		Name:          "Hotel",
		Currency:      "USD",
		CheckInTime:   "14:00",
		CheckOutTime:  "11:00",
		TimeZone:      "UTC",
		AdvanceAnchor: engine.AnchorToday,
	}
}

func EngineSettings(h models.HotelSetting) (engine.Settings, error) {
	cfg := engine.DefaultSettings()
	if c := strings.ToUpper(strings.TrimSpace(h.Currency)); c != "" {
		if len(c) != 3 {
			return cfg, &engine.ValidationError{Field: "currency", Message: "must be a 3-letter ISO code"}
		}
		cfg.Currency = c
	}
	for field, v := range map[string]decimal.Decimal{
		"serviceTaxRate":         h.ServiceTaxRate,
		"tourismTaxPerNight":     h.TourismTaxPerNight,
		"extraBedChargePerNight": h.ExtraBedChargePerNight,
		"defaultDeposit":         h.DefaultDeposit,
	} {
		if v.IsNegative() {
			return cfg, &engine.ValidationError{Field: field, Message: "must not be negative"}
		}
	}
	if h.ServiceTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return cfg, &engine.ValidationError{Field: "serviceTaxRate", Message: "is a fraction, e.g. 0.07 for 7%"}
	}
	cfg.ServiceTaxRate = h.ServiceTaxRate
	cfg.TourismTaxPerNight = h.TourismTaxPerNight
	cfg.ExtraBedCharge = h.ExtraBedChargePerNight
	cfg.DefaultDeposit = h.DefaultDeposit

	if co := strings.TrimSpace(h.CheckOutTime); co != "" {
		t, err := time.Parse("15:04", co)
		if err != nil {
			return cfg, &engine.ValidationError{Field: "checkOutTime", Message: "must be HH:MM"}
		}
		cfg.CheckoutHour, cfg.CheckoutMinute = t.Hour(), t.Minute()
	}
	if tz := strings.TrimSpace(h.TimeZone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, &engine.ValidationError{Field: "timeZone", Message: fmt.Sprintf("unknown time zone %q", tz)}
		}
		cfg.Location = loc
	}
	switch h.AdvanceAnchor {
	case "", engine.AnchorToday:
		cfg.AdvanceAnchor = engine.AnchorToday
	case engine.AnchorBookingDate:
		cfg.AdvanceAnchor = engine.AnchorBookingDate
	default:
		return cfg, &engine.ValidationError{Field: "advanceAnchor", Message: "must be today or booking_date"}
	}
	cfg.AllowBaseRateFallback = !h.DisableBaseRateFallback
	return cfg, nil
}
