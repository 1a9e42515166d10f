package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/models"
)

type RateService struct {
	DB       *gorm.DB
	Settings *SettingsService
	Now      func() time.Time
}

func NewRateService(db *gorm.DB, settings *SettingsService) *RateService {
	return &RateService{DB: db, Settings: settings, Now: time.Now}
}

// RateQuery asks for nightly prices. RoomID is optional; when set its custom
// price replaces the room type's base price.
type RateQuery struct {
	RoomTypeID uint
	RoomID     uint
	CheckIn    time.Time
	CheckOut   time.Time
	RateCode   string
}

func (s *RateService) ListPlans(ctx context.Context, activeOnly bool) ([]models.RatePlan, error) {
	var plans []models.RatePlan
	q := s.DB.WithContext(ctx).Order("priority DESC, name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list rate plans: %w", err)
	}
	return plans, nil
}

func (s *RateService) CreatePlan(ctx context.Context, p *models.RatePlan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create rate plan: %w", err)
	}
	return nil
}

func (s *RateService) UpdatePlan(ctx context.Context, id uint, p *models.RatePlan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	var existing models.RatePlan
	if err := s.DB.WithContext(ctx).First(&existing, id).Error; err != nil {
		return notFound("rate plan", id, err)
	}
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	if err := s.DB.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to update rate plan %d: %w", id, err)
	}
	return nil
}

// DeletePlan deactivates the plan; its room rates stay for past bookings.
func (s *RateService) DeletePlan(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Model(&models.RatePlan{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate rate plan %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rate plan %d: %w", id, engine.ErrNotFound)
	}
	return nil
}

func (s *RateService) ListRoomRates(ctx context.Context, planID, roomTypeID uint) ([]models.RoomRate, error) {
	var rates []models.RoomRate
	q := s.DB.WithContext(ctx).Order("rate_plan_id, room_type_id, effective_from")
	if planID != 0 {
		q = q.Where("rate_plan_id = ?", planID)
	}
	if roomTypeID != 0 {
		q = q.Where("room_type_id = ?", roomTypeID)
	}
	if err := q.Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to list room rates: %w", err)
	}
	return rates, nil
}

func (s *RateService) CreateRoomRate(ctx context.Context, r *models.RoomRate) error {
	if r.Price.IsNegative() {
		return &engine.ValidationError{Field: "price", Message: "must not be negative"}
	}
	if r.EffectiveFrom.IsZero() {
		return &engine.ValidationError{Field: "effectiveFrom", Message: "is required"}
	}
	r.EffectiveFrom = engine.DateOf(r.EffectiveFrom)
	if r.EffectiveTo != nil {
		to := engine.DateOf(*r.EffectiveTo)
		if to.Before(r.EffectiveFrom) {
			return &engine.ValidationError{Field: "effectiveTo", Message: "must not precede effectiveFrom"}
		}
		r.EffectiveTo = &to
	}
	var plan models.RatePlan
	if err := s.DB.WithContext(ctx).First(&plan, r.RatePlanID).Error; err != nil {
		return notFound("rate plan", r.RatePlanID, err)
	}
	var rt models.RoomType
	if err := s.DB.WithContext(ctx).First(&rt, r.RoomTypeID).Error; err != nil {
		return notFound("room type", r.RoomTypeID, err)
	}
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to create room rate: %w", err)
	}
	return nil
}

func (s *RateService) DeleteRoomRate(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.RoomRate{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete room rate %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room rate %d: %w", id, engine.ErrNotFound)
	}
	return nil
}

// ResolveRate returns the per-night plan and price for a stay without booking it.
func (s *RateService) ResolveRate(ctx context.Context, q RateQuery) ([]engine.NightlyPrice, error) {
	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var base decimal.Decimal
	roomTypeID := q.RoomTypeID
	if q.RoomID != 0 {
		var room models.Room
		if err := db.Preload("RoomType").First(&room, q.RoomID).Error; err != nil {
			return nil, notFound("room", q.RoomID, err)
		}
		if roomTypeID != 0 && roomTypeID != room.RoomTypeID {
			return nil, &engine.ValidationError{Field: "room_type_id", Message: "does not match the room"}
		}
		roomTypeID = room.RoomTypeID
		base = basePrice(room, room.RoomType)
	} else {
		var rt models.RoomType
		if err := db.First(&rt, roomTypeID).Error; err != nil {
			return nil, notFound("room type", roomTypeID, err)
		}
		base = rt.BasePrice
	}

	plans, rates, err := loadRateInputs(db, roomTypeID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	nightly, err := engine.ResolveRates(engine.RateRequest{
		RoomTypeID: roomTypeID,
		CheckIn:    q.CheckIn,
		CheckOut:   q.CheckOut,
		RateCode:   q.RateCode,
		BookedOn:   cfg.Today(now),
		Today:      cfg.Today(now),
	}, plans, rates, base, cfg)
	if err != nil {
		return nil, err
	}
	warnClamped(nightly)
	return nightly, nil
}

func loadRateInputs(db *gorm.DB, roomTypeID uint) ([]models.RatePlan, []models.RoomRate, error) {
	var plans []models.RatePlan
	if err := db.Order("id").Find(&plans).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load rate plans: %w", err)
	}
	var rates []models.RoomRate
	if err := db.Where("room_type_id = ?", roomTypeID).Order("id").Find(&rates).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load room rates: %w", err)
	}
	return plans, rates, nil
}

func basePrice(room models.Room, rt models.RoomType) decimal.Decimal {
	if room.CustomPrice != nil && room.CustomPrice.IsPositive() {
		return *room.CustomPrice
	}
	return rt.BasePrice
}

func warnClamped(nightly []engine.NightlyPrice) []string {
	var warnings []string
	for _, n := range nightly {
		if n.Clamped {
			w := fmt.Sprintf("rate plan %s priced %s below zero; clamped to 0", n.RateCode, engine.FormatDate(n.Date))
			log.Printf("⚠️  %s", w)
			warnings = append(warnings, w)
		}
	}
	return warnings
}

var (
	planTypes       = map[string]bool{models.PlanStandard: true, models.PlanSeasonal: true, models.PlanCorporate: true, models.PlanPackage: true, models.PlanPromotional: true}
	adjustmentTypes = map[string]bool{models.AdjustPercentage: true, models.AdjustFixed: true, models.AdjustOverride: true}
)

func validatePlan(p *models.RatePlan) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	if p.Code == "" || p.Name == "" {
		return &engine.ValidationError{Field: "code", Message: "code and name are required"}
	}
	if p.Code == engine.BaseRateCode {
		return &engine.ValidationError{Field: "code", Message: "BASE is reserved"}
	}
	if p.PlanType == "" {
		p.PlanType = models.PlanStandard
	}
	if !planTypes[p.PlanType] {
		return &engine.ValidationError{Field: "planType", Message: fmt.Sprintf("unknown plan type %q", p.PlanType)}
	}
	if p.AdjustmentType == "" {
		p.AdjustmentType = models.AdjustPercentage
	}
	if !adjustmentTypes[p.AdjustmentType] {
		return &engine.ValidationError{Field: "adjustmentType", Message: fmt.Sprintf("unknown adjustment type %q", p.AdjustmentType)}
	}
	if p.MinNights < 0 || p.MinAdvanceBooking < 0 {
		return &engine.ValidationError{Field: "minNights", Message: "minimums must not be negative"}
	}
	if p.MaxNights != nil && *p.MaxNights < p.MinNights {
		return &engine.ValidationError{Field: "maxNights", Message: "must be at least minNights"}
	}
	if p.MaxAdvanceBooking != nil && *p.MaxAdvanceBooking < p.MinAdvanceBooking {
		return &engine.ValidationError{Field: "maxAdvanceBooking", Message: "must be at least minAdvanceBooking"}
	}
	if p.ValidFrom != nil && p.ValidTo != nil && p.ValidTo.Before(*p.ValidFrom) {
		return &engine.ValidationError{Field: "validTo", Message: "must not precede validFrom"}
	}
	if len(p.BlackoutDates) > 0 {
		var dates []string
		if err := json.Unmarshal(p.BlackoutDates, &dates); err != nil {
			return &engine.ValidationError{Field: "blackoutDates", Message: "must be an array of YYYY-MM-DD strings"}
		}
		for _, d := range dates {
			if _, err := time.Parse(engine.DateLayout, d); err != nil {
				return &engine.ValidationError{Field: "blackoutDates", Message: fmt.Sprintf("bad date %q", d)}
			}
		}
	}
	return nil
}
