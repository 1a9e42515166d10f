package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PlanStandard    = "standard"
	PlanSeasonal    = "seasonal"
	PlanCorporate   = "corporate"
	PlanPackage     = "package"
	PlanPromotional = "promotional"
)

const (
	AdjustPercentage = "percentage"
	AdjustFixed      = "fixed"
	AdjustOverride   = "override"
)

// RatePlan is a named pricing policy: validity window, weekday applicability
// and an adjustment rule applied to the base price.
type RatePlan struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Code        string `json:"code" gorm:"uniqueIndex;type:varchar(30);not null"`
	Description string `json:"description" gorm:"type:text"`

	PlanType        string          `json:"planType" gorm:"column:plan_type;type:varchar(20);default:standard"`
	AdjustmentType  string          `json:"adjustmentType" gorm:"column:adjustment_type;type:varchar(20);default:percentage"`
	AdjustmentValue decimal.Decimal `json:"adjustmentValue" gorm:"column:adjustment_value;type:decimal(12,4)"`

	ValidFrom *time.Time `json:"validFrom,omitempty" gorm:"column:valid_from;type:date"`
	ValidTo   *time.Time `json:"validTo,omitempty" gorm:"column:valid_to;type:date"`

	AppliesMonday    bool `json:"appliesMonday" gorm:"column:applies_monday"`
	AppliesTuesday   bool `json:"appliesTuesday" gorm:"column:applies_tuesday"`
	AppliesWednesday bool `json:"appliesWednesday" gorm:"column:applies_wednesday"`
	AppliesThursday  bool `json:"appliesThursday" gorm:"column:applies_thursday"`
	AppliesFriday    bool `json:"appliesFriday" gorm:"column:applies_friday"`
	AppliesSaturday  bool `json:"appliesSaturday" gorm:"column:applies_saturday"`
	AppliesSunday    bool `json:"appliesSunday" gorm:"column:applies_sunday"`

	MinNights         int  `json:"minNights" gorm:"column:min_nights;default:1"`
	MaxNights         *int `json:"maxNights,omitempty" gorm:"column:max_nights"`
	MinAdvanceBooking int  `json:"minAdvanceBooking" gorm:"column:min_advance_booking;default:0"`
	MaxAdvanceBooking *int `json:"maxAdvanceBooking,omitempty" gorm:"column:max_advance_booking"`

	// BlackoutDates is a JSON array of YYYY-MM-DD strings.
	BlackoutDates datatypes.JSON `json:"blackoutDates,omitempty" gorm:"column:blackout_dates"`

	Priority int  `json:"priority" gorm:"default:0"`
	IsActive bool `json:"isActive" gorm:"column:is_active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppliesOn reports the weekday flag for w.
func (p RatePlan) AppliesOn(w time.Weekday) bool {
	switch w {
	case time.Monday:
		return p.AppliesMonday
	case time.Tuesday:
		return p.AppliesTuesday
	case time.Wednesday:
		return p.AppliesWednesday
	case time.Thursday:
		return p.AppliesThursday
	case time.Friday:
		return p.AppliesFriday
	case time.Saturday:
		return p.AppliesSaturday
	default:
		return p.AppliesSunday
	}
}

// RoomRate is a plan's explicit, tax-exclusive nightly price for one room type.
type RoomRate struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RatePlanID    uint            `json:"ratePlanId" gorm:"column:rate_plan_id;index;not null"`
	RoomTypeID    uint            `json:"roomTypeId" gorm:"column:room_type_id;index;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	EffectiveFrom time.Time       `json:"effectiveFrom" gorm:"column:effective_from;type:date;not null"`
	EffectiveTo   *time.Time      `json:"effectiveTo,omitempty" gorm:"column:effective_to;type:date"`

	CreatedAt time.Time `json:"createdAt"`
}
