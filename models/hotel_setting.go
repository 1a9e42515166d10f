package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HotelSetting is the single hotel-wide configuration row. Rates are fractions:
// 0.10 means 10%.
type HotelSetting struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:255" json:"name"`
	Address string `gorm:"type:text" json:"address"`
	Phone   string `gorm:"size:50" json:"phone"`
	Email   string `gorm:"size:150" json:"email"`

	Currency                string          `gorm:"size:3;default:USD" json:"currency"`
	ServiceTaxRate          decimal.Decimal `gorm:"column:service_tax_rate;type:decimal(6,4)" json:"serviceTaxRate"`
	TourismTaxPerNight      decimal.Decimal `gorm:"column:tourism_tax_per_night;type:decimal(12,2)" json:"tourismTaxPerNight"`
	ExtraBedChargePerNight  decimal.Decimal `gorm:"column:extra_bed_charge_per_night;type:decimal(12,2)" json:"extraBedChargePerNight"`
	DefaultDeposit          decimal.Decimal `gorm:"column:default_deposit;type:decimal(12,2)" json:"defaultDeposit"`
	CheckInTime             string          `gorm:"column:check_in_time;size:5;default:14:00" json:"checkInTime"`
	CheckOutTime            string          `gorm:"column:check_out_time;size:5;default:11:00" json:"checkOutTime"`
	TimeZone                string          `gorm:"column:time_zone;size:64;default:UTC" json:"timeZone"`
	AdvanceAnchor           string          `gorm:"column:advance_anchor;size:20;default:today" json:"advanceAnchor"`
	DisableBaseRateFallback bool            `gorm:"column:disable_base_rate_fallback" json:"disableBaseRateFallback"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
