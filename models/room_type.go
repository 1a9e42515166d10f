package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RoomType is immutable reference data: base nightly price and occupancy limits.
type RoomType struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Code         string          `json:"code" gorm:"uniqueIndex;type:varchar(20)"`
	Name         string          `json:"name" gorm:"type:varchar(100)"`
	Description  string          `json:"description" gorm:"type:text"`
	BasePrice    decimal.Decimal `json:"basePrice" gorm:"column:base_price;type:decimal(12,2);not null"`
	MinOccupancy int             `json:"minOccupancy" gorm:"column:min_occupancy;default:1"`
	MaxOccupancy int             `json:"maxOccupancy" gorm:"column:max_occupancy;default:2"`

	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
