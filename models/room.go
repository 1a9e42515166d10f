package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RoomStatus is the housekeeping/occupancy state of a physical room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomReserved    RoomStatus = "reserved"
	RoomOccupied    RoomStatus = "occupied"
	RoomCleaning    RoomStatus = "cleaning"
	RoomDirty       RoomStatus = "dirty"
	RoomMaintenance RoomStatus = "maintenance"
	RoomOutOfOrder  RoomStatus = "out_of_order"
)

type Room struct {
	gorm.Model

	RoomNumber string     `json:"roomNumber" gorm:"column:room_number;uniqueIndex;type:varchar(50)"`
	Floor      string     `json:"floor" gorm:"type:varchar(10)"`
	RoomTypeID uint       `json:"roomTypeId" gorm:"column:room_type_id;index;not null"`
	Status     RoomStatus `json:"status" gorm:"column:status;type:varchar(20);default:available"`

	// CustomPrice overrides the room type's base price for this room only.
	CustomPrice *decimal.Decimal `json:"customPrice,omitempty" gorm:"column:custom_price;type:decimal(12,2)"`

	RoomType RoomType `json:"roomType,omitempty" gorm:"foreignKey:RoomTypeID"`
}
