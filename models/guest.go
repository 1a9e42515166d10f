package models

import (
	"time"
)

// Guest carries only the identity the booking engine needs; profile CRUD
// lives in the guest subsystem.
type Guest struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	FullName string `json:"fullName" gorm:"size:150"`
	Email    string `json:"email" gorm:"size:150;index"`
}

// ComplimentaryCredit counts unused free-night credits a guest holds for one room type.
type ComplimentaryCredit struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	GuestID         uint   `gorm:"column:guest_id;uniqueIndex:idx_credit_guest_room_type;not null" json:"guestId"`
	RoomTypeID      uint   `gorm:"column:room_type_id;uniqueIndex:idx_credit_guest_room_type;not null" json:"roomTypeId"`
	NightsAvailable int    `gorm:"column:nights_available;not null" json:"nightsAvailable"`
	Notes           string `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ComplimentaryCredit) TableName() string {
	return "guest_complimentary_credits"
}
