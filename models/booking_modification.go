package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ModCreated         = "created"
	ModCreditsApplied  = "credits_applied"
	ModCheckedIn       = "checked_in"
	ModCancelled       = "cancelled"
	ModNoShow          = "no_show"
	ModStayShortened   = "stay_shortened"
	ModCheckedOut      = "checked_out"
)

// BookingModification is the audit trail for changes made to a booking after creation.
type BookingModification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BookingID uint           `gorm:"column:booking_id;index;not null" json:"bookingId"`
	Action    string         `gorm:"column:action;size:30;not null" json:"action"`
	Actor     string         `gorm:"column:actor;size:100" json:"actor,omitempty"`
	Changes   datatypes.JSON `gorm:"column:changes" json:"changes,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
