package events

import (
	"hotel-booking-engine/models"
)

const (
	BookingCreated    = "booking.created"
	BookingCancelled  = "booking.cancelled"
	BookingNoShow     = "booking.no_show"
	BookingCheckedIn  = "booking.checked_in"
	BookingCheckedOut = "booking.checked_out"
)

// BookingEvent is the message body for every booking.* routing key.
type BookingEvent struct {
	Type          string `json:"type"`
	BookingID     uint   `json:"bookingId"`
	BookingNumber string `json:"bookingNumber"`
	RoomID        uint   `json:"roomId"`
	GuestID       uint   `json:"guestId"`
	CheckIn       string `json:"checkIn"`
	CheckOut      string `json:"checkOut"`
	Status        string `json:"status"`
	TotalAmount   string `json:"totalAmount"`
	Currency      string `json:"currency"`
	Actor         string `json:"actor,omitempty"`
}

func NewBookingEvent(eventType string, b models.Booking, actor string) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		RoomID:        b.RoomID,
		GuestID:       b.GuestID,
		CheckIn:       b.CheckInDate.Format("2006-01-02"),
		CheckOut:      b.CheckOutDate.Format("2006-01-02"),
		Status:        string(b.Status),
		TotalAmount:   b.TotalAmount.StringFixed(2),
		Currency:      b.Currency,
		Actor:         actor,
	}
}
