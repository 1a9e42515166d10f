package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AnchorToday       = "today"
	AnchorBookingDate = "booking_date"
)

// Settings is the hotel-wide configuration the engine reads. It is passed
// explicitly to every operation that needs it.
type Settings struct {
	Currency           string
	ServiceTaxRate     decimal.Decimal // fraction, 0.10 = 10%
	TourismTaxPerNight decimal.Decimal
	ExtraBedCharge     decimal.Decimal // per bed per night
	DefaultDeposit     decimal.Decimal

	CheckoutHour   int
	CheckoutMinute int
	Location       *time.Location

	// AdvanceAnchor decides what "days in advance" is measured from.
	AdvanceAnchor         string
	AllowBaseRateFallback bool
}

func DefaultSettings() Settings {
	return Settings{
		Currency:              "USD",
		ServiceTaxRate:        decimal.Zero,
		TourismTaxPerNight:    decimal.Zero,
		ExtraBedCharge:        decimal.Zero,
		DefaultDeposit:        decimal.Zero,
		CheckoutHour:          11,
		Location:              time.UTC,
		AdvanceAnchor:         AnchorToday,
		AllowBaseRateFallback: true,
	}
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Today is the hotel's calendar date at instant now.
func (s Settings) Today(now time.Time) time.Time {
	return DateOf(now.In(s.location()))
}
