package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCheckedIn  BookingStatus = "checked_in"
	BookingCheckedOut BookingStatus = "checked_out"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// Active reports whether the booking still holds its dates on the room calendar.
func (s BookingStatus) Active() bool {
	return s != BookingCancelled && s != BookingNoShow
}

// InactiveBookingStatuses are excluded from availability checks.
var InactiveBookingStatuses = []string{string(BookingCancelled), string(BookingNoShow)}

const (
	PostNormalStay = "normal_stay"
	PostSameDay    = "same_day"
)

const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BookingNumber string `gorm:"column:booking_number;uniqueIndex;size:40" json:"bookingNumber"`
	RoomID        uint   `gorm:"column:room_id;index:idx_booking_room_dates;not null" json:"roomId"`
	GuestID       uint   `gorm:"column:guest_id;index;not null" json:"guestId"`

	// [CheckInDate, CheckOutDate) is half-open: the checkout day is not a stay night.
	CheckInDate  time.Time `gorm:"column:check_in_date;type:date;index:idx_booking_room_dates;not null" json:"checkInDate"`
	CheckOutDate time.Time `gorm:"column:check_out_date;type:date;index:idx_booking_room_dates;not null" json:"checkOutDate"`
	Nights       int       `gorm:"column:nights" json:"nights"`
	Adults       int       `gorm:"column:adults" json:"adults"`
	Children     int       `gorm:"column:children" json:"children"`
	PostType     string    `gorm:"column:post_type;size:20;default:normal_stay" json:"postType"`

	Status        BookingStatus `gorm:"column:status;size:20;index" json:"status"`
	PaymentStatus string        `gorm:"column:payment_status;size:20" json:"paymentStatus"`
	RateCode      string        `gorm:"column:rate_code;size:30" json:"rateCode"`
	PriceMode     string        `gorm:"column:price_mode;size:12;not null" json:"priceMode"`
	Currency      string        `gorm:"column:currency;size:3" json:"currency"`

	// RoomRate is the first night's effective nightly price, kept for display.
	RoomRate       decimal.Decimal `gorm:"column:room_rate;type:decimal(12,2)" json:"roomRate"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2)" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:decimal(12,2)" json:"taxAmount"`
	TourismTax     decimal.Decimal `gorm:"column:tourism_tax;type:decimal(12,2)" json:"tourismTax"`
	ExtraBedCharge decimal.Decimal `gorm:"column:extra_bed_charge;type:decimal(12,2)" json:"extraBedCharge"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:decimal(12,2)" json:"discountAmount"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2)" json:"totalAmount"`
	PaidAmount     decimal.Decimal `gorm:"column:paid_amount;type:decimal(12,2)" json:"paidAmount"`

	// NightlyRates holds the resolved per-night breakdown (see engine.NightlyPrice).
	NightlyRates datatypes.JSON `gorm:"column:nightly_rates" json:"nightlyRates,omitempty"`

	DepositPaid   bool            `gorm:"column:deposit_paid" json:"depositPaid"`
	DepositAmount decimal.Decimal `gorm:"column:deposit_amount;type:decimal(12,2)" json:"depositAmount"`

	IsComplimentary     bool             `gorm:"column:is_complimentary" json:"isComplimentary"`
	ComplimentaryNights int              `gorm:"column:complimentary_nights" json:"complimentaryNights"`
	ComplimentaryDates  datatypes.JSON   `gorm:"column:complimentary_dates" json:"complimentaryDates,omitempty"`
	OriginalTotalAmount *decimal.Decimal `gorm:"column:original_total_amount;type:decimal(12,2)" json:"originalTotalAmount,omitempty"`

	LateCheckoutPenalty decimal.Decimal `gorm:"column:late_checkout_penalty;type:decimal(12,2)" json:"lateCheckoutPenalty"`
	DepositRefund       decimal.Decimal `gorm:"column:deposit_refund;type:decimal(12,2)" json:"depositRefund"`
	IsLateCheckout      bool            `gorm:"column:is_late_checkout" json:"isLateCheckout"`
	IsEarlyCheckout     bool            `gorm:"column:is_early_checkout" json:"isEarlyCheckout"`
	ActualCheckIn       *time.Time      `gorm:"column:actual_check_in" json:"actualCheckIn,omitempty"`
	ActualCheckOut      *time.Time      `gorm:"column:actual_check_out" json:"actualCheckOut,omitempty"`

	CreatedBy string `gorm:"column:created_by;size:100" json:"createdBy,omitempty"`
}

// TotalGuests is adults plus children.
func (b Booking) TotalGuests() int {
	return b.Adults + b.Children
}

// BalanceDue is total minus what has been paid.
func (b Booking) BalanceDue() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}
