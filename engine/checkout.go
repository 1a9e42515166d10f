package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"hotel-booking-engine/models"
)

const (
	PerNightRoomOverride = "room_custom_price"
	PerNightStoredNights = "booking_nightly_rates"
	PerNightStoredRate   = "booking_room_rate"
	PerNightFromTotal    = "total_over_nights"
)

type CheckoutInput struct {
	Booking models.Booking
	// Room is the live room row; its custom price wins over the stored rate.
	Room *models.Room
	// Nightly is the breakdown recorded at booking time, complimentary nights already zeroed.
	Nightly []NightlyPrice
	Now     time.Time
	// LatePenalty is entered by the operator and only charged on a late checkout.
	LatePenalty *decimal.Decimal
	Settings    Settings
}

// Charges is the final invoice of a stay.
type Charges struct {
	BookingID           uint      `json:"bookingId"`
	PricePerNight       Money     `json:"pricePerNight"`
	PricePerNightSource string    `json:"pricePerNightSource"`
	Mode                PriceMode `json:"priceMode"`
	Nights              int       `json:"nights"`
	ComplimentaryNights int       `json:"complimentaryNights"`
	PaidNights          int       `json:"paidNights"`

	RoomCharges    Money `json:"roomCharges"`
	ServiceTax     Money `json:"serviceTax"`
	TourismTax     Money `json:"tourismTax"`
	ExtraBedCharge Money `json:"extraBedCharge"`
	Discount       Money `json:"discountAmount"`
	LatePenalty    Money `json:"lateCheckoutPenalty"`
	Subtotal       Money `json:"subtotal"`

	DepositHeld   Money `json:"depositHeld"`
	DepositRefund Money `json:"depositRefund"`
	// GrandTotal is Subtotal minus DepositRefund; negative means money goes back to the guest.
	GrandTotal Money `json:"grandTotal"`
	RefundDue  bool  `json:"refundDue"`

	IsLate  bool      `json:"isLateCheckout"`
	IsEarly bool      `json:"isEarlyCheckout"`
	At      time.Time `json:"checkedOutAt"`
}

// FinalizeCheckout settles a booking at time Now. Charges always cover the
// booked nights; shortening a stay is a separate modification.
func FinalizeCheckout(in CheckoutInput) (Charges, error) {
	b := in.Booking
	cfg := in.Settings
	cur := b.Currency
	if cur == "" {
		cur = cfg.Currency
	}
	if in.Now.IsZero() {
		return Charges{}, invalid("now", "checkout time is required")
	}
	nights := b.Nights
	if nights <= 0 {
		nights = NightsBetween(b.CheckInDate, b.CheckOutDate)
	}
	if nights <= 0 {
		return Charges{}, invalid("nights", "booking %d has no nights to settle", b.ID)
	}
	mode, err := ParsePriceMode(b.PriceMode)
	if err != nil {
		return Charges{}, err
	}

	comp := b.ComplimentaryNights
	if comp < 0 {
		comp = 0
	}
	if comp > nights {
		comp = nights
	}

	var perNight decimal.Decimal
	var source string
	var nightly []decimal.Decimal
	tourism, extra, discount := b.TourismTax, b.ExtraBedCharge, b.DiscountAmount
	switch {
	case in.Room != nil && in.Room.CustomPrice != nil && in.Room.CustomPrice.IsPositive():
		// A room's custom price is a base price and never includes tax.
		perNight, source, mode = *in.Room.CustomPrice, PerNightRoomOverride, Exclusive
	case len(in.Nightly) == nights:
		source = PerNightStoredNights
		comp = 0
		sum := decimal.Zero
		for _, n := range in.Nightly {
			if n.Complimentary {
				comp++
				continue
			}
			nightly = append(nightly, n.Price)
			sum = sum.Add(n.Price)
		}
		if len(nightly) > 0 {
			perNight = sum.Div(decimal.NewFromInt(int64(len(nightly))))
		}
	case b.RoomRate.IsPositive():
		perNight, source = b.RoomRate, PerNightStoredRate
	default:
		// A total is a final figure: tax and extras are already inside it.
		perNight, source = b.TotalAmount.Div(decimal.NewFromInt(int64(nights))), PerNightFromTotal
		mode = Inclusive
		tourism, extra, discount = decimal.Zero, decimal.Zero, decimal.Zero
	}

	paid := nights - comp
	if source != PerNightStoredNights {
		nightly = make([]decimal.Decimal, paid)
		for i := range nightly {
			nightly[i] = perNight
		}
	}

	pre, err := PriceBooking(PriceInput{
		Nightly:        nightly,
		Mode:           mode,
		TaxRate:        cfg.ServiceTaxRate,
		TourismTax:     tourism,
		ExtraBedCharge: extra,
		Currency:       cur,
	})
	if err != nil {
		return Charges{}, err
	}
	if discount.GreaterThan(pre.Total.Amount) {
		discount = pre.Total.Amount
	}
	q := pre
	if discount.IsPositive() {
		q.Discount = NewMoney(Round2(discount), cur)
		q.Total = NewMoney(pre.Total.Amount.Sub(Round2(discount)), cur)
	}

	loc := cfg.location()
	local := in.Now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	due := DateOf(b.CheckOutDate)
	deadline := time.Date(local.Year(), local.Month(), local.Day(), cfg.CheckoutHour, cfg.CheckoutMinute, 0, 0, loc)
	late := today.Equal(due) && local.After(deadline)
	early := today.Before(due)

	penalty := decimal.Zero
	if late && in.LatePenalty != nil {
		if in.LatePenalty.IsNegative() {
			return Charges{}, invalid("late_checkout_penalty", "must not be negative")
		}
		penalty = Round2(*in.LatePenalty)
	}

	held := decimal.Zero
	if b.DepositPaid {
		held = Round2(b.DepositAmount)
	}
	refund := held
	if late {
		refund = decimal.Zero
	}

	subtotal := q.Total.Amount.Add(penalty)
	grand := subtotal.Sub(refund)
	return Charges{
		BookingID:           b.ID,
		PricePerNight:       NewMoney(Round2(perNight), cur),
		PricePerNightSource: source,
		Mode:                mode,
		Nights:              nights,
		ComplimentaryNights: comp,
		PaidNights:          paid,
		RoomCharges:         q.Subtotal,
		ServiceTax:          q.Tax,
		TourismTax:          q.TourismTax,
		ExtraBedCharge:      q.ExtraBedCharge,
		Discount:            q.Discount,
		LatePenalty:         NewMoney(penalty, cur),
		Subtotal:            NewMoney(subtotal, cur),
		DepositHeld:         NewMoney(held, cur),
		DepositRefund:       NewMoney(refund, cur),
		GrandTotal:          NewMoney(grand, cur),
		RefundDue:           grand.IsNegative(),
		IsLate:              late,
		IsEarly:             early,
		At:                  in.Now,
	}, nil
}
