package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/events"
	"hotel-booking-engine/models"
)

func TestCreateBooking_WeekendRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bookings.CreateBooking(ctx, f.request(t, "2025-06-13", "2025-06-15"))
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, 2, b.Nights)
	assert.Equal(t, "WEEKEND", b.RateCode)
	assert.Equal(t, "172.50", b.RoomRate.StringFixed(2))
	assert.Equal(t, "345.00", b.Subtotal.StringFixed(2))
	assert.Equal(t, "34.50", b.TaxAmount.StringFixed(2))
	assert.Equal(t, "379.50", b.TotalAmount.StringFixed(2))
	assert.Equal(t, string(engine.Exclusive), b.PriceMode)
	assert.Equal(t, models.PaymentUnpaid, b.PaymentStatus)
	assert.Regexp(t, `^BK-20250601-[0-9A-F]{8}$`, b.BookingNumber)

	var nightly []engine.NightlyPrice
	require.NoError(t, json.Unmarshal(b.NightlyRates, &nightly))
	require.Len(t, nightly, 2)
	assert.Equal(t, "2025-06-14", engine.FormatDate(nightly[1].Date))

	assert.Equal(t, models.RoomReserved, f.roomStatus(t))
	assert.Equal(t, []string{events.BookingCreated}, f.pub.Keys())

	mods, err := f.bookings.ListModifications(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, models.ModCreated, mods[0].Action)
	assert.Equal(t, "frontdesk", mods[0].Actor)
}

func TestCreateBooking_ConflictAndBackToBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, f.request(t, "2025-06-10", "2025-06-13"))
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, f.request(t, "2025-06-12", "2025-06-15"))
	var ce *engine.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []uint{first.ID}, ce.BookingIDs)

	avail, err := f.bookings.CheckAvailability(ctx, f.room.ID, day(t, "2025-06-12"), day(t, "2025-06-15"))
	require.NoError(t, err)
	assert.False(t, avail.Available)

	_, err = f.bookings.CreateBooking(ctx, f.request(t, "2025-06-13", "2025-06-15"))
	require.NoError(t, err)

	var count int64
	f.db.Model(&models.Booking{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestCreateBooking_CalendarStaysDisjoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start := day(t, "2025-06-02")
	created := 0
	for i := 0; i < 30; i++ {
		in := start.AddDate(0, 0, (i*7)%23)
		out := in.AddDate(0, 0, 1+i%4)
		req := f.request(t, engine.FormatDate(in), engine.FormatDate(out))
		if _, err := f.bookings.CreateBooking(ctx, req); err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, engine.ErrConflict)
		}
	}
	assert.Greater(t, created, 0)

	pairs, err := f.bookings.AuditOverlaps(ctx)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestCreateBooking_ConcurrentOverlapHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reqs := []BookingRequest{
		f.request(t, "2025-06-13", "2025-06-15"),
		f.request(t, "2025-06-14", "2025-06-16"),
	}

	errs := make([]error, len(reqs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.CreateBooking(ctx, reqs[i])
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, engine.ErrConflict) || errors.Is(err, engine.ErrConcurrencyConflict), err.Error())
	}
	assert.Equal(t, 1, wins)

	overlaps, err := f.bookings.AuditOverlaps(ctx)
	require.NoError(t, err)
	assert.Empty(t, overlaps)
	list, err := f.bookings.ListBookings(ctx, BookingFilter{RoomID: f.room.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(t, "2025-06-10", "2025-06-10")
	_, err := f.bookings.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, engine.ErrValidation)

	req = f.request(t, "2025-06-10", "2025-06-11")
	req.Adults = 0
	_, err = f.bookings.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, engine.ErrValidation)

	req = f.request(t, "2025-06-10", "2025-06-11")
	req.Adults = 3
	_, err = f.bookings.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, engine.ErrValidation, "over capacity")

	req.ExtraBeds = 1
	_, err = f.bookings.CreateBooking(ctx, req)
	assert.NoError(t, err, "extra bed raises capacity")

	req = f.request(t, "2025-06-20", "2025-06-21")
	req.GuestID = 999
	_, err = f.bookings.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestCreateBooking_ExtrasAndDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hotel, err := f.settings.Get(ctx)
	require.NoError(t, err)
	hotel.TourismTaxPerNight = dec("5")
	hotel.ExtraBedChargePerNight = dec("25")
	_, err = f.settings.Update(ctx, hotel)
	require.NoError(t, err)

	req := f.request(t, "2025-06-10", "2025-06-12")
	req.Adults, req.ExtraBeds, req.Discount = 3, 1, dec("20")
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "300.00", b.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", b.TaxAmount.StringFixed(2))
	assert.Equal(t, "10.00", b.TourismTax.StringFixed(2))
	assert.Equal(t, "50.00", b.ExtraBedCharge.StringFixed(2))
	assert.Equal(t, "370.00", b.TotalAmount.StringFixed(2))
}

func TestCreateBooking_InclusivePrice(t *testing.T) {
	f := newFixture(t)
	price := dec("165")
	req := f.request(t, "2025-06-10", "2025-06-12")
	req.InclusiveNightlyPrice = &price

	b, err := f.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, string(engine.Inclusive), b.PriceMode)
	assert.Equal(t, "300.00", b.Subtotal.StringFixed(2))
	assert.Equal(t, "30.00", b.TaxAmount.StringFixed(2))
	assert.Equal(t, "330.00", b.TotalAmount.StringFixed(2))
}

func TestCreateBooking_ComplimentaryCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.credits.Grant(ctx, f.guest.ID, f.deluxe.ID, 3, "anniversary gift")
	require.NoError(t, err)

	// Monday 9th to Saturday 14th: four standard nights and one weekend night.
	req := f.request(t, "2025-06-09", "2025-06-14")
	req.ComplimentaryDates = []time.Time{day(t, "2025-06-10"), day(t, "2025-06-11")}
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)

	assert.True(t, b.IsComplimentary)
	assert.Equal(t, 2, b.ComplimentaryNights)
	assert.LessOrEqual(t, b.ComplimentaryNights, len(req.ComplimentaryDates))
	assert.JSONEq(t, `["2025-06-10","2025-06-11"]`, string(b.ComplimentaryDates))
	assert.Equal(t, "150.00", b.RoomRate.StringFixed(2))
	assert.Equal(t, "472.50", b.Subtotal.StringFixed(2))
	assert.Equal(t, "519.75", b.TotalAmount.StringFixed(2))
	require.NotNil(t, b.OriginalTotalAmount)
	assert.Equal(t, "849.75", b.OriginalTotalAmount.StringFixed(2))
	assert.Equal(t, 1, f.creditBalance(t))
}

func TestCreateBooking_InsufficientCreditsRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.credits.Grant(ctx, f.guest.ID, f.deluxe.ID, 1, "")
	require.NoError(t, err)

	req := f.request(t, "2025-06-09", "2025-06-14")
	req.ComplimentaryDates = []time.Time{day(t, "2025-06-10"), day(t, "2025-06-11")}
	_, err = f.bookings.CreateBooking(ctx, req)

	var ice *engine.InsufficientCreditsError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, 1, ice.Deficit())

	var count int64
	f.db.Model(&models.Booking{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, 1, f.creditBalance(t))
	assert.Equal(t, models.RoomAvailable, f.roomStatus(t))
	assert.Empty(t, f.pub.Keys())
}

func TestCreateBooking_NoCreditRow(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, "2025-06-09", "2025-06-14")
	req.ComplimentaryDates = []time.Time{day(t, "2025-06-10")}
	_, err := f.bookings.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, engine.ErrInsufficientCredits)
	assert.Equal(t, 0, f.creditBalance(t))
}

func TestApplyComplimentaryCredits_Preview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.credits.Grant(ctx, f.guest.ID, f.deluxe.ID, 3, "")
	require.NoError(t, err)

	app, err := f.bookings.ApplyComplimentaryCredits(ctx, f.guest.ID, f.deluxe.ID,
		day(t, "2025-06-09"), day(t, "2025-06-14"),
		[]time.Time{day(t, "2025-06-10"), day(t, "2025-06-12")})
	require.NoError(t, err)

	assert.Equal(t, 2, app.ComplimentaryNights)
	require.NotNil(t, app.RemainingCredits)
	assert.Equal(t, 1, *app.RemainingCredits)
	paid := 0
	for _, n := range app.Nightly {
		if !n.Complimentary {
			paid++
		}
	}
	assert.Equal(t, 3, paid)
	assert.Equal(t, 3, f.creditBalance(t), "preview does not consume")

	_, err = f.bookings.ApplyComplimentaryCredits(ctx, f.guest.ID, f.deluxe.ID,
		day(t, "2025-06-09"), day(t, "2025-06-14"), nil)
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestCancelBooking_RefundsCreditsAndFreesRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.credits.Grant(ctx, f.guest.ID, f.deluxe.ID, 3, "")
	require.NoError(t, err)

	req := f.request(t, "2025-06-09", "2025-06-14")
	req.ComplimentaryDates = []time.Time{day(t, "2025-06-10"), day(t, "2025-06-11")}
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, f.creditBalance(t))

	cancelled, err := f.bookings.CancelBooking(ctx, b.ID, "guest request", "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.Equal(t, 3, f.creditBalance(t))
	assert.Equal(t, models.RoomAvailable, f.roomStatus(t))

	_, err = f.bookings.CancelBooking(ctx, b.ID, "again", "frontdesk")
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	// The freed dates can be booked again.
	_, err = f.bookings.CreateBooking(ctx, f.request(t, "2025-06-10", "2025-06-12"))
	assert.NoError(t, err)
	assert.Equal(t, []string{events.BookingCreated, events.BookingCancelled, events.BookingCreated}, f.pub.Keys())
}

func TestCancelBooking_RoomStaysReservedForOtherBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.bookings.CreateBooking(ctx, f.request(t, "2025-06-09", "2025-06-11"))
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, f.request(t, "2025-06-20", "2025-06-22"))
	require.NoError(t, err)

	_, err = f.bookings.MarkNoShow(ctx, first.ID, "night audit")
	require.NoError(t, err)
	assert.Equal(t, models.RoomReserved, f.roomStatus(t))
}

func TestCheckInAndLateCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deposit := dec("100")
	req := f.request(t, "2025-06-13", "2025-06-15")
	req.DepositPaid, req.DepositAmount = true, &deposit
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)

	_, err = f.bookings.CheckIn(ctx, b.ID, "frontdesk")
	assert.ErrorIs(t, err, engine.ErrValidation, "too early to check in")

	f.bookings.Now = at("2025-06-13T15:00:00Z")
	in, err := f.bookings.CheckIn(ctx, b.ID, "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCheckedIn, in.Status)
	assert.Equal(t, models.RoomOccupied, f.roomStatus(t))

	_, err = f.rooms.UpdateStatus(ctx, f.room.ID, models.RoomAvailable, "housekeeping")
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	f.bookings.Now = at("2025-06-15T14:30:00Z")
	penalty := dec("50")
	preview, err := f.bookings.PreviewCheckout(ctx, b.ID, &penalty)
	require.NoError(t, err)
	assert.True(t, preview.IsLate)

	res, err := f.bookings.Checkout(ctx, b.ID, &penalty, "frontdesk")
	require.NoError(t, err)
	assert.True(t, res.Charges.IsLate)
	assert.True(t, res.Charges.DepositRefund.Amount.IsZero())
	assert.Equal(t, "50.00", res.Charges.LatePenalty.Amount.StringFixed(2))
	assert.Equal(t, "429.50", res.Charges.GrandTotal.Amount.StringFixed(2))

	assert.Equal(t, models.BookingCheckedOut, res.Booking.Status)
	assert.True(t, res.Booking.IsLateCheckout)
	assert.Equal(t, "50.00", res.Booking.LateCheckoutPenalty.StringFixed(2))
	require.NotNil(t, res.Booking.ActualCheckOut)
	assert.Equal(t, models.RoomDirty, f.roomStatus(t))

	_, err = f.bookings.Checkout(ctx, b.ID, nil, "frontdesk")
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	assert.Equal(t, []string{events.BookingCreated, events.BookingCheckedIn, events.BookingCheckedOut}, f.pub.Keys())
}

func TestCheckout_MixedPlanStayUsesStoredNightlyRates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Thursday on STD, Friday on WEEKEND.
	b, err := f.bookings.CreateBooking(ctx, f.request(t, "2025-06-12", "2025-06-14"))
	require.NoError(t, err)
	assert.Equal(t, "MIXED", b.RateCode)
	assert.Equal(t, "150.00", b.RoomRate.StringFixed(2))
	assert.Equal(t, "322.50", b.Subtotal.StringFixed(2))
	assert.Equal(t, "354.75", b.TotalAmount.StringFixed(2))

	f.bookings.Now = at("2025-06-12T15:00:00Z")
	_, err = f.bookings.CheckIn(ctx, b.ID, "frontdesk")
	require.NoError(t, err)

	f.bookings.Now = at("2025-06-14T10:00:00Z")
	res, err := f.bookings.Checkout(ctx, b.ID, nil, "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, engine.PerNightStoredNights, res.Charges.PricePerNightSource)
	assert.Equal(t, "322.50", res.Charges.RoomCharges.Amount.StringFixed(2))
	assert.Equal(t, "32.25", res.Charges.ServiceTax.Amount.StringFixed(2))
	assert.Equal(t, "354.75", res.Charges.Subtotal.Amount.StringFixed(2))
	assert.False(t, res.Charges.IsLate)
}

func TestCheckout_UnreadableNightlyRates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.bookings.CreateBooking(ctx, f.request(t, "2025-06-12", "2025-06-14"))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Booking{}).Where("id = ?", b.ID).Update("nightly_rates", `{"night":1}`).Error)

	_, err = f.bookings.PreviewCheckout(ctx, b.ID, nil)
	assert.ErrorContains(t, err, "unreadable nightly rates")
}

func TestStoredNightly_UnreadableComplimentaryDates(t *testing.T) {
	b := models.Booking{
		ID:                 7,
		CheckInDate:        day(t, "2025-06-12"),
		CheckOutDate:       day(t, "2025-06-14"),
		RoomRate:           dec("150"),
		ComplimentaryDates: []byte(`{"date":"2025-06-12"}`),
	}
	_, err := storedNightly(b)
	assert.ErrorContains(t, err, "unreadable complimentary dates")

	b.ComplimentaryDates = []byte(`["2025-06-13"]`)
	nightly, err := storedNightly(b)
	require.NoError(t, err)
	require.Len(t, nightly, 2)
	assert.False(t, nightly[0].Complimentary)
	assert.True(t, nightly[1].Complimentary)
	assert.True(t, nightly[1].Price.IsZero())
}

func TestCheckout_RequiresCheckIn(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.CreateBooking(context.Background(), f.request(t, "2025-06-13", "2025-06-15"))
	require.NoError(t, err)

	_, err = f.bookings.Checkout(context.Background(), b.ID, nil, "frontdesk")
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	var te *engine.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "confirmed", te.From)
}

func TestShortenStay_RepricesKeptNights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.credits.Grant(ctx, f.guest.ID, f.deluxe.ID, 2, "")
	require.NoError(t, err)

	req := f.request(t, "2025-06-09", "2025-06-14")
	req.ComplimentaryDates = []time.Time{day(t, "2025-06-10"), day(t, "2025-06-13")}
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 0, f.creditBalance(t))

	short, err := f.bookings.ShortenStay(ctx, b.ID, day(t, "2025-06-12"), "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12", engine.FormatDate(short.CheckOutDate))
	assert.Equal(t, 3, short.Nights)
	assert.Equal(t, 1, short.ComplimentaryNights)
	assert.Equal(t, "300.00", short.Subtotal.StringFixed(2))
	assert.Equal(t, "330.00", short.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, f.creditBalance(t), "the dropped free night is returned")

	_, err = f.bookings.ShortenStay(ctx, b.ID, day(t, "2025-06-12"), "frontdesk")
	assert.ErrorIs(t, err, engine.ErrValidation)

	// Freed nights are bookable.
	_, err = f.bookings.CreateBooking(ctx, f.request(t, "2025-06-12", "2025-06-14"))
	assert.NoError(t, err)
}

func TestQuoteBooking_DoesNotPersist(t *testing.T) {
	f := newFixture(t)
	q, err := f.bookings.QuoteBooking(context.Background(), f.request(t, "2025-06-13", "2025-06-15"))
	require.NoError(t, err)
	assert.Equal(t, "379.50", q.Quote.Total.Amount.StringFixed(2))

	var count int64
	f.db.Model(&models.Booking{}).Count(&count)
	assert.Zero(t, count)
	assert.Equal(t, models.RoomAvailable, f.roomStatus(t))
}

func TestListBookings_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		in := day(t, "2025-06-10").AddDate(0, 0, i*2)
		_, err := f.bookings.CreateBooking(ctx, f.request(t, engine.FormatDate(in), engine.FormatDate(in.AddDate(0, 0, 2))))
		require.NoError(t, err, fmt.Sprint(i))
	}
	all, err := f.bookings.ListBookings(ctx, BookingFilter{RoomID: f.room.ID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := f.bookings.ListBookings(ctx, BookingFilter{Status: models.BookingCancelled})
	require.NoError(t, err)
	assert.Empty(t, none)

	from, to := day(t, "2025-06-12"), day(t, "2025-06-14")
	window, err := f.bookings.ListBookings(ctx, BookingFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, window, 1, "neighbours touching the window edges are excluded")
	assert.Equal(t, "2025-06-12", engine.FormatDate(window[0].CheckInDate))

	from, to = day(t, "2025-06-11"), day(t, "2025-06-13")
	window, err = f.bookings.ListBookings(ctx, BookingFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	from = day(t, "2025-06-15")
	window, err = f.bookings.ListBookings(ctx, BookingFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "2025-06-14", engine.FormatDate(window[0].CheckInDate))

	to = day(t, "2025-06-11")
	_, err = f.bookings.ListBookings(ctx, BookingFilter{From: &from, To: &to})
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestPaymentStatus(t *testing.T) {
	assert.Equal(t, models.PaymentUnpaid, paymentStatus(dec("100"), decimal.Zero))
	assert.Equal(t, models.PaymentPartial, paymentStatus(dec("100"), dec("40")))
	assert.Equal(t, models.PaymentPaid, paymentStatus(dec("100"), dec("100")))
}
