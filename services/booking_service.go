package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/events"
	"hotel-booking-engine/models"
	"hotel-booking-engine/obs"
)

// BookingService owns every write to the booking calendar. Writers for a room
// are serialized by the room row lock taken at the start of each transaction.
type BookingService struct {
	DB        *gorm.DB
	Settings  *SettingsService
	Publisher events.Publisher
	Now       func() time.Time
}

func NewBookingService(db *gorm.DB, settings *SettingsService, pub events.Publisher) *BookingService {
	return &BookingService{DB: db, Settings: settings, Publisher: pub, Now: time.Now}
}

// BookingRequest is a reservation for one room.
type BookingRequest struct {
	RoomID    uint
	GuestID   uint
	CheckIn   time.Time
	CheckOut  time.Time
	Adults    int
	Children  int
	ExtraBeds int
	RateCode  string
	Discount  decimal.Decimal
	// InclusiveNightlyPrice is a negotiated all-in price. When set the booking
	// is priced in inclusive mode and the rate resolver is skipped.
	InclusiveNightlyPrice *decimal.Decimal
	ComplimentaryDates    []time.Time
	DepositPaid           bool
	DepositAmount         *decimal.Decimal
	PaidAmount            decimal.Decimal
	Status                models.BookingStatus
	PostType              string
	Actor                 string
}

// BookingQuote is what a booking would cost, computed without committing.
type BookingQuote struct {
	RoomID              uint                  `json:"roomId"`
	RoomTypeID          uint                  `json:"roomTypeId"`
	CheckIn             string                `json:"checkIn"`
	CheckOut            string                `json:"checkOut"`
	Nightly             []engine.NightlyPrice `json:"nightly"`
	Quote               engine.Quote          `json:"quote"`
	RoomRate            decimal.Decimal       `json:"roomRate"`
	ComplimentaryNights int                   `json:"complimentaryNights"`
	ComplimentaryDates  []string              `json:"complimentaryDates,omitempty"`
	RemainingCredits    *int                  `json:"remainingCredits,omitempty"`
	OriginalTotal       *engine.Money         `json:"originalTotal,omitempty"`
	Warnings            []string              `json:"warnings,omitempty"`
}

// CreditApplication previews complimentary credits against a stay.
type CreditApplication struct {
	GuestID    uint `json:"guestId"`
	RoomTypeID uint `json:"roomTypeId"`
	BookingQuote
}

type CheckoutResult struct {
	Booking *models.Booking `json:"booking"`
	Charges engine.Charges  `json:"charges"`
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *BookingService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return obs.Tracer().Start(ctx, "BookingService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CheckAvailability is an unlocked, display-grade read. CreateBooking re-checks
// under the room lock before committing.
func (s *BookingService) CheckAvailability(ctx context.Context, roomID uint, in, out time.Time) (engine.Availability, error) {
	if err := engine.ValidateStay(in, out); err != nil {
		return engine.Availability{}, err
	}
	db := s.DB.WithContext(ctx)
	var room models.Room
	if err := db.First(&room, roomID).Error; err != nil {
		return engine.Availability{}, notFound("room", roomID, err)
	}
	existing, err := activeBookings(db, roomID)
	if err != nil {
		return engine.Availability{}, err
	}
	return engine.CheckAvailability(existing, roomID, in, out)
}

// AuditOverlaps scans every active booking for double-booked nights.
func (s *BookingService) AuditOverlaps(ctx context.Context) ([]engine.OverlapPair, error) {
	var list []models.Booking
	if err := s.DB.WithContext(ctx).
		Where("status NOT IN ?", models.InactiveBookingStatuses).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	pairs := engine.FindOverlaps(list)
	if len(pairs) > 0 {
		log.Printf("⚠️  %d overlapping booking pairs found", len(pairs))
	}
	return pairs, nil
}

// QuoteBooking resolves and prices a request without persisting anything.
func (s *BookingService) QuoteBooking(ctx context.Context, req BookingRequest) (*BookingQuote, error) {
	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	var room models.Room
	if err := db.Preload("RoomType").First(&room, req.RoomID).Error; err != nil {
		return nil, notFound("room", req.RoomID, err)
	}
	credits := 0
	if len(req.ComplimentaryDates) > 0 {
		var c models.ComplimentaryCredit
		err := db.Where("guest_id = ? AND room_type_id = ?", req.GuestID, room.RoomTypeID).First(&c).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load credits: %w", err)
		}
		credits = c.NightsAvailable
	}
	q, _, err := s.price(db, cfg, room, req, credits)
	return q, err
}

// ApplyComplimentaryCredits previews spending a guest's credits for a room
// type on the selected nights. The balance is consumed only by CreateBooking.
func (s *BookingService) ApplyComplimentaryCredits(ctx context.Context, guestID, roomTypeID uint, in, out time.Time, selected []time.Time) (*CreditApplication, error) {
	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, &engine.ValidationError{Field: "complimentary_dates", Message: "at least one date is required"}
	}
	db := s.DB.WithContext(ctx)
	var rt models.RoomType
	if err := db.First(&rt, roomTypeID).Error; err != nil {
		return nil, notFound("room type", roomTypeID, err)
	}
	var c models.ComplimentaryCredit
	err = db.Where("guest_id = ? AND room_type_id = ?", guestID, roomTypeID).First(&c).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load credits: %w", err)
	}
	adults := rt.MinOccupancy
	if adults < 1 {
		adults = 1
	}
	room := models.Room{RoomTypeID: rt.ID, RoomType: rt}
	q, _, err := s.price(db, cfg, room, BookingRequest{
		GuestID:            guestID,
		CheckIn:            in,
		CheckOut:           out,
		Adults:             adults,
		ComplimentaryDates: selected,
	}, c.NightsAvailable)
	if err != nil {
		return nil, err
	}
	return &CreditApplication{GuestID: guestID, RoomTypeID: roomTypeID, BookingQuote: *q}, nil
}

// price runs rate resolution, credit allocation and pricing for req.
func (s *BookingService) price(db *gorm.DB, cfg engine.Settings, room models.Room, req BookingRequest, credits int) (*BookingQuote, *engine.CreditAllocation, error) {
	if err := engine.ValidateStay(req.CheckIn, req.CheckOut); err != nil {
		return nil, nil, err
	}
	if err := validateOccupancy(room.RoomType, req); err != nil {
		return nil, nil, err
	}
	if req.Discount.IsNegative() {
		return nil, nil, &engine.ValidationError{Field: "discount", Message: "must not be negative"}
	}
	nights := engine.NightsBetween(req.CheckIn, req.CheckOut)
	today := cfg.Today(s.now())

	var nightly []engine.NightlyPrice
	mode := engine.Exclusive
	if req.InclusiveNightlyPrice != nil {
		if req.InclusiveNightlyPrice.IsNegative() {
			return nil, nil, &engine.ValidationError{Field: "inclusive_nightly_price", Message: "must not be negative"}
		}
		mode = engine.Inclusive
		for _, d := range engine.StayDates(req.CheckIn, req.CheckOut) {
			nightly = append(nightly, engine.NightlyPrice{Date: d, RateCode: "MANUAL", Price: *req.InclusiveNightlyPrice, Source: "manual"})
		}
	} else {
		plans, rates, err := loadRateInputs(db, room.RoomTypeID)
		if err != nil {
			return nil, nil, err
		}
		nightly, err = engine.ResolveRates(engine.RateRequest{
			RoomTypeID: room.RoomTypeID,
			CheckIn:    req.CheckIn,
			CheckOut:   req.CheckOut,
			RateCode:   req.RateCode,
			BookedOn:   today,
			Today:      today,
		}, plans, rates, basePrice(room, room.RoomType), cfg)
		if err != nil {
			return nil, nil, err
		}
	}

	in := engine.PriceInput{
		Mode:           mode,
		TaxRate:        cfg.ServiceTaxRate,
		TourismTax:     engine.PerNight(cfg.TourismTaxPerNight, 1, nights),
		ExtraBedCharge: engine.PerNight(cfg.ExtraBedCharge, req.ExtraBeds, nights),
		Discount:       req.Discount,
		Currency:       cfg.Currency,
	}
	out := &BookingQuote{
		RoomID:     room.ID,
		RoomTypeID: room.RoomTypeID,
		CheckIn:    engine.FormatDate(req.CheckIn),
		CheckOut:   engine.FormatDate(req.CheckOut),
		RoomRate:   firstNightRate(nightly),
		Warnings:   warnClamped(nightly),
	}

	var alloc *engine.CreditAllocation
	if len(req.ComplimentaryDates) > 0 {
		a, err := engine.AllocateCredits(credits, req.CheckIn, req.CheckOut, req.ComplimentaryDates)
		if err != nil {
			return nil, nil, err
		}
		in.Nightly = engine.Prices(nightly)
		original, err := engine.PriceBooking(in)
		if err != nil {
			return nil, nil, err
		}
		nightly = engine.ApplyCredits(nightly, a)
		alloc = &a
		out.OriginalTotal = &original.Total
		out.ComplimentaryNights = a.Nights()
		out.ComplimentaryDates = a.DateStrings()
		remaining := a.Remaining
		out.RemainingCredits = &remaining
	}

	in.Nightly = engine.Prices(nightly)
	q, err := engine.PriceBooking(in)
	if err != nil {
		return nil, nil, err
	}
	out.Nightly = nightly
	out.Quote = q
	return out, alloc, nil
}

func validateOccupancy(rt models.RoomType, req BookingRequest) error {
	if req.Adults < 0 || req.Children < 0 || req.ExtraBeds < 0 {
		return &engine.ValidationError{Field: "guests", Message: "counts must not be negative"}
	}
	total := req.Adults + req.Children
	if total <= 0 {
		return &engine.ValidationError{Field: "guests", Message: "at least one guest is required"}
	}
	if rt.MaxOccupancy > 0 && total > rt.MaxOccupancy+req.ExtraBeds {
		return &engine.ValidationError{Field: "guests", Message: fmt.Sprintf("%d guests exceed room capacity %d", total, rt.MaxOccupancy+req.ExtraBeds)}
	}
	return nil
}

// CreateBooking re-validates availability under the room lock, consumes
// credits and inserts the booking in one transaction.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (booking *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "CreateBooking", attribute.Int64("room.id", int64(req.RoomID)))
	defer func() { endSpan(span, err) }()

	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.BookingConfirmed
	}
	if status != models.BookingConfirmed && status != models.BookingPending {
		return nil, &engine.ValidationError{Field: "status", Message: "new bookings are pending or confirmed"}
	}
	postType := req.PostType
	if postType == "" {
		postType = models.PostNormalStay
	}
	if postType != models.PostNormalStay && postType != models.PostSameDay {
		return nil, &engine.ValidationError{Field: "post_type", Message: "must be normal_stay or same_day"}
	}

	var created models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, req.RoomID)
		if err != nil {
			return err
		}
		if err := tx.First(&room.RoomType, room.RoomTypeID).Error; err != nil {
			return notFound("room type", room.RoomTypeID, err)
		}
		if room.Status == models.RoomOutOfOrder || room.Status == models.RoomMaintenance {
			return fmt.Errorf("room %s is %s: %w", room.RoomNumber, room.Status, engine.ErrConflict)
		}
		var guest models.Guest
		if err := tx.First(&guest, req.GuestID).Error; err != nil {
			return notFound("guest", req.GuestID, err)
		}

		existing, err := activeBookings(tx, room.ID)
		if err != nil {
			return err
		}
		avail, err := engine.CheckAvailability(existing, room.ID, req.CheckIn, req.CheckOut)
		if err != nil {
			return err
		}
		if err := avail.Err(); err != nil {
			return err
		}

		credits := 0
		if len(req.ComplimentaryDates) > 0 {
			c, err := lockCredit(tx, guest.ID, room.RoomTypeID)
			if err != nil {
				return err
			}
			if c != nil {
				credits = c.NightsAvailable
			}
		}

		q, alloc, err := s.price(tx, cfg, *room, req, credits)
		if err != nil {
			return err
		}

		now := s.now()
		deposit := cfg.DefaultDeposit
		if req.DepositAmount != nil {
			if req.DepositAmount.IsNegative() {
				return &engine.ValidationError{Field: "deposit_amount", Message: "must not be negative"}
			}
			deposit = *req.DepositAmount
		}
		if req.PaidAmount.IsNegative() {
			return &engine.ValidationError{Field: "paid_amount", Message: "must not be negative"}
		}
		nightlyJSON, err := json.Marshal(q.Nightly)
		if err != nil {
			return fmt.Errorf("failed to encode nightly rates: %w", err)
		}

		created = models.Booking{
			BookingNumber:  newBookingNumber(now),
			RoomID:         room.ID,
			GuestID:        guest.ID,
			CheckInDate:    engine.DateOf(req.CheckIn),
			CheckOutDate:   engine.DateOf(req.CheckOut),
			Nights:         q.Quote.Nights,
			Adults:         req.Adults,
			Children:       req.Children,
			PostType:       postType,
			Status:         status,
			PaymentStatus:  paymentStatus(q.Quote.Total.Amount, req.PaidAmount),
			RateCode:       stayRateCode(q.Nightly),
			PriceMode:      string(q.Quote.Mode),
			Currency:       q.Quote.Total.Currency,
			RoomRate:       q.RoomRate,
			Subtotal:       q.Quote.Subtotal.Amount,
			TaxAmount:      q.Quote.Tax.Amount,
			TourismTax:     q.Quote.TourismTax.Amount,
			ExtraBedCharge: q.Quote.ExtraBedCharge.Amount,
			DiscountAmount: q.Quote.Discount.Amount,
			TotalAmount:    q.Quote.Total.Amount,
			PaidAmount:     req.PaidAmount,
			NightlyRates:   datatypes.JSON(nightlyJSON),
			DepositPaid:    req.DepositPaid,
			DepositAmount:  deposit,
			CreatedBy:      req.Actor,
		}
		if alloc != nil {
			datesJSON, err := json.Marshal(alloc.DateStrings())
			if err != nil {
				return fmt.Errorf("failed to encode complimentary dates: %w", err)
			}
			created.IsComplimentary = true
			created.ComplimentaryNights = alloc.Nights()
			created.ComplimentaryDates = datatypes.JSON(datesJSON)
			orig := q.OriginalTotal.Amount
			created.OriginalTotalAmount = &orig
		}

		if err := tx.Create(&created).Error; err != nil {
			return classifyWriteErr(room.ID, fmt.Errorf("failed to create booking: %w", err))
		}

		if alloc != nil {
			if _, err := adjustCredit(tx, guest.ID, room.RoomTypeID, -alloc.Nights(), ""); err != nil {
				return err
			}
		}

		if room.Status == models.RoomAvailable {
			if err := setRoomStatus(tx, room, models.RoomReserved); err != nil {
				return err
			}
		}

		return logModification(tx, created.ID, models.ModCreated, req.Actor, map[string]interface{}{
			"status":              created.Status,
			"checkIn":             engine.FormatDate(created.CheckInDate),
			"checkOut":            engine.FormatDate(created.CheckOutDate),
			"totalAmount":         created.TotalAmount.StringFixed(2),
			"complimentaryNights": created.ComplimentaryNights,
		})
	})
	if txErr != nil {
		return nil, classifyWriteErr(req.RoomID, txErr)
	}

	span.SetAttributes(attribute.String("booking.number", created.BookingNumber))
	log.Printf("✅ booking %s created for room %d (%s to %s), total %s %s",
		created.BookingNumber, created.RoomID, engine.FormatDate(created.CheckInDate),
		engine.FormatDate(created.CheckOutDate), created.TotalAmount.StringFixed(2), created.Currency)
	s.publish(ctx, events.BookingCreated, created, req.Actor)
	return &created, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.DB.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound("booking", id, err)
	}
	return &b, nil
}

// BookingFilter narrows ListBookings. Zero values match everything.
type BookingFilter struct {
	RoomID  uint
	GuestID uint
	Status  models.BookingStatus
	// From and To select stays overlapping [From, To).
	From *time.Time
	To   *time.Time
}

func (s *BookingService) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	q := s.DB.WithContext(ctx).Order("check_in_date, id")
	if f.RoomID != 0 {
		q = q.Where("room_id = ?", f.RoomID)
	}
	if f.GuestID != 0 {
		q = q.Where("guest_id = ?", f.GuestID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, &engine.ValidationError{Field: "to", Message: "must be after from"}
	}
	if f.To != nil {
		q = q.Where("check_in_date < ?", engine.DateOf(*f.To))
	}
	if f.From != nil {
		q = q.Where("check_out_date > ?", engine.DateOf(*f.From))
	}
	var list []models.Booking
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return list, nil
}

func (s *BookingService) ListModifications(ctx context.Context, bookingID uint) ([]models.BookingModification, error) {
	var mods []models.BookingModification
	if err := s.DB.WithContext(ctx).Where("booking_id = ?", bookingID).Order("id").Find(&mods).Error; err != nil {
		return nil, fmt.Errorf("failed to list modifications: %w", err)
	}
	return mods, nil
}

// CheckIn marks the guest in-house and the room occupied.
func (s *BookingService) CheckIn(ctx context.Context, id uint, actor string) (booking *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "CheckIn", attribute.Int64("booking.id", int64(id)))
	defer func() { endSpan(span, err) }()

	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockBooking(tx, id)
		if err != nil {
			return err
		}
		b = *locked
		next, err := engine.TransitionBooking(b.Status, models.BookingCheckedIn)
		if err != nil {
			return err
		}
		now := s.now()
		today := cfg.Today(now)
		if today.Before(engine.DateOf(b.CheckInDate)) {
			return &engine.ValidationError{Field: "check_in", Message: fmt.Sprintf("booking starts on %s", engine.FormatDate(b.CheckInDate))}
		}
		if !today.Before(engine.DateOf(b.CheckOutDate)) {
			return &engine.ValidationError{Field: "check_in", Message: fmt.Sprintf("stay ended on %s", engine.FormatDate(b.CheckOutDate))}
		}
		room, err := lockRoom(tx, b.RoomID)
		if err != nil {
			return err
		}
		if err := setRoomStatus(tx, room, models.RoomOccupied); err != nil {
			return err
		}
		if err := tx.Model(&b).Updates(map[string]interface{}{
			"status":          next,
			"actual_check_in": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to check in booking %d: %w", id, err)
		}
		b.Status, b.ActualCheckIn = next, &now
		return logModification(tx, b.ID, models.ModCheckedIn, actor, map[string]interface{}{"roomId": room.ID})
	})
	if txErr != nil {
		return nil, txErr
	}
	s.publish(ctx, events.BookingCheckedIn, b, actor)
	return &b, nil
}

// CancelBooking releases the dates and returns any complimentary nights.
func (s *BookingService) CancelBooking(ctx context.Context, id uint, reason, actor string) (*models.Booking, error) {
	return s.release(ctx, id, models.BookingCancelled, models.ModCancelled, events.BookingCancelled, reason, actor)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id uint, actor string) (*models.Booking, error) {
	return s.release(ctx, id, models.BookingNoShow, models.ModNoShow, events.BookingNoShow, "guest did not arrive", actor)
}

func (s *BookingService) release(ctx context.Context, id uint, to models.BookingStatus, action, eventType, reason, actor string) (booking *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "Release", attribute.Int64("booking.id", int64(id)), attribute.String("booking.status", string(to)))
	defer func() { endSpan(span, err) }()

	var b models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockBooking(tx, id)
		if err != nil {
			return err
		}
		b = *locked
		room, err := lockRoom(tx, b.RoomID)
		if err != nil {
			return err
		}
		next, err := engine.TransitionBooking(b.Status, to)
		if err != nil {
			return err
		}
		if err := tx.Model(&b).Update("status", next).Error; err != nil {
			return fmt.Errorf("failed to update booking %d: %w", id, err)
		}
		b.Status = next

		changes := map[string]interface{}{"status": next, "reason": reason}
		if b.IsComplimentary && b.ComplimentaryNights > 0 {
			note := fmt.Sprintf("refund from booking %s", b.BookingNumber)
			if _, err := adjustCredit(tx, b.GuestID, room.RoomTypeID, b.ComplimentaryNights, note); err != nil {
				return err
			}
			changes["creditsRefunded"] = b.ComplimentaryNights
		}

		if room.Status == models.RoomReserved {
			others, err := activeBookings(tx, room.ID)
			if err != nil {
				return err
			}
			held := false
			for _, o := range others {
				if o.ID != b.ID && o.Status != models.BookingCheckedOut {
					held = true
				}
			}
			if !held {
				if err := setRoomStatus(tx, room, models.RoomAvailable); err != nil {
					return err
				}
			}
		}
		return logModification(tx, b.ID, action, actor, changes)
	})
	if txErr != nil {
		return nil, txErr
	}
	log.Printf("booking %s %s by %q", b.BookingNumber, b.Status, actor)
	s.publish(ctx, eventType, b, actor)
	return &b, nil
}

// ShortenStay moves the checkout earlier and re-prices the remaining nights
// from the stored nightly breakdown.
func (s *BookingService) ShortenStay(ctx context.Context, id uint, newCheckOut time.Time, actor string) (booking *models.Booking, err error) {
	ctx, span := s.startSpan(ctx, "ShortenStay", attribute.Int64("booking.id", int64(id)))
	defer func() { endSpan(span, err) }()

	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockBooking(tx, id)
		if err != nil {
			return err
		}
		b = *locked
		if !b.Status.Active() || b.Status == models.BookingCheckedOut {
			return fmt.Errorf("booking %d is %s: %w", id, b.Status, engine.ErrIllegalTransition)
		}
		out := engine.DateOf(newCheckOut)
		if err := engine.ValidateStay(b.CheckInDate, out); err != nil {
			return err
		}
		if !out.Before(engine.DateOf(b.CheckOutDate)) {
			return &engine.ValidationError{Field: "check_out", Message: "must be before the current check-out date"}
		}
		oldNights := b.Nights
		if oldNights <= 0 {
			oldNights = engine.NightsBetween(b.CheckInDate, b.CheckOutDate)
		}
		nights := engine.NightsBetween(b.CheckInDate, out)

		nightly, err := storedNightly(b)
		if err != nil {
			return err
		}
		kept := make([]engine.NightlyPrice, 0, nights)
		dropped := 0
		for _, n := range nightly {
			if n.Date.Before(out) {
				kept = append(kept, n)
			} else if n.Complimentary {
				dropped++
			}
		}
		mode, err := engine.ParsePriceMode(b.PriceMode)
		if err != nil {
			return err
		}
		ratio := decimal.NewFromInt(int64(nights)).Div(decimal.NewFromInt(int64(oldNights)))
		in := engine.PriceInput{
			Nightly:        engine.Prices(kept),
			Mode:           mode,
			TaxRate:        cfg.ServiceTaxRate,
			TourismTax:     b.TourismTax.Mul(ratio),
			ExtraBedCharge: b.ExtraBedCharge.Mul(ratio),
			Currency:       b.Currency,
		}
		pre, err := engine.PriceBooking(in)
		if err != nil {
			return err
		}
		in.Discount = decimal.Min(b.DiscountAmount, pre.Total.Amount)
		q, err := engine.PriceBooking(in)
		if err != nil {
			return err
		}

		keptJSON, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("failed to encode nightly rates: %w", err)
		}
		updates := map[string]interface{}{
			"check_out_date":   out,
			"nights":           nights,
			"subtotal":         q.Subtotal.Amount,
			"tax_amount":       q.Tax.Amount,
			"tourism_tax":      q.TourismTax.Amount,
			"extra_bed_charge": q.ExtraBedCharge.Amount,
			"discount_amount":  q.Discount.Amount,
			"total_amount":     q.Total.Amount,
			"payment_status":   paymentStatus(q.Total.Amount, b.PaidAmount),
			"nightly_rates":    datatypes.JSON(keptJSON),
		}
		if dropped > 0 {
			var dates []string
			for _, n := range kept {
				if n.Complimentary {
					dates = append(dates, engine.FormatDate(n.Date))
				}
			}
			datesJSON, err := json.Marshal(dates)
			if err != nil {
				return fmt.Errorf("failed to encode complimentary dates: %w", err)
			}
			updates["complimentary_nights"] = b.ComplimentaryNights - dropped
			updates["complimentary_dates"] = datatypes.JSON(datesJSON)
			updates["is_complimentary"] = len(dates) > 0
			var room models.Room
			if err := tx.Select("id", "room_type_id").First(&room, b.RoomID).Error; err != nil {
				return notFound("room", b.RoomID, err)
			}
			note := fmt.Sprintf("refund from shortened booking %s", b.BookingNumber)
			if _, err := adjustCredit(tx, b.GuestID, room.RoomTypeID, dropped, note); err != nil {
				return err
			}
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to shorten booking %d: %w", id, err)
		}
		if err := logModification(tx, b.ID, models.ModStayShortened, actor, map[string]interface{}{
			"fromCheckOut":    engine.FormatDate(b.CheckOutDate),
			"toCheckOut":      engine.FormatDate(out),
			"fromTotal":       b.TotalAmount.StringFixed(2),
			"toTotal":         q.Total.Amount.StringFixed(2),
			"creditsRefunded": dropped,
		}); err != nil {
			return err
		}
		return tx.First(&b, b.ID).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return &b, nil
}

// PreviewCheckout computes the final invoice at the current time without saving.
func (s *BookingService) PreviewCheckout(ctx context.Context, id uint, latePenalty *decimal.Decimal) (engine.Charges, error) {
	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return engine.Charges{}, err
	}
	db := s.DB.WithContext(ctx)
	var b models.Booking
	if err := db.First(&b, id).Error; err != nil {
		return engine.Charges{}, notFound("booking", id, err)
	}
	if !b.Status.Active() || b.Status == models.BookingCheckedOut {
		return engine.Charges{}, fmt.Errorf("booking %d is %s: %w", id, b.Status, engine.ErrIllegalTransition)
	}
	var room models.Room
	if err := db.First(&room, b.RoomID).Error; err != nil {
		return engine.Charges{}, notFound("room", b.RoomID, err)
	}
	nightly, err := recordedNightly(b)
	if err != nil {
		return engine.Charges{}, err
	}
	return engine.FinalizeCheckout(engine.CheckoutInput{Booking: b, Room: &room, Nightly: nightly, Now: s.now(), LatePenalty: latePenalty, Settings: cfg})
}

// Checkout settles the stay, closes the booking and sends the room to housekeeping.
func (s *BookingService) Checkout(ctx context.Context, id uint, latePenalty *decimal.Decimal, actor string) (result *CheckoutResult, err error) {
	ctx, span := s.startSpan(ctx, "Checkout", attribute.Int64("booking.id", int64(id)))
	defer func() { endSpan(span, err) }()

	cfg, err := s.Settings.Engine(ctx)
	if err != nil {
		return nil, err
	}
	var b models.Booking
	var charges engine.Charges
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockBooking(tx, id)
		if err != nil {
			return err
		}
		b = *locked
		next, err := engine.TransitionBooking(b.Status, models.BookingCheckedOut)
		if err != nil {
			return err
		}
		room, err := lockRoom(tx, b.RoomID)
		if err != nil {
			return err
		}
		nightly, err := recordedNightly(b)
		if err != nil {
			return err
		}
		now := s.now()
		charges, err = engine.FinalizeCheckout(engine.CheckoutInput{Booking: b, Room: room, Nightly: nightly, Now: now, LatePenalty: latePenalty, Settings: cfg})
		if err != nil {
			return err
		}
		if err := tx.Model(&b).Updates(map[string]interface{}{
			"status":                next,
			"late_checkout_penalty": charges.LatePenalty.Amount,
			"deposit_refund":        charges.DepositRefund.Amount,
			"is_late_checkout":      charges.IsLate,
			"is_early_checkout":     charges.IsEarly,
			"actual_check_out":      now,
		}).Error; err != nil {
			return fmt.Errorf("failed to check out booking %d: %w", id, err)
		}

		if room.Status != models.RoomDirty {
			if err := setRoomStatus(tx, room, models.RoomDirty); err != nil {
				if !errors.Is(err, engine.ErrIllegalTransition) {
					return err
				}
				log.Printf("⚠️  room %s left %s after checkout: %v", room.RoomNumber, room.Status, err)
			}
		}

		if err := logModification(tx, b.ID, models.ModCheckedOut, actor, map[string]interface{}{
			"grandTotal":    charges.GrandTotal.Amount.StringFixed(2),
			"depositRefund": charges.DepositRefund.Amount.StringFixed(2),
			"latePenalty":   charges.LatePenalty.Amount.StringFixed(2),
			"late":          charges.IsLate,
			"early":         charges.IsEarly,
		}); err != nil {
			return err
		}
		return tx.First(&b, b.ID).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	s.publish(ctx, events.BookingCheckedOut, b, actor)
	return &CheckoutResult{Booking: &b, Charges: charges}, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, b models.Booking, actor string) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, eventType, events.NewBookingEvent(eventType, b, actor)); err != nil {
		log.Printf("⚠️  failed to publish %s for booking %d: %v", eventType, b.ID, err)
	}
}

func activeBookings(db *gorm.DB, roomID uint) ([]models.Booking, error) {
	var list []models.Booking
	if err := db.Where("room_id = ? AND status NOT IN ?", roomID, models.InactiveBookingStatuses).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to load bookings for room %d: %w", roomID, err)
	}
	return list, nil
}

func lockBooking(tx *gorm.DB, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
		return nil, notFound("booking", id, err)
	}
	return &b, nil
}

func setRoomStatus(tx *gorm.DB, room *models.Room, to models.RoomStatus) error {
	next, err := engine.TransitionRoom(room.Status, to)
	if err != nil {
		return fmt.Errorf("room %s: %w", room.RoomNumber, err)
	}
	if err := tx.Model(&models.Room{}).Where("id = ?", room.ID).Update("status", next).Error; err != nil {
		return fmt.Errorf("failed to update room %d status: %w", room.ID, err)
	}
	room.Status = next
	return nil
}

func logModification(tx *gorm.DB, bookingID uint, action, actor string, changes map[string]interface{}) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("failed to encode modification: %w", err)
	}
	mod := models.BookingModification{BookingID: bookingID, Action: action, Actor: actor, Changes: datatypes.JSON(raw)}
	if err := tx.Create(&mod).Error; err != nil {
		return fmt.Errorf("failed to log modification: %w", err)
	}
	return nil
}

// recordedNightly decodes the breakdown saved at booking time. Bookings made
// before breakdowns were stored return nil.
func recordedNightly(b models.Booking) ([]engine.NightlyPrice, error) {
	if len(b.NightlyRates) == 0 || string(b.NightlyRates) == "null" {
		return nil, nil
	}
	var nightly []engine.NightlyPrice
	if err := json.Unmarshal(b.NightlyRates, &nightly); err != nil {
		return nil, fmt.Errorf("booking %d has unreadable nightly rates: %w", b.ID, err)
	}
	return nightly, nil
}

func storedNightly(b models.Booking) ([]engine.NightlyPrice, error) {
	nightly, err := recordedNightly(b)
	if err != nil || nightly != nil {
		return nightly, err
	}
	comp := map[string]bool{}
	if len(b.ComplimentaryDates) > 0 && string(b.ComplimentaryDates) != "null" {
		var dates []string
		if err := json.Unmarshal(b.ComplimentaryDates, &dates); err != nil {
			return nil, fmt.Errorf("booking %d has unreadable complimentary dates: %w", b.ID, err)
		}
		for _, d := range dates {
			comp[d] = true
		}
	}
	for _, d := range engine.StayDates(b.CheckInDate, b.CheckOutDate) {
		n := engine.NightlyPrice{Date: d, RateCode: b.RateCode, Price: b.RoomRate, Source: engine.SourceBase}
		if comp[engine.FormatDate(d)] {
			n.Price, n.Complimentary = decimal.Zero, true
		}
		nightly = append(nightly, n)
	}
	return nightly, nil
}

func newBookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("BK-%s-%s", now.UTC().Format("20060102"), suffix)
}

func paymentStatus(total, paid decimal.Decimal) string {
	switch {
	case !paid.IsPositive():
		return models.PaymentUnpaid
	case paid.LessThan(total):
		return models.PaymentPartial
	default:
		return models.PaymentPaid
	}
}

// stayRateCode is the plan code when one plan priced every night, else MIXED.
func stayRateCode(nightly []engine.NightlyPrice) string {
	code := ""
	for _, n := range nightly {
		if code == "" {
			code = n.RateCode
		} else if n.RateCode != code {
			return "MIXED"
		}
	}
	return code
}

func firstNightRate(nightly []engine.NightlyPrice) decimal.Decimal {
	if len(nightly) == 0 {
		return decimal.Zero
	}
	return nightly[0].Price
}
