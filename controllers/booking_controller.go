package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/middleware"
	"hotel-booking-engine/models"
	"hotel-booking-engine/services"
)

// CreateBookingRequest is the reservation payload. Dates are YYYY-MM-DD.
type CreateBookingRequest struct {
	RoomID    uint   `json:"room_id" binding:"required"`
	GuestID   uint   `json:"guest_id" binding:"required"`
	CheckIn   string `json:"check_in" binding:"required"`
	CheckOut  string `json:"check_out" binding:"required"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
	ExtraBeds int    `json:"extra_beds"`
	RateCode  string `json:"rate_code"`

	Discount              decimal.Decimal  `json:"discount"`
	InclusiveNightlyPrice *decimal.Decimal `json:"inclusive_nightly_price,omitempty"`
	ComplimentaryDates    []string         `json:"complimentary_dates,omitempty"`

	DepositPaid   bool             `json:"deposit_paid"`
	DepositAmount *decimal.Decimal `json:"deposit_amount,omitempty"`
	PaidAmount    decimal.Decimal  `json:"paid_amount"`
	Status        string           `json:"status"`
	PostType      string           `json:"post_type"`
}

func (p CreateBookingRequest) toService(actor string) (services.BookingRequest, error) {
	in, err := engine.ParseDate("check_in", p.CheckIn)
	if err != nil {
		return services.BookingRequest{}, err
	}
	out, err := engine.ParseDate("check_out", p.CheckOut)
	if err != nil {
		return services.BookingRequest{}, err
	}
	var comp []time.Time
	for _, raw := range p.ComplimentaryDates {
		d, err := engine.ParseDate("complimentary_dates", raw)
		if err != nil {
			return services.BookingRequest{}, err
		}
		comp = append(comp, d)
	}
	return services.BookingRequest{
		RoomID:                p.RoomID,
		GuestID:               p.GuestID,
		CheckIn:               in,
		CheckOut:              out,
		Adults:                p.Adults,
		Children:              p.Children,
		ExtraBeds:             p.ExtraBeds,
		RateCode:              p.RateCode,
		Discount:              p.Discount,
		InclusiveNightlyPrice: p.InclusiveNightlyPrice,
		ComplimentaryDates:    comp,
		DepositPaid:           p.DepositPaid,
		DepositAmount:         p.DepositAmount,
		PaidAmount:            p.PaidAmount,
		Status:                models.BookingStatus(p.Status),
		PostType:              p.PostType,
		Actor:                 actor,
	}, nil
}

type BookingController struct {
	BookingSvc *services.BookingService
}

func NewBookingController(svc *services.BookingService) *BookingController {
	return &BookingController{BookingSvc: svc}
}

func (ctrl *BookingController) bind(c *gin.Context) (services.BookingRequest, bool) {
	var payload CreateBookingRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return services.BookingRequest{}, false
	}
	req, err := payload.toService(middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return services.BookingRequest{}, false
	}
	return req, true
}

// GET /api/bookings?room_id=&guest_id=&status=&from=&to=
func (ctrl *BookingController) GetBookings(c *gin.Context) {
	roomID, err := queryID(c, "room_id")
	if err != nil {
		respondError(c, err)
		return
	}
	guestID, err := queryID(c, "guest_id")
	if err != nil {
		respondError(c, err)
		return
	}
	from, err := optionalDate("from", c.Query("from"))
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := optionalDate("to", c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	list, err := ctrl.BookingSvc.ListBookings(c.Request.Context(), services.BookingFilter{
		RoomID:  roomID,
		GuestID: guestID,
		Status:  models.BookingStatus(c.Query("status")),
		From:    from,
		To:      to,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /api/bookings/quote
func (ctrl *BookingController) QuoteBooking(c *gin.Context) {
	req, ok := ctrl.bind(c)
	if !ok {
		return
	}
	q, err := ctrl.BookingSvc.QuoteBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /api/bookings
func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	req, ok := ctrl.bind(c)
	if !ok {
		return
	}
	b, err := ctrl.BookingSvc.CreateBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/bookings/:id
func (ctrl *BookingController) GetBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := ctrl.BookingSvc.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/bookings/:id/modifications
func (ctrl *BookingController) GetModifications(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	mods, err := ctrl.BookingSvc.ListModifications(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mods)
}

// POST /api/bookings/:id/checkin
func (ctrl *BookingController) CheckIn(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := ctrl.BookingSvc.CheckIn(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type cancelPayload struct {
	Reason string `json:"reason"`
}

// POST /api/bookings/:id/cancel
func (ctrl *BookingController) CancelBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload cancelPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, err)
			return
		}
	}
	b, err := ctrl.BookingSvc.CancelBooking(c.Request.Context(), id, payload.Reason, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/:id/no-show
func (ctrl *BookingController) MarkNoShow(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	b, err := ctrl.BookingSvc.MarkNoShow(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type shortenPayload struct {
	CheckOut string `json:"check_out" binding:"required"`
}

// POST /api/bookings/:id/shorten
func (ctrl *BookingController) ShortenStay(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload shortenPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	out, err := engine.ParseDate("check_out", payload.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := ctrl.BookingSvc.ShortenStay(c.Request.Context(), id, out, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/bookings/:id/checkout-preview?late_penalty=
func (ctrl *BookingController) PreviewCheckout(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var penalty *decimal.Decimal
	if raw := c.Query("late_penalty"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, &engine.ValidationError{Field: "late_penalty", Message: "must be a decimal amount"})
			return
		}
		penalty = &d
	}
	charges, err := ctrl.BookingSvc.PreviewCheckout(c.Request.Context(), id, penalty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, charges)
}

type checkoutPayload struct {
	LatePenalty *decimal.Decimal `json:"late_penalty,omitempty"`
}

// POST /api/bookings/:id/checkout
func (ctrl *BookingController) CheckoutBooking(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload checkoutPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := ctrl.BookingSvc.Checkout(c.Request.Context(), id, payload.LatePenalty, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
