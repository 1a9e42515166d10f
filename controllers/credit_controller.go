package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/services"
)

type CreditController struct {
	CreditSvc  *services.CreditService
	BookingSvc *services.BookingService
}

func NewCreditController(credits *services.CreditService, bookings *services.BookingService) *CreditController {
	return &CreditController{CreditSvc: credits, BookingSvc: bookings}
}

// GET /api/guests/:id/credits
func (ctrl *CreditController) GetCredits(c *gin.Context) {
	guestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	credits, err := ctrl.CreditSvc.Balance(c.Request.Context(), guestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credits)
}

type grantCreditsPayload struct {
	RoomTypeID uint   `json:"room_type_id" binding:"required"`
	Nights     int    `json:"nights" binding:"required"`
	Notes      string `json:"notes"`
}

// POST /api/guests/:id/credits
func (ctrl *CreditController) GrantCredits(c *gin.Context) {
	guestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload grantCreditsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	credit, err := ctrl.CreditSvc.Grant(c.Request.Context(), guestID, payload.RoomTypeID, payload.Nights, payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}

type applyCreditsPayload struct {
	RoomTypeID uint     `json:"room_type_id" binding:"required"`
	CheckIn    string   `json:"check_in" binding:"required"`
	CheckOut   string   `json:"check_out" binding:"required"`
	Dates      []string `json:"dates"`
}

// POST /api/guests/:id/credits/apply previews spending credits on a stay.
func (ctrl *CreditController) ApplyCredits(c *gin.Context) {
	guestID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload applyCreditsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	in, err := engine.ParseDate("check_in", payload.CheckIn)
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := engine.ParseDate("check_out", payload.CheckOut)
	if err != nil {
		respondError(c, err)
		return
	}
	dates := make([]time.Time, 0, len(payload.Dates))
	for _, raw := range payload.Dates {
		d, err := engine.ParseDate("dates", raw)
		if err != nil {
			respondError(c, err)
			return
		}
		dates = append(dates, d)
	}
	app, err := ctrl.BookingSvc.ApplyComplimentaryCredits(c.Request.Context(), guestID, payload.RoomTypeID, in, out, dates)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}
