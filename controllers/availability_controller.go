package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/services"
)

type AvailabilityController struct {
	BookingSvc *services.BookingService
}

func NewAvailabilityController(svc *services.BookingService) *AvailabilityController {
	return &AvailabilityController{BookingSvc: svc}
}

// GET /api/availability?room_id=&check_in=&check_out=
// An unavailable room is still a 200; the body lists the blocking bookings.
func (ctrl *AvailabilityController) CheckAvailability(c *gin.Context) {
	roomID, err := queryID(c, "room_id")
	if err == nil && roomID == 0 {
		err = &engine.ValidationError{Field: "room_id", Message: "is required"}
	}
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := engine.ParseDate("check_in", c.Query("check_in"))
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := engine.ParseDate("check_out", c.Query("check_out"))
	if err != nil {
		respondError(c, err)
		return
	}
	avail, err := ctrl.BookingSvc.CheckAvailability(c.Request.Context(), roomID, in, out)
	if err != nil {
		respondError(c, err)
		return
	}
	ids := avail.ConflictingBookingIDs
	if ids == nil {
		ids = []uint{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":                avail.RoomID,
		"checkIn":               engine.FormatDate(avail.CheckIn),
		"checkOut":              engine.FormatDate(avail.CheckOut),
		"available":             avail.Available,
		"conflictingBookingIds": ids,
	})
}

// GET /api/availability/audit
func (ctrl *AvailabilityController) AuditOverlaps(c *gin.Context) {
	pairs, err := ctrl.BookingSvc.AuditOverlaps(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overlaps": pairs, "count": len(pairs)})
}
