package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hotel-booking-engine/engine"
	"hotel-booking-engine/utils"
)

// respondError maps engine and service errors to HTTP results.
func respondError(c *gin.Context, err error) {
	var (
		ve  *engine.ValidationError
		ce  *engine.ConflictError
		re  *engine.RateResolutionError
		ice *engine.InsufficientCreditsError
		cce *engine.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &ve):
		utils.JSONError(c, http.StatusBadRequest, "error.validation", ve.Error(), gin.H{"field": ve.Field})
	case errors.As(err, &ce):
		utils.JSONError(c, http.StatusConflict, "error.bookingConflict", ce.Error(), gin.H{
			"roomId":     ce.RoomID,
			"bookingIds": ce.BookingIDs,
		})
	case errors.As(err, &cce):
		utils.JSONError(c, http.StatusConflict, "error.concurrencyConflict",
			"another booking for this room was saved at the same time; check availability and retry",
			gin.H{"roomId": cce.RoomID, "retryable": true})
	case errors.As(err, &re):
		details := gin.H{"reason": re.Reason}
		if !re.Date.IsZero() {
			details["date"] = engine.FormatDate(re.Date)
		}
		utils.JSONError(c, http.StatusUnprocessableEntity, "error.rateResolution", re.Error(), details)
	case errors.As(err, &ice):
		utils.JSONError(c, http.StatusUnprocessableEntity, "error.insufficientCredits", ice.Error(), gin.H{
			"selected":  ice.Selected,
			"available": ice.Available,
			"deficit":   ice.Deficit(),
		})
	case errors.Is(err, engine.ErrIllegalTransition):
		utils.JSONError(c, http.StatusConflict, "error.illegalTransition", err.Error(), nil)
	case errors.Is(err, engine.ErrConflict):
		utils.JSONError(c, http.StatusConflict, "error.roomUnavailable", err.Error(), nil)
	case errors.Is(err, engine.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "error.notFound", err.Error(), nil)
	default:
		log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		utils.JSONError(c, http.StatusInternalServerError, "error.internal", "internal server error", nil)
	}
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "error.invalidPayload", "Invalid request payload", gin.H{"details": err.Error()})
}

// idParam reads a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId", name+" must be a positive integer", nil)
		return 0, false
	}
	return uint(id), true
}

// queryID reads an optional numeric query parameter; absent means 0.
func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &engine.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return uint(id), nil
}

func optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := engine.ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
