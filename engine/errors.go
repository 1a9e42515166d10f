package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation          = errors.New("validation")
	ErrConflict            = errors.New("booking conflict")
	ErrRateResolution      = errors.New("rate resolution failed")
	ErrInsufficientCredits = errors.New("insufficient complimentary credits")
	ErrConcurrencyConflict = errors.New("concurrent modification")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrNotFound            = errors.New("not found")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError lists the active bookings that overlap a requested stay.
type ConflictError struct {
	RoomID     uint
	BookingIDs []uint
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.BookingIDs))
	for i, id := range e.BookingIDs {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("room %d is booked by [%s]", e.RoomID, strings.Join(ids, ","))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

const (
	ReasonNoApplicablePlan = "no_applicable_plan"
	ReasonStayLength       = "stay_length"
)

type RateResolutionError struct {
	Reason string
	Date   time.Time
	Detail string
}

func (e *RateResolutionError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("rate resolution: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("rate resolution: %s on %s: %s", e.Reason, FormatDate(e.Date), e.Detail)
}

func (e *RateResolutionError) Is(target error) bool { return target == ErrRateResolution }

type InsufficientCreditsError struct {
	Selected  int
	Available int
}

// Deficit is how many more credits the selection needs.
func (e *InsufficientCreditsError) Deficit() int { return e.Selected - e.Available }

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient complimentary credits: selected %d, available %d", e.Selected, e.Available)
}

func (e *InsufficientCreditsError) Is(target error) bool { return target == ErrInsufficientCredits }

// ConcurrencyConflictError means a racing writer won. Callers may retry once.
type ConcurrencyConflictError struct {
	RoomID uint
	Err    error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("concurrent booking on room %d", e.RoomID)
	}
	return fmt.Sprintf("concurrent booking on room %d: %v", e.RoomID, e.Err)
}

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

func (e *ConcurrencyConflictError) Unwrap() error { return e.Err }
