package engine

import (
	"fmt"

	"hotel-booking-engine/models"
)

var roomTransitions = map[models.RoomStatus][]models.RoomStatus{
	models.RoomAvailable:   {models.RoomReserved, models.RoomOccupied, models.RoomCleaning, models.RoomDirty, models.RoomMaintenance, models.RoomOutOfOrder},
	models.RoomReserved:    {models.RoomOccupied, models.RoomAvailable, models.RoomMaintenance},
	models.RoomOccupied:    {models.RoomDirty, models.RoomCleaning, models.RoomAvailable, models.RoomMaintenance},
	models.RoomDirty:       {models.RoomCleaning, models.RoomAvailable, models.RoomMaintenance, models.RoomOutOfOrder},
	models.RoomCleaning:    {models.RoomAvailable, models.RoomDirty, models.RoomMaintenance},
	models.RoomMaintenance: {models.RoomAvailable, models.RoomDirty, models.RoomCleaning, models.RoomOutOfOrder},
	models.RoomOutOfOrder:  {models.RoomMaintenance, models.RoomAvailable},
}

var bookingTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCheckedIn, models.BookingCancelled, models.BookingNoShow},
	models.BookingConfirmed: {models.BookingCheckedIn, models.BookingCancelled, models.BookingNoShow},
	models.BookingCheckedIn: {models.BookingCheckedOut},
}

type TransitionError struct {
	Kind string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s status cannot change from %s to %s", e.Kind, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

func ValidRoomStatus(s models.RoomStatus) bool {
	_, ok := roomTransitions[s]
	return ok
}

func CanTransitionRoom(from, to models.RoomStatus) bool {
	for _, s := range roomTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionRoom returns to when the adjacency table allows from → to.
func TransitionRoom(from, to models.RoomStatus) (models.RoomStatus, error) {
	if !ValidRoomStatus(to) {
		return from, invalid("status", "unknown room status %q", to)
	}
	if !CanTransitionRoom(from, to) {
		return from, &TransitionError{Kind: "room", From: string(from), To: string(to)}
	}
	return to, nil
}

func TransitionBooking(from, to models.BookingStatus) (models.BookingStatus, error) {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return to, nil
		}
	}
	return from, &TransitionError{Kind: "booking", From: string(from), To: string(to)}
}
