package engine

import (
	"sort"
	"time"

	"hotel-booking-engine/models"
)

// Overlaps reports whether half-open ranges [a0, a1) and [b0, b1) share a night.
// Back-to-back stays (a1 == b0) do not overlap.
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return DateOf(a0).Before(DateOf(b1)) && DateOf(b0).Before(DateOf(a1))
}

// Availability is the outcome of a calendar check. A conflict is a result,
// not an error; use Err to turn it into one.
type Availability struct {
	RoomID                uint      `json:"roomId"`
	CheckIn               time.Time `json:"-"`
	CheckOut              time.Time `json:"-"`
	Available             bool      `json:"available"`
	ConflictingBookingIDs []uint    `json:"conflictingBookingIds"`
}

func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &ConflictError{RoomID: a.RoomID, BookingIDs: a.ConflictingBookingIDs}
}

// CheckAvailability tests [in, out) against the existing bookings of roomID.
// Bookings for other rooms and inactive bookings are ignored.
func CheckAvailability(existing []models.Booking, roomID uint, in, out time.Time) (Availability, error) {
	if err := ValidateStay(in, out); err != nil {
		return Availability{}, err
	}
	res := Availability{
		RoomID:                roomID,
		CheckIn:               DateOf(in),
		CheckOut:              DateOf(out),
		ConflictingBookingIDs: []uint{},
	}
	for _, b := range existing {
		if b.RoomID != roomID || !b.Status.Active() {
			continue
		}
		if Overlaps(in, out, b.CheckInDate, b.CheckOutDate) {
			res.ConflictingBookingIDs = append(res.ConflictingBookingIDs, b.ID)
		}
	}
	sort.Slice(res.ConflictingBookingIDs, func(i, j int) bool {
		return res.ConflictingBookingIDs[i] < res.ConflictingBookingIDs[j]
	})
	res.Available = len(res.ConflictingBookingIDs) == 0
	return res, nil
}

// OverlapPair is two active bookings of the same room sharing at least one night.
type OverlapPair struct {
	RoomID uint `json:"roomId"`
	First  uint `json:"first"`
	Second uint `json:"second"`
}

// FindOverlaps scans a calendar for any pair of active bookings that break
// the one-stay-per-night rule.
func FindOverlaps(bookings []models.Booking) []OverlapPair {
	byRoom := map[uint][]models.Booking{}
	for _, b := range bookings {
		if b.Status.Active() {
			byRoom[b.RoomID] = append(byRoom[b.RoomID], b)
		}
	}
	rooms := make([]uint, 0, len(byRoom))
	for id := range byRoom {
		rooms = append(rooms, id)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })

	var out []OverlapPair
	for _, roomID := range rooms {
		list := byRoom[roomID]
		sort.Slice(list, func(i, j int) bool {
			if !list[i].CheckInDate.Equal(list[j].CheckInDate) {
				return list[i].CheckInDate.Before(list[j].CheckInDate)
			}
			return list[i].ID < list[j].ID
		})
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if !DateOf(list[j].CheckInDate).Before(DateOf(list[i].CheckOutDate)) {
					break
				}
				out = append(out, OverlapPair{RoomID: roomID, First: list[i].ID, Second: list[j].ID})
			}
		}
	}
	return out
}
