package slot

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBooked      Status = "booked"
	StatusBlocked     Status = "blocked"
	StatusUnavailable Status = "unavailable"
)

var (
	ErrSlotNotFound    = apperr.NotFound("time_slot")
	ErrSlotFull        = apperr.CapacityExceeded("slot_full", "time slot has no remaining capacity")
	ErrSlotUnavailable = apperr.CapacityExceeded("slot_unavailable", "time slot is blocked or unavailable")
	ErrInvalidWindow   = apperr.InvalidRequest("invalid_time_range", "start time must not be after end time")
)

// TimeSlot is one bookable interval at a location on a given date.
type TimeSlot struct {
	ID              uuid.UUID          `json:"id"`
	LocationID      uuid.UUID          `json:"location_id"`
	Date            time.Time          `json:"slot_date"`
	StartTime       calendar.TimeOfDay `json:"start_time"`
	EndTime         calendar.TimeOfDay `json:"end_time"`
	StartsAt        time.Time          `json:"starts_at"`
	MaxCapacity     int                `json:"max_capacity"`
	CurrentBookings int                `json:"current_bookings"`
	Status          Status             `json:"status"`
	BlockedReason   *string            `json:"blocked_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// EffectiveStatus derives available/booked from the counters. Blocked and
// unavailable are administrative and win over the counters.
func (s TimeSlot) EffectiveStatus() Status {
	switch s.Status {
	case StatusBlocked, StatusUnavailable:
		return s.Status
	case StatusAvailable, StatusBooked:
		if s.CurrentBookings >= s.MaxCapacity {
			return StatusBooked
		}
		return StatusAvailable
	default:
		return StatusUnavailable
	}
}

func (s TimeSlot) RemainingCapacity() int {
	return max(0, s.MaxCapacity-s.CurrentBookings)
}

// IsAvailable reports whether the slot can take a booking at asOf.
func (s TimeSlot) IsAvailable(asOf time.Time) bool {
	return s.EffectiveStatus() == StatusAvailable &&
		s.CurrentBookings < s.MaxCapacity &&
		s.StartsAt.After(asOf)
}

func (s TimeSlot) DurationMinutes() int {
	return s.EndTime.Minutes() - s.StartTime.Minutes()
}

// Window is an inclusive filter on slot start times.
type Window struct {
	Start calendar.TimeOfDay `json:"start"`
	End   calendar.TimeOfDay `json:"end"`
}

func (w Window) Validate() error {
	if !w.Start.Valid() || !w.End.Valid() || w.Start > w.End {
		return ErrInvalidWindow
	}
	return nil
}

func (w Window) Contains(t calendar.TimeOfDay) bool {
	return t >= w.Start && t <= w.End
}
