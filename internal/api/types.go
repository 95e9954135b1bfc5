package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
)

type CreateAppointmentRequest struct {
	SubjectID           uuid.UUID `json:"subject_id" validate:"required"`
	LocationID          uuid.UUID `json:"location_id" validate:"required"`
	TimeSlotID          uuid.UUID `json:"time_slot_id" validate:"required"`
	AppointmentType     string    `json:"appointment_type" validate:"required,oneof=submission collection"`
	Notes               *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
	SpecialRequirements *string   `json:"special_requirements,omitempty" validate:"omitempty,max=500"`
}

type RescheduleRequest struct {
	NewTimeSlotID uuid.UUID `json:"new_time_slot_id" validate:"required"`
	Reason        string    `json:"reason,omitempty" validate:"max=500"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

type TimeRange struct {
	Start calendar.TimeOfDay `json:"start"`
	End   calendar.TimeOfDay `json:"end"`
}

type AvailabilityRequest struct {
	LocationID         uuid.UUID  `json:"location_id" validate:"required"`
	PreferredDate      string     `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	AlternativeDates   []string   `json:"alternative_dates,omitempty" validate:"max=5,dive,datetime=2006-01-02"`
	PreferredTimeRange *TimeRange `json:"preferred_time_range,omitempty"`
}

type GenerateSlotsRequest struct {
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	DaysAhead  int        `json:"days_ahead,omitempty" validate:"omitempty,min=1,max=90"`
}

type BlockSlotRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=200"`
}

type SlotResponse struct {
	ID                uuid.UUID          `json:"id"`
	Date              string             `json:"date"`
	StartTime         calendar.TimeOfDay `json:"start_time"`
	EndTime           calendar.TimeOfDay `json:"end_time"`
	StartsAt          time.Time          `json:"starts_at"`
	AvailableCapacity int                `json:"available_capacity"`
	Status            slot.Status        `json:"status"`
}

type AvailabilityResponse struct {
	LocationID       uuid.UUID                 `json:"location_id"`
	LocationName     string                    `json:"location_name"`
	RequestedDate    string                    `json:"requested_date"`
	AvailableSlots   []SlotResponse            `json:"available_slots"`
	AlternativeDates map[string][]SlotResponse `json:"alternative_dates"`
	TotalAvailable   int                       `json:"total_available"`
}

type GenerateSlotsResponse struct {
	SlotsCreated int `json:"slots_created"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func toSlotResponse(s slot.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:                s.ID,
		Date:              calendar.FormatDate(s.Date),
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		StartsAt:          s.StartsAt,
		AvailableCapacity: s.RemainingCapacity(),
		Status:            s.EffectiveStatus(),
	}
}

func toSlotResponses(ss []slot.TimeSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(ss))
	for _, s := range ss {
		out = append(out, toSlotResponse(s))
	}
	return out
}
