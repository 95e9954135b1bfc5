package location

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/calendar"
)

// Location is a passport office that publishes bookable hours.
type Location struct {
	ID                     uuid.UUID          `json:"id"`
	Name                   string             `json:"name" validate:"required,min=2,max=200"`
	Address                string             `json:"address" validate:"required,min=10,max=500"`
	Phone                  *string            `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email                  *string            `json:"email,omitempty" validate:"omitempty,email"`
	OpensAt                calendar.TimeOfDay `json:"opens_at" validate:"min=0,max=1439"`
	ClosesAt               calendar.TimeOfDay `json:"closes_at" validate:"min=0,max=1439"`
	OperatingDays          calendar.Weekdays  `json:"operating_days" validate:"required,min=1,unique,dive,min=0,max=6"`
	Timezone               string             `json:"timezone" validate:"required,timezone"`
	SlotDurationMinutes    int                `json:"slot_duration_minutes" validate:"min=5,max=60"`
	MaxAppointmentsPerSlot int                `json:"max_appointments_per_slot" validate:"min=1,max=10"`
	AdvanceBookingDays     int                `json:"advance_booking_days" validate:"min=1,max=90"`
	IsActive               bool               `json:"is_active"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// TZ returns the office timezone, falling back to UTC for unknown names.
func (l Location) TZ() *time.Location {
	tz, err := calendar.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return tz
}

// Today is the office's current calendar date.
func (l Location) Today(now time.Time) time.Time {
	return calendar.DateOf(now, l.TZ())
}

func (l Location) IsOpenOn(date time.Time) bool {
	return l.OperatingDays.Contains(calendar.WeekdayOf(date))
}

// LastBookableDate is the furthest date the office accepts bookings for.
func (l Location) LastBookableDate(now time.Time) time.Time {
	return calendar.AddDays(l.Today(now), l.AdvanceBookingDays)
}

// CreateInput carries the administrative fields of a new location. Zero values
// fall back to the office defaults.
type CreateInput struct {
	Name                   string              `json:"name"`
	Address                string              `json:"address"`
	Phone                  *string             `json:"phone,omitempty"`
	Email                  *string             `json:"email,omitempty"`
	OpensAt                *calendar.TimeOfDay `json:"opens_at,omitempty"`
	ClosesAt               *calendar.TimeOfDay `json:"closes_at,omitempty"`
	OperatingDays          calendar.Weekdays   `json:"operating_days,omitempty"`
	Timezone               string              `json:"timezone,omitempty"`
	SlotDurationMinutes    int                 `json:"slot_duration_minutes,omitempty"`
	MaxAppointmentsPerSlot int                 `json:"max_appointments_per_slot,omitempty"`
	AdvanceBookingDays     int                 `json:"advance_booking_days,omitempty"`
}

// UpdateInput is a partial patch; nil fields are left unchanged.
type UpdateInput struct {
	Name                   *string             `json:"name,omitempty"`
	Address                *string             `json:"address,omitempty"`
	Phone                  *string             `json:"phone,omitempty"`
	Email                  *string             `json:"email,omitempty"`
	OpensAt                *calendar.TimeOfDay `json:"opens_at,omitempty"`
	ClosesAt               *calendar.TimeOfDay `json:"closes_at,omitempty"`
	OperatingDays          *calendar.Weekdays  `json:"operating_days,omitempty"`
	Timezone               *string             `json:"timezone,omitempty"`
	SlotDurationMinutes    *int                `json:"slot_duration_minutes,omitempty"`
	MaxAppointmentsPerSlot *int                `json:"max_appointments_per_slot,omitempty"`
	AdvanceBookingDays     *int                `json:"advance_booking_days,omitempty"`
	IsActive               *bool               `json:"is_active,omitempty"`
}

func (in CreateInput) toLocation(defaultTZ string) Location {
	l := Location{
		Name:                   in.Name,
		Address:                in.Address,
		Phone:                  in.Phone,
		Email:                  in.Email,
		OpensAt:                calendar.NewTimeOfDay(8, 0),
		ClosesAt:               calendar.NewTimeOfDay(17, 0),
		OperatingDays:          calendar.Weekdays{calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday, calendar.Friday},
		Timezone:               defaultTZ,
		SlotDurationMinutes:    15,
		MaxAppointmentsPerSlot: 1,
		AdvanceBookingDays:     14,
		IsActive:               true,
	}
	if in.OpensAt != nil {
		l.OpensAt = *in.OpensAt
	}
	if in.ClosesAt != nil {
		l.ClosesAt = *in.ClosesAt
	}
	if len(in.OperatingDays) > 0 {
		l.OperatingDays = in.OperatingDays
	}
	if in.Timezone != "" {
		l.Timezone = in.Timezone
	}
	if in.SlotDurationMinutes != 0 {
		l.SlotDurationMinutes = in.SlotDurationMinutes
	}
	if in.MaxAppointmentsPerSlot != 0 {
		l.MaxAppointmentsPerSlot = in.MaxAppointmentsPerSlot
	}
	if in.AdvanceBookingDays != 0 {
		l.AdvanceBookingDays = in.AdvanceBookingDays
	}
	return l
}

func (in UpdateInput) applyTo(l Location) Location {
	if in.Name != nil {
		l.Name = *in.Name
	}
	if in.Address != nil {
		l.Address = *in.Address
	}
	if in.Phone != nil {
		l.Phone = in.Phone
	}
	if in.Email != nil {
		l.Email = in.Email
	}
	if in.OpensAt != nil {
		l.OpensAt = *in.OpensAt
	}
	if in.ClosesAt != nil {
		l.ClosesAt = *in.ClosesAt
	}
	if in.OperatingDays != nil {
		l.OperatingDays = *in.OperatingDays
	}
	if in.Timezone != nil {
		l.Timezone = *in.Timezone
	}
	if in.SlotDurationMinutes != nil {
		l.SlotDurationMinutes = *in.SlotDurationMinutes
	}
	if in.MaxAppointmentsPerSlot != nil {
		l.MaxAppointmentsPerSlot = *in.MaxAppointmentsPerSlot
	}
	if in.AdvanceBookingDays != nil {
		l.AdvanceBookingDays = *in.AdvanceBookingDays
	}
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	return l
}
