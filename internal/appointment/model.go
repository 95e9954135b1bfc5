package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "scheduled"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCheckedIn   AppointmentStatus = "checked_in"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusNoShow      AppointmentStatus = "no_show"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

var AllStatuses = []AppointmentStatus{
	StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted,
	StatusCancelled, StatusNoShow, StatusRescheduled,
}

// IsActive reports whether the appointment still holds its slot and counts
// against the one-active-per-type rule.
func (s AppointmentStatus) IsActive() bool {
	switch s {
	case StatusScheduled, StatusConfirmed:
		return true
	default:
		return false
	}
}

// HoldsSlot reports whether a unit of slot capacity is still booked for the
// appointment.
func (s AppointmentStatus) HoldsSlot() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusCompleted,
		StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	default:
		return false
	}
}

type AppointmentType string

const (
	TypeSubmission AppointmentType = "submission"
	TypeCollection AppointmentType = "collection"
)

func (t AppointmentType) Valid() bool {
	return t == TypeSubmission || t == TypeCollection
}

// RequiredSubjectStatus is the upstream status an application must be in for
// an appointment of this type to be booked.
func (t AppointmentType) RequiredSubjectStatus() subject.Status {
	switch t {
	case TypeSubmission:
		return subject.StatusSubmitted
	case TypeCollection:
		return subject.StatusReadyForPickup
	default:
		return ""
	}
}

type Appointment struct {
	ID                    uuid.UUID         `json:"id"`
	SubjectID             uuid.UUID         `json:"subject_id"`
	LocationID            uuid.UUID         `json:"location_id"`
	TimeSlotID            uuid.UUID         `json:"time_slot_id"`
	ScheduledAt           time.Time         `json:"scheduled_at"`
	DurationMinutes       int               `json:"duration_minutes"`
	Type                  AppointmentType   `json:"appointment_type"`
	Status                AppointmentStatus `json:"status"`
	ConfirmationCode      string            `json:"confirmation_code"`
	Notes                 *string           `json:"notes,omitempty"`
	SpecialRequirements   *string           `json:"special_requirements,omitempty"`
	RescheduleCount       int               `json:"reschedule_count"`
	OriginalAppointmentID *uuid.UUID        `json:"original_appointment_id,omitempty"`
	RescheduledFromAt     *time.Time        `json:"rescheduled_from_at,omitempty"`
	CheckedInAt           *time.Time        `json:"checked_in_at,omitempty"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	CancelledAt           *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason    *string           `json:"cancellation_reason,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

type CreateInput struct {
	SubjectID           uuid.UUID
	LocationID          uuid.UUID
	TimeSlotID          uuid.UUID
	Type                AppointmentType
	Notes               *string
	SpecialRequirements *string
}

type RescheduleInput struct {
	NewTimeSlotID uuid.UUID
	Reason        string
}

// Change describes a status transition and the columns it stamps.
type Change struct {
	To                 AppointmentStatus
	At                 time.Time
	CheckedInAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
}
