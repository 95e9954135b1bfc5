package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
)

var (
	ErrAppointmentNotFound     = apperr.NotFound("appointment")
	ErrInvalidStatusTransition = apperr.InvalidState("invalid_status_transition", "appointment is not in a state that allows this action")
	ErrStaleStatus             = apperr.InvalidState("status_changed", "appointment status changed concurrently, reload and retry")
	ErrActiveAppointmentExists = apperr.InvalidState("active_appointment_exists", "subject already has an active appointment of this type")
	ErrSubjectNotEligible      = apperr.InvalidState("subject_not_eligible", "application status does not allow this appointment type")
	ErrNotToday                = apperr.InvalidState("not_scheduled_today", "only appointments scheduled for today can be checked in")
	ErrNotYetDue               = apperr.InvalidState("not_yet_due", "appointment time has not passed yet")

	ErrSlotLocationMismatch = apperr.InvalidRequest("slot_location_mismatch", "time slot does not belong to the requested location")
	ErrSlotInPast           = apperr.InvalidRequest("slot_in_past", "time slot has already started")
	ErrSameSlot             = apperr.InvalidRequest("same_time_slot", "new time slot must differ from the current one")
	ErrInvalidType          = apperr.InvalidRequest("invalid_appointment_type", "appointment type must be submission or collection")
	ErrInvalidReason        = apperr.InvalidRequest("invalid_cancellation_reason", "cancellation reason must be between 5 and 500 characters")
	ErrTextTooLong          = apperr.InvalidRequest("text_too_long", "notes and special requirements are limited to 500 characters")
)

// Repository contains all DB interactions needed by the service. Every method
// joins the transaction carried by ctx.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate reads the row and holds its lock until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByConfirmationCode(ctx context.Context, code string) (*Appointment, error)
	FindActive(ctx context.Context, subjectID uuid.UUID, typ AppointmentType) (*Appointment, error)

	Insert(ctx context.Context, a *Appointment) (*Appointment, error)
	// Transition applies change only if the row is still in from.
	Transition(ctx context.Context, id uuid.UUID, from AppointmentStatus, change Change) (*Appointment, error)

	ListForSubject(ctx context.Context, subjectID uuid.UUID, includeCompleted bool) ([]Appointment, error)
	ListForLocation(ctx context.Context, locationID uuid.UUID, from, to time.Time) ([]Appointment, error)
	History(ctx context.Context, id uuid.UUID) ([]Appointment, error)
	FindOverdue(ctx context.Context, before time.Time, limit int) ([]Appointment, error)
}
