package appointment

import (
	"time"
	"unicode/utf8"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
)

const (
	MaxReschedules   = 3
	RescheduleCutoff = 24 * time.Hour

	MinCancelReasonLen = 5
	MaxCancelReasonLen = 500
	MaxTextLen         = 500
)

var (
	ErrRescheduleLimit = apperr.PolicyViolation("reschedule_limit_reached",
		"appointment has already been rescheduled the maximum number of times")
	ErrRescheduleTooLate = apperr.PolicyViolation("reschedule_window_closed",
		"appointments can only be rescheduled at least 24 hours in advance")
)

func invalidTransition(op string, from AppointmentStatus) error {
	return ErrInvalidStatusTransition.WithDetails(map[string]any{
		"operation": op,
		"status":    string(from),
	})
}

// CheckReschedule enforces status, count and notice period. Status problems
// are InvalidState; count and notice are PolicyViolation.
func CheckReschedule(a *Appointment, now time.Time) error {
	if !a.Status.IsActive() {
		return invalidTransition("reschedule", a.Status)
	}
	if a.RescheduleCount >= MaxReschedules {
		return ErrRescheduleLimit.WithDetails(map[string]any{
			"reschedule_count": a.RescheduleCount,
			"max_reschedules":  MaxReschedules,
		})
	}
	if a.ScheduledAt.Sub(now) < RescheduleCutoff {
		return ErrRescheduleTooLate
	}
	return nil
}

func CanBeRescheduled(a *Appointment, now time.Time) bool {
	return CheckReschedule(a, now) == nil
}

// CheckCancel has no notice period. Appointments whose slot was already given
// back (no-show, rescheduled) cannot be cancelled, so capacity is released once.
func CheckCancel(a *Appointment) error {
	switch a.Status {
	case StatusScheduled, StatusConfirmed, StatusCheckedIn:
		return nil
	default:
		return invalidTransition("cancel", a.Status)
	}
}

func CheckCancelReason(reason string) error {
	n := utf8.RuneCountInString(reason)
	if n < MinCancelReasonLen || n > MaxCancelReasonLen {
		return ErrInvalidReason
	}
	return nil
}

func CheckConfirm(a *Appointment) error {
	if a.Status != StatusScheduled {
		return invalidTransition("confirm", a.Status)
	}
	return nil
}

// CheckCheckIn requires a confirmed appointment on the office's current date.
func CheckCheckIn(a *Appointment, now time.Time, tz *time.Location) error {
	if a.Status != StatusConfirmed {
		return invalidTransition("check_in", a.Status)
	}
	if !calendar.DateOf(a.ScheduledAt, tz).Equal(calendar.DateOf(now, tz)) {
		return ErrNotToday.WithDetails(map[string]any{
			"scheduled_date": calendar.FormatDate(calendar.DateOf(a.ScheduledAt, tz)),
		})
	}
	return nil
}

func CheckComplete(a *Appointment) error {
	if a.Status != StatusCheckedIn {
		return invalidTransition("complete", a.Status)
	}
	return nil
}

func CheckNoShow(a *Appointment, now time.Time) error {
	if !a.Status.IsActive() {
		return invalidTransition("no_show", a.Status)
	}
	if !a.ScheduledAt.Before(now) {
		return ErrNotYetDue
	}
	return nil
}
