package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/db"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/metrics"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

const (
	opCreate     = "create"
	opConfirm    = "confirm"
	opCheckIn    = "check_in"
	opComplete   = "complete"
	opCancel     = "cancel"
	opNoShow     = "no_show"
	opReschedule = "reschedule"

	noShowBatchSize = 500
)

// SlotLedger is the capacity side of every booking change.
type SlotLedger interface {
	Get(ctx context.Context, id uuid.UUID) (*slot.TimeSlot, error)
	Book(ctx context.Context, id uuid.UUID) (*slot.TimeSlot, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// SubjectDirectory is the upstream application workflow.
type SubjectDirectory interface {
	GetSubjectStatus(ctx context.Context, id uuid.UUID) (subject.Status, error)
	MarkSubjectCollected(ctx context.Context, id uuid.UUID, at time.Time) error
}

type LocationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*location.Location, error)
	GetActive(ctx context.Context, id uuid.UUID) (*location.Location, error)
}

// Transactor runs fn in one storage transaction, re-running it on transient failures.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Repo      Repository
	Ledger    SlotLedger
	Subjects  SubjectDirectory
	Locations LocationSource
	Tx        Transactor
	Clock     calendar.Clock
	Log       *logging.Logger
	Metrics   *metrics.SchedulingMetrics

	// RequireConfirmation makes new bookings start at scheduled.
	RequireConfirmation bool
	// NewCode overrides confirmation code generation.
	NewCode func() (string, error)
}

type Service struct {
	repo      Repository
	ledger    SlotLedger
	subjects  SubjectDirectory
	locations LocationSource
	tx        Transactor
	clock     calendar.Clock
	log       *logging.Logger
	metrics   *metrics.SchedulingMetrics

	initialStatus AppointmentStatus
	newCode       func() (string, error)
}

func NewService(d Deps) *Service {
	s := &Service{
		repo:          d.Repo,
		ledger:        d.Ledger,
		subjects:      d.Subjects,
		locations:     d.Locations,
		tx:            d.Tx,
		clock:         d.Clock,
		log:           d.Log,
		metrics:       d.Metrics,
		initialStatus: StatusConfirmed,
		newCode:       d.NewCode,
	}
	if s.clock == nil {
		s.clock = calendar.SystemClock{}
	}
	if s.log == nil {
		s.log = logging.Default()
	}
	if s.newCode == nil {
		s.newCode = NewConfirmationCode
	}
	if d.RequireConfirmation {
		s.initialStatus = StatusScheduled
	}
	return s
}

// Create books a slot for a subject. The capacity increment and the appointment
// insert commit together or not at all.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	created, err := s.create(ctx, in)
	s.observe(opCreate, err)
	if err != nil {
		s.logFailure(opCreate, err, "subject_id", in.SubjectID, "time_slot_id", in.TimeSlotID)
		return nil, err
	}

	s.log.Info("appointment booked",
		"appointment_id", created.ID,
		"subject_id", created.SubjectID,
		"time_slot_id", created.TimeSlotID,
		"status", created.Status,
		"confirmation_code", created.ConfirmationCode)
	return created, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidType
	}
	if tooLong(in.Notes) || tooLong(in.SpecialRequirements) {
		return nil, ErrTextTooLong
	}

	now := s.clock.Now()

	if _, err := s.locations.GetActive(ctx, in.LocationID); err != nil {
		return nil, err
	}

	var created *Appointment
	err := s.withFreshCode(ctx, func(ctx context.Context, code string) error {
		status, err := s.subjects.GetSubjectStatus(ctx, in.SubjectID)
		if err != nil {
			return err
		}
		if required := in.Type.RequiredSubjectStatus(); status != required {
			return ErrSubjectNotEligible.WithDetails(map[string]any{
				"subject_status":  string(status),
				"required_status": string(required),
			})
		}

		if err := s.ensureNoActive(ctx, in.SubjectID, in.Type); err != nil {
			return err
		}

		ts, err := s.ledger.Get(ctx, in.TimeSlotID)
		if err != nil {
			return err
		}
		if ts.LocationID != in.LocationID {
			return ErrSlotLocationMismatch
		}
		if !ts.StartsAt.After(now) {
			return ErrSlotInPast
		}

		booked, err := s.ledger.Book(ctx, ts.ID)
		if err != nil {
			return err
		}

		created, err = s.insert(ctx, &Appointment{
			ID:                  uuid.New(),
			SubjectID:           in.SubjectID,
			LocationID:          booked.LocationID,
			TimeSlotID:          booked.ID,
			ScheduledAt:         booked.StartsAt,
			DurationMinutes:     booked.DurationMinutes(),
			Type:                in.Type,
			Status:              s.initialStatus,
			ConfirmationCode:    code,
			Notes:               in.Notes,
			SpecialRequirements: in.SpecialRequirements,
			CreatedAt:           now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) ensureNoActive(ctx context.Context, subjectID uuid.UUID, typ AppointmentType) error {
	existing, err := s.repo.FindActive(ctx, subjectID, typ)
	if err == nil {
		return ErrActiveAppointmentExists.WithDetails(map[string]any{
			"appointment_id": existing.ID.String(),
		})
	}
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil
	}
	return fmt.Errorf("find active appointment: %w", err)
}

func (s *Service) insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	created, err := s.repo.Insert(ctx, a)
	if db.IsUniqueViolation(err, constraintOneActivePerType) {
		return nil, ErrActiveAppointmentExists
	}
	return created, err
}

// withFreshCode runs fn in a transaction with a newly generated confirmation
// code, starting over with another code if the code is already taken.
func (s *Service) withFreshCode(ctx context.Context, fn func(ctx context.Context, code string) error) error {
	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return apperr.Internal("could not generate confirmation code", err)
		}

		err = s.tx.WithTx(ctx, func(ctx context.Context) error {
			return fn(ctx, code)
		})
		if !db.IsUniqueViolation(err, constraintConfirmationCode) {
			return err
		}
		if attempt >= maxCodeAttempts {
			return apperr.Internal("could not allocate a unique confirmation code", err)
		}
		s.log.Warn("confirmation code collision, regenerating", "attempt", attempt)
	}
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, opConfirm, func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error) {
		if err := CheckConfirm(a); err != nil {
			return nil, err
		}
		return s.repo.Transition(ctx, a.ID, a.Status, Change{To: StatusConfirmed, At: now})
	})
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, opCheckIn, func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error) {
		loc, err := s.locations.Get(ctx, a.LocationID)
		if err != nil {
			return nil, err
		}
		if err := CheckCheckIn(a, now, loc.TZ()); err != nil {
			return nil, err
		}
		return s.repo.Transition(ctx, a.ID, a.Status, Change{To: StatusCheckedIn, At: now, CheckedInAt: &now})
	})
}

// Complete closes a checked-in appointment. Completing a collection also marks
// the application collected upstream, in the same transaction.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, opComplete, func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error) {
		if err := CheckComplete(a); err != nil {
			return nil, err
		}
		done, err := s.repo.Transition(ctx, a.ID, a.Status, Change{To: StatusCompleted, At: now, CompletedAt: &now})
		if err != nil {
			return nil, err
		}
		if done.Type == TypeCollection {
			if err := s.subjects.MarkSubjectCollected(ctx, done.SubjectID, now); err != nil {
				return nil, err
			}
		}
		return done, nil
	})
}

// Cancel has no notice period. The slot is released in the same transaction.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	if err := CheckCancelReason(reason); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, opCancel, func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error) {
		if err := CheckCancel(a); err != nil {
			return nil, err
		}
		cancelled, err := s.repo.Transition(ctx, a.ID, a.Status, Change{
			To:                 StatusCancelled,
			At:                 now,
			CancelledAt:        &now,
			CancellationReason: &reason,
		})
		if err != nil {
			return nil, err
		}
		if err := s.ledger.Release(ctx, a.TimeSlotID); err != nil {
			return nil, err
		}
		return cancelled, nil
	})
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, opNoShow, func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error) {
		if err := CheckNoShow(a, now); err != nil {
			return nil, err
		}
		missed, err := s.repo.Transition(ctx, a.ID, a.Status, Change{To: StatusNoShow, At: now})
		if err != nil {
			return nil, err
		}
		if err := s.ledger.Release(ctx, a.TimeSlotID); err != nil {
			return nil, err
		}
		return missed, nil
	})
}

// Reschedule supersedes the appointment with a new one on another slot and
// returns the new appointment. The old row is kept as rescheduled.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in RescheduleInput) (*Appointment, error) {
	now := s.clock.Now()

	var next *Appointment
	err := s.withFreshCode(ctx, func(ctx context.Context, code string) error {
		a, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckReschedule(a, now); err != nil {
			return err
		}
		if in.NewTimeSlotID == a.TimeSlotID {
			return ErrSameSlot
		}

		target, err := s.ledger.Get(ctx, in.NewTimeSlotID)
		if err != nil {
			return err
		}
		if _, err := s.locations.GetActive(ctx, target.LocationID); err != nil {
			return err
		}
		if !target.StartsAt.After(now) {
			return ErrSlotInPast
		}

		if _, err := s.repo.Transition(ctx, a.ID, a.Status, Change{To: StatusRescheduled, At: now}); err != nil {
			return err
		}
		if err := s.ledger.Release(ctx, a.TimeSlotID); err != nil {
			return err
		}
		booked, err := s.ledger.Book(ctx, target.ID)
		if err != nil {
			return err
		}

		previousAt := a.ScheduledAt
		originalID := a.ID
		next, err = s.insert(ctx, &Appointment{
			ID:                    uuid.New(),
			SubjectID:             a.SubjectID,
			LocationID:            booked.LocationID,
			TimeSlotID:            booked.ID,
			ScheduledAt:           booked.StartsAt,
			DurationMinutes:       booked.DurationMinutes(),
			Type:                  a.Type,
			Status:                StatusConfirmed,
			ConfirmationCode:      code,
			Notes:                 rescheduleNotes(a.Notes, in.Reason),
			SpecialRequirements:   a.SpecialRequirements,
			RescheduleCount:       a.RescheduleCount + 1,
			OriginalAppointmentID: &originalID,
			RescheduledFromAt:     &previousAt,
			CreatedAt:             now,
		})
		return err
	})

	s.observe(opReschedule, err)
	if err != nil {
		s.logFailure(opReschedule, err, "appointment_id", id, "new_time_slot_id", in.NewTimeSlotID)
		return nil, err
	}

	s.log.Info("appointment rescheduled",
		"appointment_id", id,
		"new_appointment_id", next.ID,
		"reschedule_count", next.RescheduleCount)
	return next, nil
}

func rescheduleNotes(previous *string, reason string) *string {
	if reason == "" {
		return previous
	}
	prev := "None"
	if previous != nil && *previous != "" {
		prev = *previous
	}
	notes := fmt.Sprintf("Rescheduled: %s. Previous notes: %s", reason, prev)
	return &notes
}

// transition loads and locks the appointment, then applies fn inside one transaction.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	op string,
	fn func(ctx context.Context, a *Appointment, now time.Time) (*Appointment, error),
) (*Appointment, error) {
	now := s.clock.Now()

	var out *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		out, err = fn(ctx, a, now)
		return err
	})

	s.observe(op, err)
	if err != nil {
		s.logFailure(op, err, "appointment_id", id)
		return nil, err
	}

	s.log.Info("appointment transition", "operation", op, "appointment_id", id, "status", out.Status)
	return out, nil
}

// SweepNoShows marks appointments still open more than grace after their start
// as no-shows. A zero grace disables the sweep.
func (s *Service) SweepNoShows(ctx context.Context, grace time.Duration) (int, error) {
	if grace <= 0 {
		return 0, nil
	}

	overdue, err := s.repo.FindOverdue(ctx, s.clock.Now().Add(-grace), noShowBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	marked := 0
	for _, a := range overdue {
		if _, err := s.MarkNoShow(ctx, a.ID); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal || apperr.KindOf(err) == apperr.KindTransientStorage {
				return marked, err
			}
			continue
		}
		marked++
	}
	return marked, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByConfirmationCode(ctx context.Context, code string) (*Appointment, error) {
	return s.repo.GetByConfirmationCode(ctx, code)
}

func (s *Service) ListForSubject(ctx context.Context, subjectID uuid.UUID, includeCompleted bool) ([]Appointment, error) {
	return s.repo.ListForSubject(ctx, subjectID, includeCompleted)
}

// History returns the reschedule chain an appointment belongs to, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]Appointment, error) {
	return s.repo.History(ctx, id)
}

// DailySchedule lists a location's appointments on date in the office's timezone.
func (s *Service) DailySchedule(ctx context.Context, locationID uuid.UUID, date time.Time) ([]Appointment, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	tz := loc.TZ()
	from := calendar.Combine(date, 0, tz)
	to := calendar.Combine(calendar.AddDays(date, 1), 0, tz)
	return s.repo.ListForLocation(ctx, locationID, from, to)
}

func (s *Service) observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	if op == opCreate {
		s.metrics.ObserveBooking(outcome)
		return
	}
	s.metrics.ObserveTransition(op, outcome)
}

func (s *Service) logFailure(op string, err error, args ...any) {
	args = append(args, "operation", op, "error", err)
	switch apperr.KindOf(err) {
	case apperr.KindInternal:
		s.log.Error("appointment operation failed", args...)
	case apperr.KindTransientStorage:
		s.log.Warn("appointment operation hit transient storage failure", args...)
	default:
		s.log.Info("appointment operation rejected", args...)
	}
}

func tooLong(v *string) bool {
	return v != nil && utf8.RuneCountInString(*v) > MaxTextLen
}
