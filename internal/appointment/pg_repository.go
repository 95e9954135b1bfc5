package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/passport-office-scheduling/internal/db"
)

const (
	constraintConfirmationCode = "appointments_confirmation_code_key"
	constraintOneActivePerType = "appointments_one_active_per_type"
)

const appointmentColumns = `id, subject_id, location_id, time_slot_id, scheduled_at, duration_minutes,
	appointment_type, status, confirmation_code, notes, special_requirements, reschedule_count,
	original_appointment_id, rescheduled_from_at, checked_in_at, completed_at, cancelled_at,
	cancellation_reason, created_at, updated_at`

var appointmentColumnList = []string{
	"id", "subject_id", "location_id", "time_slot_id", "scheduled_at", "duration_minutes",
	"appointment_type", "status", "confirmation_code", "notes", "special_requirements", "reschedule_count",
	"original_appointment_id", "rescheduled_from_at", "checked_in_at", "completed_at", "cancelled_at",
	"cancellation_reason", "created_at", "updated_at",
}

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SubjectID,
		&a.LocationID,
		&a.TimeSlotID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.Type,
		&a.Status,
		&a.ConfirmationCode,
		&a.Notes,
		&a.SpecialRequirements,
		&a.RescheduleCount,
		&a.OriginalAppointmentID,
		&a.RescheduledFromAt,
		&a.CheckedInAt,
		&a.CompletedAt,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collect(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetByConfirmationCode(ctx context.Context, code string) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE confirmation_code = $1
	`, code)
	return scanAppointment(row)
}

func (r *PgRepository) FindActive(ctx context.Context, subjectID uuid.UUID, typ AppointmentType) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE subject_id = $1
		  AND appointment_type = $2
		  AND status IN ('scheduled', 'confirmed')
		LIMIT 1
	`, subjectID, typ)
	return scanAppointment(row)
}

func (r *PgRepository) Insert(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, subject_id, location_id, time_slot_id, scheduled_at, duration_minutes,
			appointment_type, status, confirmation_code, notes, special_requirements, reschedule_count,
			original_appointment_id, rescheduled_from_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING `+appointmentColumns,
		a.ID, a.SubjectID, a.LocationID, a.TimeSlotID, a.ScheduledAt, a.DurationMinutes,
		a.Type, a.Status, a.ConfirmationCode, a.Notes, a.SpecialRequirements, a.RescheduleCount,
		a.OriginalAppointmentID, a.RescheduledFromAt, a.CreatedAt,
	)
	return scanAppointment(row)
}

func (r *PgRepository) Transition(ctx context.Context, id uuid.UUID, from AppointmentStatus, c Change) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    checked_in_at = COALESCE($4, checked_in_at),
		    completed_at = COALESCE($5, completed_at),
		    cancelled_at = COALESCE($6, cancelled_at),
		    cancellation_reason = COALESCE($7, cancellation_reason),
		    updated_at = $8
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentColumns,
		id, from, c.To, c.CheckedInAt, c.CompletedAt, c.CancelledAt, c.CancellationReason, c.At,
	)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStaleStatus
	}
	return a, err
}

func (r *PgRepository) ListForSubject(ctx context.Context, subjectID uuid.UUID, includeCompleted bool) ([]Appointment, error) {
	q := db.Select(appointmentColumnList...).
		From("appointments").
		Where(squirrel.Eq{"subject_id": subjectID}).
		OrderBy("scheduled_at DESC")
	if !includeCompleted {
		q = q.Where(squirrel.NotEq{"status": string(StatusCompleted)})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list for subject: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListForLocation returns appointments at a location scheduled in [from, to),
// leaving out rows that no longer occupy a slot.
func (r *PgRepository) ListForLocation(ctx context.Context, locationID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	q := db.Select(appointmentColumnList...).
		From("appointments").
		Where(squirrel.Eq{"location_id": locationID}).
		Where(squirrel.GtOrEq{"scheduled_at": from}).
		Where(squirrel.Lt{"scheduled_at": to}).
		Where(squirrel.NotEq{"status": []string{string(StatusCancelled), string(StatusRescheduled)}}).
		OrderBy("scheduled_at", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list for location: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// History walks the reschedule chain containing id from its root forward.
func (r *PgRepository) History(ctx context.Context, id uuid.UUID) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		WITH RECURSIVE up AS (
			SELECT id, original_appointment_id FROM appointments WHERE id = $1
			UNION ALL
			SELECT a.id, a.original_appointment_id
			FROM appointments a
			JOIN up ON a.id = up.original_appointment_id
		),
		chain AS (
			SELECT a.id FROM appointments a
			JOIN up ON a.id = up.id
			WHERE up.original_appointment_id IS NULL
			UNION ALL
			SELECT a.id
			FROM appointments a
			JOIN chain ON a.original_appointment_id = chain.id
		)
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id IN (SELECT id FROM chain)
		ORDER BY reschedule_count, created_at
	`, id)
	if err != nil {
		return nil, err
	}

	chain, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return chain, nil
}

func (r *PgRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status IN ('scheduled', 'confirmed')
		  AND scheduled_at < $1
		ORDER BY scheduled_at
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
