package slot

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

const slotColumns = `id, location_id, slot_date, start_time, end_time, starts_at, max_capacity,
	current_bookings, status, blocked_reason, created_at, updated_at`

const bookingsCheck = "time_slots_bookings_check"

var slotColumnList = []string{
	"id", "location_id", "slot_date", "start_time", "end_time", "starts_at", "max_capacity",
	"current_bookings", "status", "blocked_reason", "created_at", "updated_at",
}

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot

	err := row.Scan(
		&s.ID,
		&s.LocationID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.StartsAt,
		&s.MaxCapacity,
		&s.CurrentBookings,
		&s.Status,
		&s.BlockedReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

// scanChanged is scanSlot for conditional updates, where no row means the
// guard failed rather than the slot being absent.
func scanChanged(row pgx.Row) (*TimeSlot, error) {
	s, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, errNoRowChanged
	}
	return s, err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) CountForDate(ctx context.Context, locationID uuid.UUID, date time.Time) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM time_slots
		WHERE location_id = $1 AND slot_date = $2
	`, locationID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return n, nil
}

func (r *PgRepository) ListForDate(ctx context.Context, locationID uuid.UUID, date time.Time, window *Window) ([]TimeSlot, error) {
	q := db.Select(slotColumnList...).
		From("time_slots").
		Where(squirrel.Eq{"location_id": locationID}).
		Where(squirrel.Eq{"slot_date": date}).
		OrderBy("start_time")
	if window != nil {
		q = q.Where(squirrel.GtOrEq{"start_time": window.Start}).
			Where(squirrel.LtOrEq{"start_time": window.End})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list slots: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *PgRepository) InsertMany(ctx context.Context, slots []TimeSlot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	q := db.Insert("time_slots").Columns(
		"id", "location_id", "slot_date", "start_time", "end_time", "starts_at",
		"max_capacity", "current_bookings", "status",
	)
	for _, s := range slots {
		q = q.Values(s.ID, s.LocationID, s.Date, s.StartTime, s.EndTime, s.StartsAt,
			s.MaxCapacity, s.CurrentBookings, s.Status)
	}
	q = q.Suffix("ON CONFLICT (location_id, slot_date, start_time) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert slots: %w", err)
	}

	tag, err := db.Conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert slots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// IncrementBookings takes one unit of capacity. The guard and the increment are a
// single statement, so concurrent bookers can never push the counter past capacity.
func (r *PgRepository) IncrementBookings(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings + 1,
			status = CASE WHEN current_bookings + 1 >= max_capacity THEN 'booked' ELSE 'available' END,
			updated_at = now()
		WHERE id = $1
			AND current_bookings < max_capacity
			AND status NOT IN ('blocked', 'unavailable')
		RETURNING `+slotColumns, id)
	s, err := scanChanged(row)
	if db.IsCheckViolation(err, bookingsCheck) {
		return nil, ErrSlotFull
	}
	return s, err
}

func (r *PgRepository) DecrementBookings(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings - 1,
			status = CASE WHEN status = 'booked' THEN 'available' ELSE status END,
			updated_at = now()
		WHERE id = $1 AND current_bookings > 0
		RETURNING `+slotColumns, id)
	return scanChanged(row)
}

func (r *PgRepository) SetBlocked(ctx context.Context, id uuid.UUID, reason *string) (*TimeSlot, error) {
	sql, args, err := db.Update("time_slots").
		Set("status", string(StatusBlocked)).
		Set("blocked_reason", reason).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + slotColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build block slot: %w", err)
	}
	return scanSlot(db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...))
}

func (r *PgRepository) ClearBlock(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE time_slots
		SET status = CASE WHEN current_bookings >= max_capacity THEN 'booked' ELSE 'available' END,
			blocked_reason = NULL,
			updated_at = now()
		WHERE id = $1 AND status IN ('blocked', 'unavailable')
		RETURNING `+slotColumns, id)
	return scanChanged(row)
}
