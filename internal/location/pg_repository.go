package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/db"
)

const locationColumns = `id, name, address, phone, email, opens_at, closes_at, operating_days, timezone,
	slot_duration_minutes, max_appointments_per_slot, advance_booking_days, is_active, created_at, updated_at`

var locationColumnList = []string{
	"id", "name", "address", "phone", "email", "opens_at", "closes_at", "operating_days", "timezone",
	"slot_duration_minutes", "max_appointments_per_slot", "advance_booking_days", "is_active", "created_at", "updated_at",
}

type PgRepository struct {
	pool db.Querier
}

func NewPgRepository(pool db.Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	var days []int16

	err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Address,
		&l.Phone,
		&l.Email,
		&l.OpensAt,
		&l.ClosesAt,
		&days,
		&l.Timezone,
		&l.SlotDurationMinutes,
		&l.MaxAppointmentsPerSlot,
		&l.AdvanceBookingDays,
		&l.IsActive,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}

	l.OperatingDays = calendar.WeekdaysFromInt16s(days)
	return &l, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id = $1
	`, id)
	return scanLocation(row)
}

func (r *PgRepository) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	q := db.Select(locationColumnList...).From("locations").OrderBy("name")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list locations: %w", err)
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *PgRepository) Create(ctx context.Context, l *Location) (*Location, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO locations (id, name, address, phone, email, opens_at, closes_at, operating_days, timezone,
			slot_duration_minutes, max_appointments_per_slot, advance_booking_days, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+locationColumns,
		l.ID, l.Name, l.Address, l.Phone, l.Email, l.OpensAt, l.ClosesAt, l.OperatingDays.Int16s(), l.Timezone,
		l.SlotDurationMinutes, l.MaxAppointmentsPerSlot, l.AdvanceBookingDays, l.IsActive,
	)
	return scanLocation(row)
}

// Update rewrites the location row only. Slots that already exist keep the
// capacity and times they were generated with.
func (r *PgRepository) Update(ctx context.Context, l *Location) (*Location, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE locations
		SET name = $2, address = $3, phone = $4, email = $5, opens_at = $6, closes_at = $7,
			operating_days = $8, timezone = $9, slot_duration_minutes = $10,
			max_appointments_per_slot = $11, advance_booking_days = $12, is_active = $13, updated_at = now()
		WHERE id = $1
		RETURNING `+locationColumns,
		l.ID, l.Name, l.Address, l.Phone, l.Email, l.OpensAt, l.ClosesAt, l.OperatingDays.Int16s(), l.Timezone,
		l.SlotDurationMinutes, l.MaxAppointmentsPerSlot, l.AdvanceBookingDays, l.IsActive,
	)
	return scanLocation(row)
}
