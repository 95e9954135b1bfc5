package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/appointment"
	"github.com/hackgods/passport-office-scheduling/internal/db"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

type openSlot struct {
	ID         uuid.UUID
	LocationID uuid.UUID
	Date       time.Time
}

type booking struct {
	ID   uuid.UUID
	Code string
	Slot openSlot
}

// Dataset holds the ids the workers draw from. Slots and subjects are
// loaded once; bookings grow as the run creates appointments.
type Dataset struct {
	Submitters []uuid.UUID
	Collectors []uuid.UUID
	Slots      []openSlot

	mu       sync.Mutex
	bookings []booking
}

func (d *Dataset) AddBooking(b booking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bookings = append(d.bookings, b)
}

// TakeBooking removes and returns a random booking so that two workers
// never cancel or move the same appointment.
func (d *Dataset) TakeBooking(rng *rand.Rand) (booking, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.bookings) == 0 {
		return booking{}, false
	}
	i := rng.IntN(len(d.bookings))
	b := d.bookings[i]
	d.bookings[i] = d.bookings[len(d.bookings)-1]
	d.bookings = d.bookings[:len(d.bookings)-1]
	return b, true
}

func (d *Dataset) PeekBooking(rng *rand.Rand) (booking, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.bookings) == 0 {
		return booking{}, false
	}
	return d.bookings[rng.IntN(len(d.bookings))], true
}

// RandomSubject picks a bookable subject and the appointment type its
// upstream status allows.
func (d *Dataset) RandomSubject(rng *rand.Rand) (uuid.UUID, string, bool) {
	n := len(d.Submitters) + len(d.Collectors)
	if n == 0 {
		return uuid.Nil, "", false
	}
	i := rng.IntN(n)
	if i < len(d.Submitters) {
		return d.Submitters[i], string(appointment.TypeSubmission), true
	}
	return d.Collectors[i-len(d.Submitters)], string(appointment.TypeCollection), true
}

func (d *Dataset) RandomSlot(rng *rand.Rand) openSlot {
	return d.Slots[rng.IntN(len(d.Slots))]
}

// SlotNear picks another open slot at the same location, falling back to
// any slot when the location has only one.
func (d *Dataset) SlotNear(rng *rand.Rand, s openSlot) openSlot {
	var same []openSlot
	for _, c := range d.Slots {
		if c.LocationID == s.LocationID && c.ID != s.ID {
			same = append(same, c)
		}
	}
	if len(same) == 0 {
		return d.RandomSlot(rng)
	}
	return same[rng.IntN(len(same))]
}

func loadDataset(ctx context.Context, pool db.Querier, cfg SimConfig) (*Dataset, error) {
	ds := &Dataset{}
	var err error

	if ds.Submitters, err = subjectIDs(ctx, pool, subject.StatusSubmitted, cfg.SubjectLimit); err != nil {
		return nil, err
	}
	if ds.Collectors, err = subjectIDs(ctx, pool, subject.StatusReadyForPickup, cfg.SubjectLimit); err != nil {
		return nil, err
	}
	if len(ds.Submitters)+len(ds.Collectors) == 0 {
		return nil, fmt.Errorf("no bookable subjects loaded, run the seeder first")
	}

	sql, args, err := db.Select("s.id", "s.location_id", "s.slot_date").
		From("time_slots s").
		Join("locations l ON l.id = s.location_id").
		Where("l.is_active").
		Where("s.status = ?", "available").
		Where("s.starts_at > now() + interval '1 day'").
		OrderBy("random()").
		Limit(uint64(cfg.SlotLimit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s openSlot
		if err := rows.Scan(&s.ID, &s.LocationID, &s.Date); err != nil {
			return nil, err
		}
		ds.Slots = append(ds.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ds.Slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded")
	}
	return ds, nil
}

func subjectIDs(ctx context.Context, pool db.Querier, status subject.Status, limit int) ([]uuid.UUID, error) {
	sql, args, err := db.Select("id").
		From("subjects").
		Where("status = ?", status).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s subjects: %w", status, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type slotViolation struct {
	SlotID          uuid.UUID
	CurrentBookings int
	MaxCapacity     int
	Holding         int
}

// capacityViolations lists slots that are overbooked or whose counter has
// drifted from the appointments that hold them.
func capacityViolations(ctx context.Context, pool db.Querier) ([]slotViolation, error) {
	var holding []string
	for _, st := range appointment.AllStatuses {
		if st.HoldsSlot() {
			holding = append(holding, string(st))
		}
	}

	rows, err := pool.Query(ctx, `
		SELECT s.id, s.current_bookings, s.max_capacity, count(a.id)
		FROM time_slots s
		LEFT JOIN appointments a ON a.time_slot_id = s.id AND a.status = ANY($1)
		GROUP BY s.id
		HAVING s.current_bookings > s.max_capacity OR s.current_bookings <> count(a.id)
	`, holding)
	if err != nil {
		return nil, fmt.Errorf("check capacity: %w", err)
	}
	defer rows.Close()

	var out []slotViolation
	for rows.Next() {
		var v slotViolation
		if err := rows.Scan(&v.SlotID, &v.CurrentBookings, &v.MaxCapacity, &v.Holding); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
