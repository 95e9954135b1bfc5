package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/metrics"
	redisclient "github.com/hackgods/passport-office-scheduling/internal/redis"
)

// Plan lays out the slots a location offers on date. It returns nothing on
// closed days and drops a trailing slot that would run past closing time.
func Plan(loc location.Location, date time.Time) []TimeSlot {
	if !loc.IsOpenOn(date) || loc.SlotDurationMinutes <= 0 {
		return nil
	}

	tz := loc.TZ()
	var out []TimeSlot
	for start := loc.OpensAt; start.AddMinutes(loc.SlotDurationMinutes) <= loc.ClosesAt; start = start.AddMinutes(loc.SlotDurationMinutes) {
		out = append(out, TimeSlot{
			ID:          uuid.New(),
			LocationID:  loc.ID,
			Date:        date,
			StartTime:   start,
			EndTime:     start.AddMinutes(loc.SlotDurationMinutes),
			StartsAt:    calendar.Combine(date, start, tz),
			MaxCapacity: loc.MaxAppointmentsPerSlot,
			Status:      StatusAvailable,
		})
	}
	return out
}

const (
	lockWait     = 500 * time.Millisecond
	lockWaitStep = 25 * time.Millisecond
)

// Generator materialises planned slots. It is safe to call from any number of
// API replicas and workers at once.
type Generator struct {
	store   Store
	locker  redisclient.Locker
	log     *logging.Logger
	metrics *metrics.SchedulingMetrics

	// lockWait bounds how long a caller that finds the lock busy waits for
	// the holder's rows before inserting on its own.
	lockWait time.Duration
}

func NewGenerator(store Store, locker redisclient.Locker, log *logging.Logger, m *metrics.SchedulingMetrics) *Generator {
	if locker == nil {
		locker = redisclient.NopLocker{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Generator{store: store, locker: locker, log: log, metrics: m, lockWait: lockWait}
}

func lockKey(locationID uuid.UUID, date time.Time) string {
	return "slots:" + locationID.String() + ":" + calendar.FormatDate(date)
}

// EnsureSlots creates the slots for (loc, date) unless they already exist and
// returns how many rows were written. Repeated calls return 0.
func (g *Generator) EnsureSlots(ctx context.Context, loc *location.Location, date time.Time) (int, error) {
	n, err := g.store.CountForDate(ctx, loc.ID, date)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	planned := Plan(*loc, date)
	if len(planned) == 0 {
		return 0, nil
	}

	var created int
	err = g.locker.WithLock(ctx, lockKey(loc.ID, date), func(ctx context.Context) error {
		var err error
		created, err = g.insert(ctx, loc.ID, date, planned)
		return err
	})
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		created, err = g.afterBusyLock(ctx, loc.ID, date, planned)
	case errors.Is(err, redisclient.ErrLockUnavailable):
		g.log.Warn("slot generation lock unavailable, inserting without it",
			"location_id", loc.ID, "date", calendar.FormatDate(date), "error", err)
		created, err = g.insert(ctx, loc.ID, date, planned)
	}
	if err != nil {
		return 0, fmt.Errorf("ensure slots for %s on %s: %w", loc.ID, calendar.FormatDate(date), err)
	}

	if created > 0 {
		g.metrics.AddSlotsGenerated(created)
		g.log.Info("slots generated", "location_id", loc.ID, "date", calendar.FormatDate(date), "count", created)
	}
	return created, nil
}

// afterBusyLock waits for the lock holder's rows to appear. If they do not
// show up within lockWait the caller inserts itself; ON CONFLICT DO NOTHING
// keeps that harmless.
func (g *Generator) afterBusyLock(ctx context.Context, locationID uuid.UUID, date time.Time, planned []TimeSlot) (int, error) {
	deadline := time.Now().Add(g.lockWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(lockWaitStep):
		}
		n, err := g.store.CountForDate(ctx, locationID, date)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return 0, nil
		}
	}

	g.log.Debug("slot generation lock still busy, inserting without it",
		"location_id", locationID, "date", calendar.FormatDate(date))
	return g.insert(ctx, locationID, date, planned)
}

func (g *Generator) insert(ctx context.Context, locationID uuid.UUID, date time.Time, planned []TimeSlot) (int, error) {
	n, err := g.store.CountForDate(ctx, locationID, date)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return g.store.InsertMany(ctx, planned)
}

// GenerateRange runs EnsureSlots for days consecutive dates starting at from.
func (g *Generator) GenerateRange(ctx context.Context, loc *location.Location, from time.Time, days int) (int, error) {
	total := 0
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := g.EnsureSlots(ctx, loc, calendar.AddDays(from, i))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
