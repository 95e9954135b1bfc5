package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
)

const MaxAlternativeDates = 5

var (
	ErrPreferredDateNotFuture = apperr.InvalidRequest("preferred_date_not_future", "preferred date must be in the future")
	ErrBeyondBookingHorizon   = apperr.InvalidRequest("beyond_booking_horizon", "preferred date is beyond the booking window for this location")
	ErrTooManyAlternatives    = apperr.InvalidRequest("too_many_alternative_dates", "at most 5 alternative dates may be requested")
	ErrDateInPast             = apperr.InvalidRequest("date_in_past", "date is before today at this location")
)

type LocationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*location.Location, error)
	GetActive(ctx context.Context, id uuid.UUID) (*location.Location, error)
}

type SlotEnsurer interface {
	EnsureSlots(ctx context.Context, loc *location.Location, date time.Time) (int, error)
}

type SlotLister interface {
	ListForDate(ctx context.Context, locationID uuid.UUID, date time.Time, window *slot.Window) ([]slot.TimeSlot, error)
}

type Query struct {
	LocationID       uuid.UUID
	PreferredDate    time.Time
	AlternativeDates []time.Time
	Window           *slot.Window
}

type Result struct {
	Location      *location.Location
	RequestedDate time.Time
	Preferred     []slot.TimeSlot
	// Alternatives is keyed by YYYY-MM-DD and only holds dates with open slots.
	Alternatives map[string][]slot.TimeSlot
	Total        int
}

// Searcher answers "what can I book" questions, generating slots for a date the
// first time anyone asks about it.
type Searcher struct {
	locations LocationSource
	generator SlotEnsurer
	slots     SlotLister
	clock     calendar.Clock
	log       *logging.Logger
}

func NewSearcher(locations LocationSource, generator SlotEnsurer, slots SlotLister, clock calendar.Clock, log *logging.Logger) *Searcher {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Searcher{locations: locations, generator: generator, slots: slots, clock: clock, log: log}
}

func (s *Searcher) Find(ctx context.Context, q Query) (*Result, error) {
	if len(q.AlternativeDates) > MaxAlternativeDates {
		return nil, ErrTooManyAlternatives
	}
	if q.Window != nil {
		if err := q.Window.Validate(); err != nil {
			return nil, err
		}
	}

	loc, err := s.locations.GetActive(ctx, q.LocationID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := loc.Today(now)
	horizon := loc.LastBookableDate(now)
	preferred := calendar.DateOf(q.PreferredDate, time.UTC)

	if !preferred.After(today) {
		return nil, ErrPreferredDateNotFuture
	}
	if preferred.After(horizon) {
		return nil, ErrBeyondBookingHorizon
	}

	res := &Result{
		Location:      loc,
		RequestedDate: preferred,
		Alternatives:  map[string][]slot.TimeSlot{},
	}

	res.Preferred, err = s.openSlots(ctx, loc, preferred, q.Window, now)
	if err != nil {
		return nil, err
	}
	res.Total = len(res.Preferred)

	seen := map[time.Time]bool{preferred: true}
	for _, d := range q.AlternativeDates {
		date := calendar.DateOf(d, time.UTC)
		if seen[date] || date.Before(today) || date.After(horizon) {
			continue
		}
		seen[date] = true

		open, err := s.openSlots(ctx, loc, date, q.Window, now)
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			res.Alternatives[calendar.FormatDate(date)] = open
			res.Total += len(open)
		}
	}

	s.log.Debug("availability searched",
		"location_id", loc.ID,
		"preferred_date", calendar.FormatDate(preferred),
		"alternatives", len(res.Alternatives),
		"total", res.Total)
	return res, nil
}

// openSlots generates slots for date if needed and returns the bookable ones
// ordered by start time.
func (s *Searcher) openSlots(ctx context.Context, loc *location.Location, date time.Time, window *slot.Window, now time.Time) ([]slot.TimeSlot, error) {
	if _, err := s.generator.EnsureSlots(ctx, loc, date); err != nil {
		return nil, err
	}

	all, err := s.slots.ListForDate(ctx, loc.ID, date, window)
	if err != nil {
		return nil, err
	}

	open := make([]slot.TimeSlot, 0, len(all))
	for _, ts := range all {
		if ts.IsAvailable(now) {
			open = append(open, ts)
		}
	}
	return open, nil
}

// DaySlots returns every slot of a location on date, bookable or not. Slots
// are generated first for an active location when nobody has asked about the
// date yet; an inactive location only shows what already exists.
func (s *Searcher) DaySlots(ctx context.Context, locationID uuid.UUID, date time.Time) ([]slot.TimeSlot, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	date = calendar.DateOf(date, time.UTC)
	if date.Before(loc.Today(s.clock.Now())) {
		return nil, ErrDateInPast
	}
	if loc.IsActive {
		if _, err := s.generator.EnsureSlots(ctx, loc, date); err != nil {
			return nil, err
		}
	}
	return s.slots.ListForDate(ctx, loc.ID, date, nil)
}
