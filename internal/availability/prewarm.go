package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

const MaxPrewarmDays = 90

var ErrInvalidPrewarmDays = apperr.InvalidRequest("invalid_days_ahead", "days_ahead must be between 1 and 90")

type LocationLister interface {
	GetActive(ctx context.Context, id uuid.UUID) (*location.Location, error)
	List(ctx context.Context, activeOnly bool) ([]location.Location, error)
}

type RangeGenerator interface {
	GenerateRange(ctx context.Context, loc *location.Location, from time.Time, days int) (int, error)
}

// Prewarmer materialises slots ahead of demand so the first availability
// search for a date does not pay for generation.
type Prewarmer struct {
	locations LocationLister
	generator RangeGenerator
	clock     calendar.Clock
	log       *logging.Logger
}

func NewPrewarmer(locations LocationLister, generator RangeGenerator, clock calendar.Clock, log *logging.Logger) *Prewarmer {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Prewarmer{locations: locations, generator: generator, clock: clock, log: log}
}

// Location generates days of slots for one active location starting today in
// its timezone. Zero days means the location's own booking horizon.
func (p *Prewarmer) Location(ctx context.Context, id uuid.UUID, days int) (int, error) {
	if days < 0 || days > MaxPrewarmDays {
		return 0, ErrInvalidPrewarmDays
	}
	loc, err := p.locations.GetActive(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.generate(ctx, loc, days)
}

// All prewarms every active location. A failing location is logged and
// skipped; the joined error is returned with the count that did succeed.
func (p *Prewarmer) All(ctx context.Context, days int) (int, error) {
	if days < 0 || days > MaxPrewarmDays {
		return 0, ErrInvalidPrewarmDays
	}
	locs, err := p.locations.List(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("list active locations: %w", err)
	}

	var (
		total int
		errs  []error
	)
	for i := range locs {
		n, err := p.generate(ctx, &locs[i], days)
		total += n
		if err != nil {
			p.log.Error("slot prewarm failed", "location_id", locs[i].ID, "error", err)
			errs = append(errs, fmt.Errorf("location %s: %w", locs[i].ID, err))
		}
	}
	return total, errors.Join(errs...)
}

func (p *Prewarmer) generate(ctx context.Context, loc *location.Location, days int) (int, error) {
	if days == 0 {
		// today through LastBookableDate inclusive
		days = loc.AdvanceBookingDays + 1
	}
	n, err := p.generator.GenerateRange(ctx, loc, loc.Today(p.clock.Now()), days)
	if err != nil {
		return n, err
	}
	p.log.Info("slots prewarmed", "location_id", loc.ID, "days", days, "created", n)
	return n, nil
}
