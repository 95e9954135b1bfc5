package location

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

// Registry owns the administrative lifecycle of locations.
type Registry struct {
	repo      Repository
	validator *Validator
	log       *logging.Logger
	defaultTZ string
}

func NewRegistry(repo Repository, defaultTZ string, log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Default()
	}
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &Registry{repo: repo, validator: NewValidator(), log: log, defaultTZ: defaultTZ}
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Location, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *Registry) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	return r.repo.List(ctx, activeOnly)
}

func (r *Registry) Create(ctx context.Context, in CreateInput) (*Location, error) {
	l := in.toLocation(r.defaultTZ)
	if err := r.validator.Validate(l); err != nil {
		return nil, err
	}

	created, err := r.repo.Create(ctx, &l)
	if err != nil {
		return nil, err
	}
	r.log.Info("location created", "location_id", created.ID, "name", created.Name)
	return created, nil
}

// Update patches a location. Schedule changes apply to slots generated from now
// on; slots that already exist are left as they are.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Location, error) {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := in.applyTo(*current)
	if err := r.validator.Validate(merged); err != nil {
		return nil, err
	}

	updated, err := r.repo.Update(ctx, &merged)
	if err != nil {
		return nil, err
	}
	r.log.Info("location updated", "location_id", id)
	return updated, nil
}

func (r *Registry) Deactivate(ctx context.Context, id uuid.UUID) (*Location, error) {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return current, nil
	}

	current.IsActive = false
	updated, err := r.repo.Update(ctx, current)
	if err != nil {
		return nil, err
	}
	r.log.Info("location deactivated", "location_id", id)
	return updated, nil
}

// GetActive returns the location or ErrLocationInactive when it no longer takes bookings.
func (r *Registry) GetActive(ctx context.Context, id uuid.UUID) (*Location, error) {
	l, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, ErrLocationInactive
	}
	return l, nil
}
