package location

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/logging"
	redisclient "github.com/hackgods/passport-office-scheduling/internal/redis"
)

// JSONCache is the subset of redisclient.Cache the cached repository needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

const activeListKey = "active"

// CachedRepository serves location reads from Redis and falls through to the
// wrapped repository on a miss or cache failure. Writes invalidate.
type CachedRepository struct {
	next  Repository
	cache JSONCache
	log   *logging.Logger
}

func NewCachedRepository(next Repository, cache JSONCache, log *logging.Logger) *CachedRepository {
	if log == nil {
		log = logging.Default()
	}
	return &CachedRepository{next: next, cache: cache, log: log}
}

func (r *CachedRepository) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	var cached Location
	err := r.cache.GetJSON(ctx, id.String(), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redisclient.ErrCacheMiss) {
		r.log.Warn("location cache read failed", "location_id", id, "error", err)
	}

	l, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetJSON(ctx, id.String(), l); err != nil {
		r.log.Warn("location cache write failed", "location_id", id, "error", err)
	}
	return l, nil
}

func (r *CachedRepository) List(ctx context.Context, activeOnly bool) ([]Location, error) {
	if !activeOnly {
		return r.next.List(ctx, false)
	}

	var cached []Location
	err := r.cache.GetJSON(ctx, activeListKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redisclient.ErrCacheMiss) {
		r.log.Warn("location list cache read failed", "error", err)
	}

	list, err := r.next.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if err := r.cache.SetJSON(ctx, activeListKey, list); err != nil {
		r.log.Warn("location list cache write failed", "error", err)
	}
	return list, nil
}

func (r *CachedRepository) Create(ctx context.Context, l *Location) (*Location, error) {
	created, err := r.next.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, created.ID)
	return created, nil
}

func (r *CachedRepository) Update(ctx context.Context, l *Location) (*Location, error) {
	updated, err := r.next.Update(ctx, l)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, updated.ID)
	return updated, nil
}

func (r *CachedRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := r.cache.Delete(ctx, id.String(), activeListKey); err != nil {
		r.log.Warn("location cache invalidation failed", "location_id", id, "error", err)
	}
}
