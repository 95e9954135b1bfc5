package location

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/passport-office-scheduling/internal/logging"
	redisclient "github.com/hackgods/passport-office-scheduling/internal/redis"
)

type countingRepo struct {
	locs  map[uuid.UUID]Location
	gets  int
	lists int
}

func (r *countingRepo) GetByID(_ context.Context, id uuid.UUID) (*Location, error) {
	r.gets++
	l, ok := r.locs[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	return &l, nil
}

func (r *countingRepo) List(_ context.Context, _ bool) ([]Location, error) {
	r.lists++
	out := make([]Location, 0, len(r.locs))
	for _, l := range r.locs {
		out = append(out, l)
	}
	return out, nil
}

func (r *countingRepo) Create(_ context.Context, l *Location) (*Location, error) {
	r.locs[l.ID] = *l
	return l, nil
}

func (r *countingRepo) Update(_ context.Context, l *Location) (*Location, error) {
	r.locs[l.ID] = *l
	return l, nil
}

func newCachedRepo(t *testing.T, seed ...Location) (*CachedRepository, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingRepo{locs: map[uuid.UUID]Location{}}
	for _, l := range seed {
		inner.locs[l.ID] = l
	}
	cache := redisclient.NewCache(client, "location", time.Minute)
	return NewCachedRepository(inner, cache, logging.Discard()), inner, mr
}

func TestCachedRepositoryReadThrough(t *testing.T) {
	loc := sampleLocation()
	repo, inner, mr := newCachedRepo(t, loc)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, loc.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets)
	assert.True(t, mr.Exists("location:"+loc.ID.String()))
	assert.Equal(t, first.OpensAt, second.OpensAt)
	assert.Equal(t, first.OperatingDays, second.OperatingDays)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestCachedRepositoryDoesNotCacheMisses(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	id := uuid.New()

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrLocationNotFound)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedRepositoryUpdateInvalidates(t *testing.T) {
	loc := sampleLocation()
	repo, inner, mr := newCachedRepo(t, loc)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	_, err = repo.List(ctx, true)
	require.NoError(t, err)
	require.True(t, mr.Exists("location:active"))

	loc.Name = "Renamed Office"
	_, err = repo.Update(ctx, &loc)
	require.NoError(t, err)
	assert.False(t, mr.Exists("location:"+loc.ID.String()))
	assert.False(t, mr.Exists("location:active"))

	got, err := repo.GetByID(ctx, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Office", got.Name)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedRepositoryFallsThroughWhenRedisDown(t *testing.T) {
	loc := sampleLocation()
	repo, inner, mr := newCachedRepo(t, loc)
	mr.Close()

	got, err := repo.GetByID(context.Background(), loc.ID)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, got.ID)
	assert.Equal(t, 1, inner.gets)
}

func TestCachedRepositoryListAllBypassesCache(t *testing.T) {
	repo, inner, _ := newCachedRepo(t, sampleLocation())

	_, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	_, err = repo.List(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.lists)
}
