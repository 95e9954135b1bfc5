package location

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
)

var (
	ErrLocationNotFound = apperr.NotFound("location")
	ErrInvalidLocation  = apperr.InvalidRequest("invalid_location", "location failed validation")
	ErrLocationInactive = apperr.InvalidRequest("location_inactive", "location is not accepting bookings")
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	List(ctx context.Context, activeOnly bool) ([]Location, error)
	Create(ctx context.Context, l *Location) (*Location, error)
	Update(ctx context.Context, l *Location) (*Location, error)
}
