package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// errNoRowChanged signals that a conditional update matched nothing.
var errNoRowChanged = errors.New("no row changed")

// Store persists time slots. Every method joins the transaction carried by ctx.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	CountForDate(ctx context.Context, locationID uuid.UUID, date time.Time) (int, error)
	ListForDate(ctx context.Context, locationID uuid.UUID, date time.Time, window *Window) ([]TimeSlot, error)
	// InsertMany skips slots that already exist and returns how many were written.
	InsertMany(ctx context.Context, slots []TimeSlot) (int, error)

	IncrementBookings(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	DecrementBookings(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	SetBlocked(ctx context.Context, id uuid.UUID, reason *string) (*TimeSlot, error)
	ClearBlock(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
}
