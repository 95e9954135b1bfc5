package slot

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/logging"
)

// Ledger is the only writer of slot booking counters. Callers run it inside the
// transaction that also writes the appointment row.
type Ledger struct {
	store Store
	log   *logging.Logger
}

func NewLedger(store Store, log *logging.Logger) *Ledger {
	if log == nil {
		log = logging.Default()
	}
	return &Ledger{store: store, log: log}
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return l.store.GetByID(ctx, id)
}

// Book takes one unit of capacity from the slot.
func (l *Ledger) Book(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	s, err := l.store.IncrementBookings(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errNoRowChanged) {
		return nil, err
	}

	current, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.EffectiveStatus() {
	case StatusBlocked, StatusUnavailable:
		return nil, ErrSlotUnavailable
	default:
		return nil, ErrSlotFull
	}
}

// Release gives one unit of capacity back. Releasing an empty slot is a no-op.
func (l *Ledger) Release(ctx context.Context, id uuid.UUID) error {
	_, err := l.store.DecrementBookings(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNoRowChanged) {
		return err
	}

	if _, err := l.store.GetByID(ctx, id); err != nil {
		return err
	}
	l.log.Warn("release on slot with no bookings ignored", "slot_id", id)
	return nil
}

// Block freezes a slot administratively. Existing bookings are kept.
func (l *Ledger) Block(ctx context.Context, id uuid.UUID, reason string) (*TimeSlot, error) {
	var r *string
	if reason != "" {
		r = &reason
	}
	s, err := l.store.SetBlocked(ctx, id, r)
	if err != nil {
		return nil, err
	}
	l.log.Info("slot blocked", "slot_id", id, "reason", reason)
	return s, nil
}

// Unblock reopens a slot, recomputing available/booked from its counters.
// Unblocking a slot that is not blocked returns it unchanged.
func (l *Ledger) Unblock(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	s, err := l.store.ClearBlock(ctx, id)
	if err == nil {
		l.log.Info("slot unblocked", "slot_id", id)
		return s, nil
	}
	if !errors.Is(err, errNoRowChanged) {
		return nil, err
	}
	return l.store.GetByID(ctx, id)
}
