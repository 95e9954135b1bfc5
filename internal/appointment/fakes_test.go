package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

// world is an in-memory stand-in for the shared store. WithTx serialises
// transactions and restores a snapshot when fn fails.
type world struct {
	mu sync.Mutex

	appts     map[uuid.UUID]Appointment
	slots     map[uuid.UUID]slot.TimeSlot
	subjects  map[uuid.UUID]subject.Status
	collected map[uuid.UUID]time.Time
	locations map[uuid.UUID]location.Location

	inserts int
}

func newWorld() *world {
	return &world{
		appts:     map[uuid.UUID]Appointment{},
		slots:     map[uuid.UUID]slot.TimeSlot{},
		subjects:  map[uuid.UUID]subject.Status{},
		collected: map[uuid.UUID]time.Time{},
		locations: map[uuid.UUID]location.Location{},
	}
}

type txKey struct{}

func (w *world) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	appts := cloneMap(w.appts)
	slots := cloneMap(w.slots)
	subjects := cloneMap(w.subjects)
	collected := cloneMap(w.collected)

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		w.appts, w.slots, w.subjects, w.collected = appts, slots, subjects, collected
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Repository

type memRepo struct{ w *world }

func (r memRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.w.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r memRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r memRepo) GetByConfirmationCode(_ context.Context, code string) (*Appointment, error) {
	for _, a := range r.w.appts {
		if a.ConfirmationCode == code {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r memRepo) FindActive(_ context.Context, subjectID uuid.UUID, typ AppointmentType) (*Appointment, error) {
	for _, a := range r.w.appts {
		if a.SubjectID == subjectID && a.Type == typ && a.Status.IsActive() {
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r memRepo) Insert(_ context.Context, a *Appointment) (*Appointment, error) {
	for _, existing := range r.w.appts {
		if existing.ConfirmationCode == a.ConfirmationCode {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: constraintConfirmationCode}
		}
		if a.Status.IsActive() && existing.Status.IsActive() &&
			existing.SubjectID == a.SubjectID && existing.Type == a.Type {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: constraintOneActivePerType}
		}
	}
	cp := *a
	cp.UpdatedAt = cp.CreatedAt
	r.w.appts[cp.ID] = cp
	r.w.inserts++
	return &cp, nil
}

func (r memRepo) Transition(_ context.Context, id uuid.UUID, from AppointmentStatus, c Change) (*Appointment, error) {
	a, ok := r.w.appts[id]
	if !ok || a.Status != from {
		return nil, ErrStaleStatus
	}
	a.Status = c.To
	a.UpdatedAt = c.At
	if c.CheckedInAt != nil {
		a.CheckedInAt = c.CheckedInAt
	}
	if c.CompletedAt != nil {
		a.CompletedAt = c.CompletedAt
	}
	if c.CancelledAt != nil {
		a.CancelledAt = c.CancelledAt
	}
	if c.CancellationReason != nil {
		a.CancellationReason = c.CancellationReason
	}
	r.w.appts[id] = a
	return &a, nil
}

func (r memRepo) ListForSubject(_ context.Context, subjectID uuid.UUID, includeCompleted bool) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.w.appts {
		if a.SubjectID != subjectID || (!includeCompleted && a.Status == StatusCompleted) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

func (r memRepo) ListForLocation(_ context.Context, locationID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.w.appts {
		if a.LocationID != locationID || a.ScheduledAt.Before(from) || !a.ScheduledAt.Before(to) {
			continue
		}
		if a.Status == StatusCancelled || a.Status == StatusRescheduled {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r memRepo) History(_ context.Context, id uuid.UUID) ([]Appointment, error) {
	a, ok := r.w.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	for a.OriginalAppointmentID != nil {
		a = r.w.appts[*a.OriginalAppointmentID]
	}
	chain := []Appointment{a}
	for {
		var next *Appointment
		for _, c := range r.w.appts {
			if c.OriginalAppointmentID != nil && *c.OriginalAppointmentID == chain[len(chain)-1].ID {
				c := c
				next = &c
				break
			}
		}
		if next == nil {
			return chain, nil
		}
		chain = append(chain, *next)
	}
}

func (r memRepo) FindOverdue(_ context.Context, before time.Time, limit int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.w.appts {
		if a.Status.IsActive() && a.ScheduledAt.Before(before) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SlotLedger

type memLedger struct{ w *world }

func (l memLedger) Get(_ context.Context, id uuid.UUID) (*slot.TimeSlot, error) {
	s, ok := l.w.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	return &s, nil
}

func (l memLedger) Book(_ context.Context, id uuid.UUID) (*slot.TimeSlot, error) {
	s, ok := l.w.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if s.Status == slot.StatusBlocked || s.Status == slot.StatusUnavailable {
		return nil, slot.ErrSlotUnavailable
	}
	if s.CurrentBookings >= s.MaxCapacity {
		return nil, slot.ErrSlotFull
	}
	s.CurrentBookings++
	s.Status = s.EffectiveStatus()
	l.w.slots[id] = s
	return &s, nil
}

func (l memLedger) Release(_ context.Context, id uuid.UUID) error {
	s, ok := l.w.slots[id]
	if !ok {
		return slot.ErrSlotNotFound
	}
	if s.CurrentBookings == 0 {
		return nil
	}
	s.CurrentBookings--
	s.Status = s.EffectiveStatus()
	l.w.slots[id] = s
	return nil
}

// SubjectDirectory

type memSubjects struct{ w *world }

func (d memSubjects) GetSubjectStatus(_ context.Context, id uuid.UUID) (subject.Status, error) {
	st, ok := d.w.subjects[id]
	if !ok {
		return "", subject.ErrSubjectNotFound
	}
	return st, nil
}

func (d memSubjects) MarkSubjectCollected(_ context.Context, id uuid.UUID, at time.Time) error {
	st, ok := d.w.subjects[id]
	if !ok {
		return subject.ErrSubjectNotFound
	}
	if st != subject.StatusReadyForPickup {
		return subject.ErrNotCollectable
	}
	d.w.subjects[id] = subject.StatusCollected
	d.w.collected[id] = at
	return nil
}

// LocationSource

type memLocations struct{ w *world }

func (s memLocations) Get(_ context.Context, id uuid.UUID) (*location.Location, error) {
	l, ok := s.w.locations[id]
	if !ok {
		return nil, location.ErrLocationNotFound
	}
	return &l, nil
}

func (s memLocations) GetActive(ctx context.Context, id uuid.UUID) (*location.Location, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, location.ErrLocationInactive
	}
	return l, nil
}
