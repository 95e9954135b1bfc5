package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/calendar"
	"github.com/hackgods/passport-office-scheduling/internal/location"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/slot"
	"github.com/hackgods/passport-office-scheduling/internal/subject"
)

// Monday 2030-01-07, 10:00 in Maseru (UTC+2).
var baseNow = time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)

type stepClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

type harness struct {
	w     *world
	svc   *Service
	clock *stepClock
	loc   location.Location
}

func newHarness(t *testing.T, opts ...func(*Deps)) *harness {
	t.Helper()
	w := newWorld()
	loc := location.Location{
		ID:                     uuid.New(),
		Name:                   "Maseru Central",
		Address:                "Kingsway Road, Maseru 100",
		OpensAt:                calendar.NewTimeOfDay(8, 0),
		ClosesAt:               calendar.NewTimeOfDay(16, 30),
		OperatingDays:          calendar.Weekdays{calendar.Monday, calendar.Tuesday, calendar.Wednesday, calendar.Thursday, calendar.Friday},
		Timezone:               "Africa/Maseru",
		SlotDurationMinutes:    30,
		MaxAppointmentsPerSlot: 1,
		AdvanceBookingDays:     14,
		IsActive:               true,
	}
	w.locations[loc.ID] = loc

	clock := &stepClock{at: baseNow}
	d := Deps{
		Repo:      memRepo{w},
		Ledger:    memLedger{w},
		Subjects:  memSubjects{w},
		Locations: memLocations{w},
		Tx:        w,
		Clock:     clock,
		Log:       logging.Discard(),
	}
	for _, o := range opts {
		o(&d)
	}
	return &harness{w: w, svc: NewService(d), clock: clock, loc: loc}
}

// addSlot creates a 30 minute slot starting at the given offset from baseNow.
func (h *harness) addSlot(in time.Duration, capacity int) slot.TimeSlot {
	starts := baseNow.Add(in)
	tz := h.loc.TZ()
	local := starts.In(tz)
	start := calendar.NewTimeOfDay(local.Hour(), local.Minute())
	s := slot.TimeSlot{
		ID:          uuid.New(),
		LocationID:  h.loc.ID,
		Date:        calendar.DateOf(starts, tz),
		StartTime:   start,
		EndTime:     start.AddMinutes(30),
		StartsAt:    starts,
		MaxCapacity: capacity,
		Status:      slot.StatusAvailable,
	}
	h.w.slots[s.ID] = s
	return s
}

func (h *harness) addSubject(st subject.Status) uuid.UUID {
	id := uuid.New()
	h.w.subjects[id] = st
	return id
}

func (h *harness) slot(id uuid.UUID) slot.TimeSlot {
	return h.w.slots[id]
}

func (h *harness) book(t *testing.T, subjectID uuid.UUID, s slot.TimeSlot, typ AppointmentType) *Appointment {
	t.Helper()
	a, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID:  subjectID,
		LocationID: s.LocationID,
		TimeSlotID: s.ID,
		Type:       typ,
	})
	require.NoError(t, err)
	return a
}

func TestCreateBooksSlotAtomically(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)

	a := h.book(t, subj, s, TypeCollection)

	assert.Equal(t, StatusConfirmed, a.Status)
	assert.Len(t, a.ConfirmationCode, 6)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, a.ConfirmationCode)
	assert.True(t, a.ScheduledAt.Equal(s.StartsAt))
	assert.Equal(t, 30, a.DurationMinutes)
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
	assert.Equal(t, slot.StatusBooked, h.slot(s.ID).Status)
}

func TestCreateSecondSubjectOnFullSlot(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	x := h.addSubject(subject.StatusReadyForPickup)
	y := h.addSubject(subject.StatusReadyForPickup)

	h.book(t, x, s, TypeCollection)

	_, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: y, LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeCollection,
	})
	assert.ErrorIs(t, err, slot.ErrSlotFull)
	assert.Equal(t, apperr.KindCapacityExceeded, apperr.KindOf(err))
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
	assert.Len(t, h.w.appts, 1)
}

func TestConcurrentCreateNeverOverbooks(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 2)

	subjects := make([]uuid.UUID, 10)
	for i := range subjects {
		subjects[i] = h.addSubject(subject.StatusSubmitted)
	}

	var mu sync.Mutex
	booked := 0
	outcomes := map[apperr.Kind]int{}
	var wg sync.WaitGroup
	for _, subj := range subjects {
		wg.Add(1)
		go func(subj uuid.UUID) {
			defer wg.Done()
			_, err := h.svc.Create(context.Background(), CreateInput{
				SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeSubmission,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				booked++
				return
			}
			outcomes[apperr.KindOf(err)]++
		}(subj)
	}
	wg.Wait()

	assert.Equal(t, 2, booked)
	assert.Equal(t, 8, outcomes[apperr.KindCapacityExceeded])
	assert.Equal(t, 2, h.slot(s.ID).CurrentBookings)
	assert.Equal(t, 0, h.slot(s.ID).RemainingCapacity())
}

func TestCreateRejectsSubmissionForReadySubject(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)

	_, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeSubmission,
	})

	assert.ErrorIs(t, err, ErrSubjectNotEligible)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, 0, h.slot(s.ID).CurrentBookings)
}

func TestCreateRejectsInactiveLocation(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)
	loc := h.w.locations[h.loc.ID]
	loc.IsActive = false
	h.w.locations[h.loc.ID] = loc

	_, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeCollection,
	})

	assert.ErrorIs(t, err, location.ErrLocationInactive)
	assert.Equal(t, 0, h.slot(s.ID).CurrentBookings)
}

func TestRescheduleRejectsInactiveTargetLocation(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)
	a := h.book(t, subj, s, TypeCollection)

	closed := h.loc
	closed.ID = uuid.New()
	closed.IsActive = false
	h.w.locations[closed.ID] = closed
	target := h.addSlot(72*time.Hour, 1)
	target.LocationID = closed.ID
	h.w.slots[target.ID] = target

	_, err := h.svc.Reschedule(context.Background(), a.ID, RescheduleInput{NewTimeSlotID: target.ID, Reason: "moving"})

	assert.ErrorIs(t, err, location.ErrLocationInactive)
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
	assert.Equal(t, 0, h.slot(target.ID).CurrentBookings)
}

func TestCreateRejectsSecondActiveAppointmentOfSameType(t *testing.T) {
	h := newHarness(t)
	first := h.addSlot(48*time.Hour, 1)
	second := h.addSlot(72*time.Hour, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)

	h.book(t, subj, first, TypeCollection)

	_, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: second.ID, Type: TypeCollection,
	})
	assert.ErrorIs(t, err, ErrActiveAppointmentExists)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	assert.Equal(t, 0, h.slot(second.ID).CurrentBookings)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	past := h.addSlot(-time.Hour, 1)
	subj := h.addSubject(subject.StatusSubmitted)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: s.ID, Type: "renewal"})
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = h.svc.Create(ctx, CreateInput{SubjectID: subj, LocationID: uuid.New(), TimeSlotID: s.ID, Type: TypeSubmission})
	assert.ErrorIs(t, err, location.ErrLocationNotFound)

	other := h.loc
	other.ID = uuid.New()
	h.w.locations[other.ID] = other
	_, err = h.svc.Create(ctx, CreateInput{SubjectID: subj, LocationID: other.ID, TimeSlotID: s.ID, Type: TypeSubmission})
	assert.ErrorIs(t, err, ErrSlotLocationMismatch)

	_, err = h.svc.Create(ctx, CreateInput{SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: past.ID, Type: TypeSubmission})
	assert.ErrorIs(t, err, ErrSlotInPast)

	_, err = h.svc.Create(ctx, CreateInput{SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: uuid.New(), Type: TypeSubmission})
	assert.ErrorIs(t, err, slot.ErrSlotNotFound)

	_, err = h.svc.Create(ctx, CreateInput{SubjectID: uuid.New(), LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeSubmission})
	assert.ErrorIs(t, err, subject.ErrSubjectNotFound)

	assert.Empty(t, h.w.appts)
}

func TestCreateRetriesConfirmationCodeCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	var mu sync.Mutex
	h := newHarness(t, func(d *Deps) {
		d.NewCode = func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			c := codes[0]
			codes = codes[1:]
			return c, nil
		}
	})
	s := h.addSlot(48*time.Hour, 2)

	first := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)
	second := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)

	assert.Equal(t, "AAAAAA", first.ConfirmationCode)
	assert.Equal(t, "BBBBBB", second.ConfirmationCode)
	assert.Equal(t, 2, h.slot(s.ID).CurrentBookings, "the collided attempt must be rolled back")
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.NewCode = func() (string, error) { return "AAAAAA", nil }
	})
	s := h.addSlot(48*time.Hour, 2)

	h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)
	_, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: h.addSubject(subject.StatusSubmitted), LocationID: h.loc.ID, TimeSlotID: s.ID, Type: TypeSubmission,
	})

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
}

func TestCancelReleasesSlot(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	before := h.slot(s.ID).RemainingCapacity()
	a := h.book(t, h.addSubject(subject.StatusReadyForPickup), s, TypeCollection)

	cancelled, err := h.svc.Cancel(context.Background(), a.ID, "change of plans")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, "change of plans", *cancelled.CancellationReason)
	assert.Equal(t, before, h.slot(s.ID).RemainingCapacity())
	assert.Equal(t, slot.StatusAvailable, h.slot(s.ID).EffectiveStatus())

	_, err = h.svc.Cancel(context.Background(), a.ID, "change of plans")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancelHasNoNoticePeriod(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(30*time.Minute, 1)
	a := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)

	_, err := h.svc.Cancel(context.Background(), a.ID, "feeling unwell")
	require.NoError(t, err)
	assert.Equal(t, 0, h.slot(s.ID).CurrentBookings)
}

func TestCancelRejectsShortReason(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	a := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)

	_, err := h.svc.Cancel(context.Background(), a.ID, "no")
	assert.ErrorIs(t, err, ErrInvalidReason)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
}

func TestRescheduleMovesBooking(t *testing.T) {
	h := newHarness(t)
	slotA := h.addSlot(48*time.Hour, 1)
	slotB := h.addSlot(72*time.Hour, 1)
	notes := "wheelchair access"
	subj := h.addSubject(subject.StatusReadyForPickup)
	old, err := h.svc.Create(context.Background(), CreateInput{
		SubjectID: subj, LocationID: h.loc.ID, TimeSlotID: slotA.ID, Type: TypeCollection, Notes: &notes,
	})
	require.NoError(t, err)

	next, err := h.svc.Reschedule(context.Background(), old.ID, RescheduleInput{NewTimeSlotID: slotB.ID, Reason: "travel"})
	require.NoError(t, err)

	prev, err := h.svc.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, prev.Status)
	assert.Equal(t, 0, h.slot(slotA.ID).CurrentBookings)
	assert.Equal(t, slot.StatusAvailable, h.slot(slotA.ID).Status)
	assert.Equal(t, 1, h.slot(slotB.ID).CurrentBookings)

	assert.NotEqual(t, old.ID, next.ID)
	assert.Equal(t, StatusConfirmed, next.Status)
	assert.Equal(t, 1, next.RescheduleCount)
	require.NotNil(t, next.OriginalAppointmentID)
	assert.Equal(t, old.ID, *next.OriginalAppointmentID)
	require.NotNil(t, next.RescheduledFromAt)
	assert.True(t, next.RescheduledFromAt.Equal(slotA.StartsAt))
	assert.True(t, next.ScheduledAt.Equal(slotB.StartsAt))
	assert.NotEqual(t, old.ConfirmationCode, next.ConfirmationCode)
	require.NotNil(t, next.Notes)
	assert.Equal(t, "Rescheduled: travel. Previous notes: wheelchair access", *next.Notes)

	history, err := h.svc.History(context.Background(), next.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, old.ID, history[0].ID)
	assert.Equal(t, next.ID, history[1].ID)
}

func TestRescheduleIsBoundedAtThree(t *testing.T) {
	h := newHarness(t)
	current := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(48*time.Hour, 1), TypeSubmission)

	for i := 1; i <= MaxReschedules; i++ {
		target := h.addSlot(time.Duration(48+i)*time.Hour, 1)
		next, err := h.svc.Reschedule(context.Background(), current.ID, RescheduleInput{NewTimeSlotID: target.ID})
		require.NoError(t, err, "reschedule %d", i)
		assert.Equal(t, i, next.RescheduleCount)
		assert.Nil(t, next.Notes)
		current = next
	}

	target := h.addSlot(96*time.Hour, 1)
	_, err := h.svc.Reschedule(context.Background(), current.ID, RescheduleInput{NewTimeSlotID: target.ID})
	assert.ErrorIs(t, err, ErrRescheduleLimit)
	assert.Equal(t, apperr.KindPolicyViolation, apperr.KindOf(err))
	assert.Equal(t, 0, h.slot(target.ID).CurrentBookings)
}

func TestRescheduleCutoff(t *testing.T) {
	tests := []struct {
		name    string
		in      time.Duration
		wantErr error
	}{
		{"25h ahead", 25 * time.Hour, nil},
		{"exactly 24h ahead", 24 * time.Hour, nil},
		{"23h ahead", 23 * time.Hour, ErrRescheduleTooLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			a := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(tt.in, 1), TypeSubmission)
			target := h.addSlot(72*time.Hour, 1)

			_, err := h.svc.Reschedule(context.Background(), a.ID, RescheduleInput{NewTimeSlotID: target.ID})
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperr.KindPolicyViolation, apperr.KindOf(err))
		})
	}
}

func TestRescheduleGuards(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(48*time.Hour, 1)
	full := h.addSlot(72*time.Hour, 1)
	a := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)
	h.book(t, h.addSubject(subject.StatusSubmitted), full, TypeSubmission)
	ctx := context.Background()

	_, err := h.svc.Reschedule(ctx, a.ID, RescheduleInput{NewTimeSlotID: s.ID})
	assert.ErrorIs(t, err, ErrSameSlot)

	_, err = h.svc.Reschedule(ctx, a.ID, RescheduleInput{NewTimeSlotID: full.ID})
	assert.ErrorIs(t, err, slot.ErrSlotFull)

	// The failed attempt left everything as it was.
	still, err := h.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, still.Status)
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)

	_, err = h.svc.Cancel(ctx, a.ID, "plans changed")
	require.NoError(t, err)
	_, err = h.svc.Reschedule(ctx, a.ID, RescheduleInput{NewTimeSlotID: h.addSlot(96*time.Hour, 1).ID})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestCheckInAndCompleteCollection(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(90*time.Minute, 1)
	subj := h.addSubject(subject.StatusReadyForPickup)
	a := h.book(t, subj, s, TypeCollection)
	ctx := context.Background()

	_, err := h.svc.Complete(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	checked, err := h.svc.CheckIn(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)

	h.clock.Advance(2 * time.Hour)
	done, err := h.svc.Complete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, subject.StatusCollected, h.w.subjects[subj])
	assert.True(t, h.w.collected[subj].Equal(baseNow.Add(2*time.Hour)))

	// Completed appointments keep their slot.
	assert.Equal(t, 1, h.slot(s.ID).CurrentBookings)
}

func TestCompleteSubmissionLeavesSubjectAlone(t *testing.T) {
	h := newHarness(t)
	subj := h.addSubject(subject.StatusSubmitted)
	a := h.book(t, subj, h.addSlot(time.Hour, 1), TypeSubmission)

	_, err := h.svc.CheckIn(context.Background(), a.ID)
	require.NoError(t, err)
	_, err = h.svc.Complete(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, subject.StatusSubmitted, h.w.subjects[subj])
}

func TestCheckInOnlyOnScheduledDay(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(24*time.Hour, 1), TypeSubmission)

	_, err := h.svc.CheckIn(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrNotToday)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestRequireConfirmationFlow(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.RequireConfirmation = true })
	a := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(time.Hour, 1), TypeSubmission)
	ctx := context.Background()

	assert.Equal(t, StatusScheduled, a.Status)

	_, err := h.svc.CheckIn(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	confirmed, err := h.svc.Confirm(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = h.svc.Confirm(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestNoShowReleasesSlotOnce(t *testing.T) {
	h := newHarness(t)
	s := h.addSlot(time.Hour, 1)
	a := h.book(t, h.addSubject(subject.StatusSubmitted), s, TypeSubmission)
	ctx := context.Background()

	_, err := h.svc.MarkNoShow(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotYetDue)

	h.clock.Advance(2 * time.Hour)
	missed, err := h.svc.MarkNoShow(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, missed.Status)
	assert.Equal(t, 0, h.slot(s.ID).CurrentBookings)

	_, err = h.svc.Cancel(ctx, a.ID, "too late now")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, 0, h.slot(s.ID).CurrentBookings)
}

func TestSweepNoShows(t *testing.T) {
	h := newHarness(t)
	overdue := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(time.Hour, 1), TypeSubmission)
	upcoming := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(6*time.Hour, 1), TypeSubmission)
	ctx := context.Background()

	h.clock.Advance(3 * time.Hour)

	n, err := h.svc.SweepNoShows(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = h.svc.SweepNoShows(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := h.svc.Get(ctx, overdue.ID)
	assert.Equal(t, StatusNoShow, got.Status)
	got, _ = h.svc.Get(ctx, upcoming.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestDailySchedule(t *testing.T) {
	h := newHarness(t)
	today := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(time.Hour, 1), TypeSubmission)
	h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(24*time.Hour, 1), TypeSubmission)
	cancelled := h.book(t, h.addSubject(subject.StatusSubmitted), h.addSlot(2*time.Hour, 1), TypeSubmission)
	_, err := h.svc.Cancel(context.Background(), cancelled.ID, "not coming")
	require.NoError(t, err)

	list, err := h.svc.DailySchedule(context.Background(), h.loc.ID, calendar.Date(2030, time.January, 7))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, today.ID, list[0].ID)
}

func TestLookups(t *testing.T) {
	h := newHarness(t)
	subj := h.addSubject(subject.StatusSubmitted)
	a := h.book(t, subj, h.addSlot(time.Hour, 1), TypeSubmission)
	ctx := context.Background()

	byCode, err := h.svc.GetByConfirmationCode(ctx, a.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byCode.ID)

	_, err = h.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	_, err = h.svc.CheckIn(ctx, a.ID)
	require.NoError(t, err)
	_, err = h.svc.Complete(ctx, a.ID)
	require.NoError(t, err)

	open, err := h.svc.ListForSubject(ctx, subj, false)
	require.NoError(t, err)
	assert.Empty(t, open)
	all, err := h.svc.ListForSubject(ctx, subj, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
