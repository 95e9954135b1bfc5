package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/passport-office-scheduling/internal/db"
)

func appointmentRows(as ...Appointment) *pgxmock.Rows {
	rows := pgxmock.NewRows(appointmentColumnList)
	for _, a := range as {
		rows.AddRow(a.ID, a.SubjectID, a.LocationID, a.TimeSlotID, a.ScheduledAt, a.DurationMinutes,
			a.Type, a.Status, a.ConfirmationCode, a.Notes, a.SpecialRequirements, a.RescheduleCount,
			a.OriginalAppointmentID, a.RescheduledFromAt, a.CheckedInAt, a.CompletedAt, a.CancelledAt,
			a.CancellationReason, a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

func sampleAppointment(status AppointmentStatus) Appointment {
	created := time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC)
	return Appointment{
		ID:               uuid.New(),
		SubjectID:        uuid.New(),
		LocationID:       uuid.New(),
		TimeSlotID:       uuid.New(),
		ScheduledAt:      time.Date(2030, time.January, 8, 7, 0, 0, 0, time.UTC),
		DurationMinutes:  15,
		Type:             TypeSubmission,
		Status:           status,
		ConfirmationCode: "K7Q2ZD",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func TestPgInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(StatusConfirmed)

	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(a.ID, a.SubjectID, a.LocationID, a.TimeSlotID, a.ScheduledAt, a.DurationMinutes,
			a.Type, a.Status, a.ConfirmationCode, a.Notes, a.SpecialRequirements, a.RescheduleCount,
			a.OriginalAppointmentID, a.RescheduledFromAt, a.CreatedAt).
		WillReturnRows(appointmentRows(a))

	got, err := repo.Insert(context.Background(), &a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Nil(t, got.OriginalAppointmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertCodeCollision(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(StatusConfirmed)

	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(a.ID, a.SubjectID, a.LocationID, a.TimeSlotID, a.ScheduledAt, a.DurationMinutes,
			a.Type, a.Status, a.ConfirmationCode, a.Notes, a.SpecialRequirements, a.RescheduleCount,
			a.OriginalAppointmentID, a.RescheduledFromAt, a.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraintConfirmationCode})

	_, err := repo.Insert(context.Background(), &a)
	assert.True(t, db.IsUniqueViolation(err, constraintConfirmationCode))
	assert.False(t, db.IsUniqueViolation(err, constraintOneActivePerType))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgTransition(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(StatusCancelled)
	at := time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)
	reason := "moving abroad"
	a.CancelledAt = &at
	a.CancellationReason = &reason

	change := Change{To: StatusCancelled, At: at, CancelledAt: &at, CancellationReason: &reason}
	mock.ExpectQuery(`UPDATE appointments SET status = \$3`).
		WithArgs(a.ID, StatusConfirmed, StatusCancelled, change.CheckedInAt, change.CompletedAt, &at, &reason, at).
		WillReturnRows(appointmentRows(a))

	got, err := repo.Transition(context.Background(), a.ID, StatusConfirmed, change)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, reason, *got.CancellationReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgTransitionStale(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()
	at := time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)
	change := Change{To: StatusCheckedIn, At: at, CheckedInAt: &at}

	// Another request moved the row off confirmed first, so the guard matches nothing.
	mock.ExpectQuery(`UPDATE appointments SET status = \$3`).
		WithArgs(id, StatusConfirmed, StatusCheckedIn, &at, change.CompletedAt, change.CancelledAt, change.CancellationReason, at).
		WillReturnRows(appointmentRows())

	_, err := repo.Transition(context.Background(), id, StatusConfirmed, change)
	assert.ErrorIs(t, err, ErrStaleStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindActive(t *testing.T) {
	repo, mock := newMockRepo(t)
	subjectID := uuid.New()

	mock.ExpectQuery(`WHERE subject_id = \$1 AND appointment_type = \$2 AND status IN \('scheduled', 'confirmed'\)`).
		WithArgs(subjectID, TypeCollection).
		WillReturnRows(appointmentRows())

	_, err := repo.FindActive(context.Background(), subjectID, TypeCollection)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindOverdue(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(StatusConfirmed)
	b := sampleAppointment(StatusScheduled)
	before := time.Date(2030, time.January, 8, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`AND scheduled_at < \$1 ORDER BY scheduled_at LIMIT \$2`).
		WithArgs(before, 100).
		WillReturnRows(appointmentRows(a, b))

	got, err := repo.FindOverdue(context.Background(), before, 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListForLocationSkipsSuperseded(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(StatusConfirmed)
	from, to := a.ScheduledAt.Add(-time.Hour), a.ScheduledAt.Add(time.Hour)

	mock.ExpectQuery(`FROM appointments WHERE location_id = \$1 AND scheduled_at >= \$2 AND scheduled_at < \$3 AND status NOT IN \(\$4,\$5\)`).
		WithArgs(a.LocationID, from, to, string(StatusCancelled), string(StatusRescheduled)).
		WillReturnRows(appointmentRows(a))

	got, err := repo.ListForLocation(context.Background(), a.LocationID, from, to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgHistoryEmptyIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`WITH RECURSIVE up AS`).WithArgs(id).WillReturnRows(appointmentRows())

	_, err := repo.History(context.Background(), id)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
