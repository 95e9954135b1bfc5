package subject

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
)

func newStore(t *testing.T) (*PgStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPgStore(mock), mock
}

func TestGetSubjectStatus(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT status FROM subjects").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusReadyForPickup))

	st, err := store.GetSubjectStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForPickup, st)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubjectStatusNotFound(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT status FROM subjects").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))

	_, err := store.GetSubjectStatus(context.Background(), id)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMarkSubjectCollected(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()
	at := time.Date(2030, time.January, 7, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE subjects SET status = 'collected'").WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkSubjectCollected(context.Background(), id, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubjectCollectedWrongStatus(t *testing.T) {
	store, mock := newStore(t)
	id := uuid.New()
	at := time.Date(2030, time.January, 7, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE subjects").WithArgs(id, at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT status FROM subjects").WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(StatusProcessing))

	err := store.MarkSubjectCollected(context.Background(), id, at)
	assert.ErrorIs(t, err, ErrNotCollectable)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
