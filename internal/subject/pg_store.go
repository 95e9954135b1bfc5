package subject

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/passport-office-scheduling/internal/db"
)

// PgStore reads application status from the shared subjects table and records
// the collected transition. Everything else about a subject is upstream's.
type PgStore struct {
	pool db.Querier
}

func NewPgStore(pool db.Querier) *PgStore {
	return &PgStore{pool: pool}
}

func scanSubject(row pgx.Row) (*Subject, error) {
	var s Subject

	err := row.Scan(
		&s.ID,
		&s.ReferenceNumber,
		&s.ApplicantName,
		&s.Phone,
		&s.Status,
		&s.CollectedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Subject, error) {
	row := db.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT id, reference_number, applicant_name, phone, status, collected_at, created_at, updated_at
		FROM subjects
		WHERE id = $1
	`, id)
	return scanSubject(row)
}

func (s *PgStore) GetSubjectStatus(ctx context.Context, id uuid.UUID) (Status, error) {
	var st Status
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		SELECT status FROM subjects WHERE id = $1
	`, id).Scan(&st)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSubjectNotFound
		}
		return "", fmt.Errorf("get subject status: %w", err)
	}
	return st, nil
}

// MarkSubjectCollected moves a ready application to collected.
func (s *PgStore) MarkSubjectCollected(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := db.Conn(ctx, s.pool).Exec(ctx, `
		UPDATE subjects
		SET status = 'collected', collected_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'ready_for_pickup'
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark subject collected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSubjectStatus(ctx, id); err != nil {
			return err
		}
		return ErrNotCollectable
	}
	return nil
}

// Create inserts a subject. Used by seeding and local development only.
func (s *PgStore) Create(ctx context.Context, sub *Subject) (*Subject, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	row := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO subjects (id, reference_number, applicant_name, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, reference_number, applicant_name, phone, status, collected_at, created_at, updated_at
	`, sub.ID, sub.ReferenceNumber, sub.ApplicantName, sub.Phone, sub.Status)
	return scanSubject(row)
}
