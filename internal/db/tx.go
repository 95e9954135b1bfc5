package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
	"github.com/hackgods/passport-office-scheduling/internal/logging"
	"github.com/hackgods/passport-office-scheduling/internal/metrics"
	"github.com/hackgods/passport-office-scheduling/internal/retry"
)

type txKey struct{}

// ErrCommitUncertain marks a COMMIT that failed without a server verdict. The
// transaction may have been applied, so it is never re-run.
var ErrCommitUncertain = errors.New("commit outcome unknown")

// Conn returns the transaction bound to ctx by TxManager, or pool when there is none.
func Conn(ctx context.Context, pool Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// TxManager runs closures inside a single Postgres transaction. Repositories that
// resolve their connection through Conn join it automatically.
type TxManager struct {
	pool    Pool
	retry   retry.Config
	log     *logging.Logger
	metrics *metrics.SchedulingMetrics
}

func NewTxManager(pool Pool, cfg retry.Config, log *logging.Logger, m *metrics.SchedulingMetrics) *TxManager {
	if log == nil {
		log = logging.Default()
	}
	cfg.Retryable = IsTransient
	return &TxManager{pool: pool, retry: cfg, log: log, metrics: m}
}

// WithTx commits when fn returns nil and rolls back otherwise. The whole closure is
// re-run on transient storage failures, so fn must re-read anything it validates.
// Nested calls join the outer transaction.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	cfg := m.retry
	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		m.metrics.IncTxRetry()
		m.log.Warn("retrying transaction after transient failure",
			"attempt", attempt, "next_delay", next, "error", err)
	}

	err := retry.Do(ctx, cfg, func() error {
		return m.runOnce(ctx, fn)
	})
	if err != nil && IsTransient(err) {
		return apperr.Transient(err)
	}
	return err
}

func (m *TxManager) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			m.log.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("commit tx: %w", err)
		}
		return fmt.Errorf("commit tx: %w: %w", ErrCommitUncertain, err)
	}
	return nil
}

// Postgres error codes the scheduling core reacts to.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeAdminShutdown        = "57P01"
)

// IsTransient reports whether err is a storage failure that is safe to retry by
// running the whole transaction again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCommitUncertain) {
		return false
	}
	if _, ok := apperr.As(err); ok {
		return apperr.KindOf(err) == apperr.KindTransientStorage
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeAdminShutdown:
			return true
		}
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}

	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// IsUniqueViolation reports whether err violates the named constraint, or any
// unique constraint when constraint is empty.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsCheckViolation reports whether err violates the named check constraint, or
// any check constraint when constraint is empty.
func IsCheckViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeCheckViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
