package postgres

import (
	"errors"
	"fmt"

	"account-transfer-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATEs PostgreSQL uses when a transaction lost a concurrency race.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

// wrapErr annotates err with op and tags serialization failures as
// domain.ErrConcurrencyConflict so the caller retries them.
func wrapErr(op string, err error) error {
	if isConflict(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrencyConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
