package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeLockNotAvailable = "55P03"
	codeUniqueViolation  = "23505"
)

// IsLockNotAvailable reports a denied FOR UPDATE NOWAIT lock attempt,
// i.e. a lost race against a concurrent transaction on the same row.
func IsLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
