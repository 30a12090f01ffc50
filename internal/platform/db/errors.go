package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrVersionConflict is returned by repository Update methods when the
// row's version no longer matches the snapshot being written. The caller
// lost a concurrent update and must re-read before retrying.
var ErrVersionConflict = errors.New("version conflict: record was modified concurrently")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505). Used to retry record-number generation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
