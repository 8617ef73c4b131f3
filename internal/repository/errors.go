package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate reports a unique-constraint violation. For exam results the
// constraint on (participant_id, course_id) is the duplicate-submission
// check; callers must not rely on a prior existence query.
var ErrDuplicate = errors.New("duplicate row")

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
