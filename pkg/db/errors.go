package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. Hints
// are matched against the Postgres constraint name or, for drivers that only
// return text (SQLite), against the error message, e.g. "payments.transaction_id".
func IsUniqueViolation(err error, hints ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		if len(hints) == 0 {
			return true
		}
		for _, hint := range hints {
			if pgErr.ConstraintName == hint || strings.Contains(pgErr.Message, hint) {
				return true
			}
		}
		return false
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if len(hints) == 0 {
		return true
	}
	for _, hint := range hints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
