package database

import (
	"errors"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// postgresErrors maps SQLSTATE codes onto the sentinel errors handlers understand.
var postgresErrors = map[string]error{
	"23505": models.ErrConflict,   // unique_violation, e.g. a friend email added twice
	"23503": models.ErrValidation, // foreign_key_violation
	"23502": models.ErrValidation, // not_null_violation
	"23514": models.ErrValidation, // check_violation, e.g. daily_limit <= 0
	"22007": models.ErrValidation, // invalid_datetime_format on usage_date
	"22008": models.ErrValidation, // datetime_field_overflow
	"22P02": models.ErrNotFound,   // malformed uuid in a lookup can never match a row
}

// MapPostgresError translates driver errors into models sentinels.
// Unknown errors are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := postgresErrors[pgErr.Code]; ok {
			return mapped
		}
	}

	return err
}
