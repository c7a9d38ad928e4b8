package repository

import (
	"errors"
	"strings"

	"clanhub/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrStale is returned by guarded updates whose WHERE clause matched no rows:
// the row changed since it was read, or never was in the expected state.
var ErrStale = errors.New("repository: guarded update matched no rows")

const pgUniqueViolation = "23505"

// translate maps driver errors onto the application error taxonomy.
// Errors that already are *models.AppError pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) || errors.Is(err, ErrStale) {
		return err
	}
	if isUniqueViolation(err) {
		conflict := models.NewConflictError("", "Record already exists")
		conflict.Err = err
		return conflict
	}
	return models.NewStoreUnavailableError(err)
}

// notFoundOr is translate with gorm.ErrRecordNotFound reported as NotFound.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return translate(err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite reports constraint failures only through the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// guarded converts a zero-row result of a compare-and-swap update into ErrStale.
func guarded(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
