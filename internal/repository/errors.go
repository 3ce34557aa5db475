package repository

import (
	"errors"
	"strings"

	"blogicum/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation
// on PostgreSQL (SQLSTATE 23505) or SQLite.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, pgUniqueViolation)
}

// violatedColumn guesses which of columns a unique violation refers to from
// the PostgreSQL constraint name or the SQLite message.
func violatedColumn(err error, columns ...string) string {
	var hay string
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		hay = pgErr.ConstraintName + " " + pgErr.Detail
	} else {
		hay = err.Error()
	}
	hay = strings.ToLower(hay)
	for _, col := range columns {
		if strings.Contains(hay, col) {
			return col
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return ""
}

// translate maps gorm errors onto AppErrors.
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
