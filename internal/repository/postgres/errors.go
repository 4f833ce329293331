package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

// uniqueViolationCode is the SQLSTATE for unique_violation.
const uniqueViolationCode = "23505"

// uniqueViolation reports which user column a unique violation is on.
//
// The constraint name depends on who created the table: GORM names it
// idx_user_email, older schemas use user_email_key. Both contain the column.
func uniqueViolation(err error) (column string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return "", false
	}

	for _, candidate := range []string{"username", "email"} {
		if strings.Contains(pgErr.ConstraintName, candidate) ||
			strings.Contains(pgErr.Detail, "("+candidate+")") {
			return candidate, true
		}
	}
	return pgErr.ConstraintName, true
}

// userWriteError converts a duplicate username or email into a conflict.
// It returns nil for any other error.
func userWriteError(err error, u *model.User) error {
	column, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch column {
	case "username":
		return apperror.Conflict("user", "username", u.Username)
	case "email":
		return apperror.Conflict("user", "email", u.Email)
	default:
		return apperror.Conflict("user", column, "")
	}
}
