package sqlite

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

// uniqueViolation reports which column a UNIQUE constraint failure is on.
// SQLite words these errors as "UNIQUE constraint failed: user.email".
func uniqueViolation(err error) (column string, ok bool) {
	var se *msqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}

	msg := se.Error()
	if i := strings.LastIndex(msg, "."); i >= 0 {
		column = strings.TrimSpace(msg[i+1:])
		// Strip a trailing " (2067)" code suffix if the driver added one.
		if j := strings.IndexAny(column, " ("); j >= 0 {
			column = column[:j]
		}
	}
	return column, true
}

// userWriteError converts a failed user insert or update into a conflict
// when the cause is a duplicate username or email.
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
