package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores users in the "user" table.
type UserDB struct {
	conn *sql.DB
}

// Create inserts a user and sets user.ID to the id SQLite assigned.
// A duplicate username or email returns an apperror.ErrConflict error.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	return insertUser(ctx, u.conn, user)
}

func insertUser(ctx context.Context, ex execer, user *model.User) error {
	result, err := ex.ExecContext(ctx,
		`INSERT INTO "user" (username, email) VALUES (?, ?)`,
		user.Username,
		user.Email,
	)
	if err != nil {
		if conflict := userWriteError(err, user); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a single user.
func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := u.conn.QueryRowContext(ctx,
		`SELECT id, username, email FROM "user" WHERE id = ?`, id,
	).Scan(&user.ID, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return &user, nil
}

// List returns users in id order.
func (u *UserDB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit, offset := pageArgs(opts)

	rows, err := u.conn.QueryContext(ctx,
		`SELECT id, username, email FROM "user" ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// Update overwrites username and email.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	result, err := u.conn.ExecContext(ctx,
		`UPDATE "user" SET username = ?, email = ? WHERE id = ?`,
		user.Username, user.Email, user.ID,
	)
	if err != nil {
		if conflict := userWriteError(err, user); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}
	return requireRow(result, "user", user.ID)
}

// Delete removes a user. Notes are not owned by users, so nothing cascades.
func (u *UserDB) Delete(ctx context.Context, id int64) error {
	result, err := u.conn.ExecContext(ctx, `DELETE FROM "user" WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	return requireRow(result, "user", id)
}

// requireRow turns "zero rows affected" into a NotFound error.
func requireRow(result sql.Result, resource string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// pageArgs converts ListOptions to LIMIT/OFFSET arguments.
// SQLite reads a negative LIMIT as "no limit".
func pageArgs(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
