// Package repository declares the persistence contracts the service layer
// depends on. Implementations live in repository/sqlite and repository/postgres.
package repository

import (
	"context"

	"github.com/sakif/notebook/internal/model"
)

// ListOptions pages a listing. A Limit of zero or less means "no limit".
type ListOptions struct {
	Limit  int
	Offset int
}

// NoteFilter narrows a note listing. Query matches title or content as a
// case-insensitive substring; an empty Query matches every note.
type NoteFilter struct {
	Query string
	ListOptions
}

// UserRepository persists users. Create and Update return an
// apperror.ErrConflict error when username or email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// NoteRepository persists notes. List orders by position (unset last), then
// newest first.
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id int64) (*model.Note, error)
	List(ctx context.Context, filter NoteFilter) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id int64) error
}
