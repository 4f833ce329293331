package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// compile-time check that *NoteDB implements repository.NoteRepository
var _ repository.NoteRepository = (*NoteDB)(nil)

// NoteDB stores notes in the "note" table.
type NoteDB struct {
	conn *sql.DB
}

const noteColumns = `id, title, content, tags, position, event_date, event_time, created_at, updated_at`

// Create inserts a note. Zero timestamps are set to now; after the call
// note.ID holds the id SQLite assigned.
func (n *NoteDB) Create(ctx context.Context, note *model.Note) error {
	return insertNote(ctx, n.conn, note)
}

func insertNote(ctx context.Context, ex execer, note *model.Note) error {
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}

	// Nil pointers bind as NULL, so unset optional fields stay unset.
	result, err := ex.ExecContext(ctx,
		`INSERT INTO note (title, content, tags, position, event_date, event_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.Title,
		note.Content,
		note.Tags,
		note.Position,
		note.EventDate,
		note.EventTime,
		formatTimestamp(note.CreatedAt),
		formatTimestamp(note.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new note id: %w", err)
	}
	note.ID = id
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote reads one row selected with noteColumns.
//
// title and content go through sql.NullString because files written by the
// previous version of the app may hold NULL there.
func scanNote(s rowScanner) (model.Note, error) {
	var (
		note           model.Note
		title, content sql.NullString
	)
	err := s.Scan(
		&note.ID,
		&title,
		&content,
		&note.Tags,
		&note.Position,
		&note.EventDate,
		&note.EventTime,
		timeColumn{&note.CreatedAt},
		timeColumn{&note.UpdatedAt},
	)
	note.Title = title.String
	note.Content = content.String
	return note, err
}

// GetByID retrieves a single note.
func (n *NoteDB) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	note, err := scanNote(n.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM note WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %d: %w", id, err)
	}
	return &note, nil
}

// List returns notes matching filter.Query, ordered by position (unset
// positions last), then newest first.
//
// SQLite's LIKE is case-insensitive for ASCII letters only; that is enough
// for a personal notebook.
func (n *NoteDB) List(ctx context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	limit, offset := pageArgs(filter.ListOptions)

	var (
		where string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		where = `WHERE title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}
	args = append(args, limit, offset)

	rows, err := n.conn.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM note `+where+`
		 ORDER BY position IS NULL, position ASC, created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}
	return notes, nil
}

// Update overwrites every mutable column and bumps updated_at.
// created_at is never changed.
func (n *NoteDB) Update(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = time.Now().UTC()

	result, err := n.conn.ExecContext(ctx,
		`UPDATE note
		 SET title = ?, content = ?, tags = ?, position = ?,
		     event_date = ?, event_time = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title,
		note.Content,
		note.Tags,
		note.Position,
		note.EventDate,
		note.EventTime,
		formatTimestamp(note.UpdatedAt),
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %d: %w", note.ID, err)
	}
	return requireRow(result, "note", note.ID)
}

// Delete removes a note.
func (n *NoteDB) Delete(ctx context.Context, id int64) error {
	result, err := n.conn.ExecContext(ctx, `DELETE FROM note WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %d: %w", id, err)
	}
	return requireRow(result, "note", id)
}

// escapeLike makes %, _ and \ in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
