package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

var _ repository.NoteRepository = (*NoteDB)(nil)

// NoteDB stores notes in the "note" table.
type NoteDB struct {
	gorm *gorm.DB
}

// noteUpdateColumns are written by Update. Listing them in Select makes GORM
// write nil pointers as NULL instead of skipping them.
var noteUpdateColumns = []string{
	"title", "content", "tags", "position", "event_date", "event_time", "updated_at",
}

func (n *NoteDB) Create(ctx context.Context, note *model.Note) error {
	return insertNote(n.gorm.WithContext(ctx), note)
}

// insertNote always lets the id sequence pick the id.
func insertNote(db *gorm.DB, note *model.Note) error {
	note.ID = 0
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	if err := db.Create(note).Error; err != nil {
		return fmt.Errorf("postgres: creating note: %w", err)
	}
	return nil
}

func (n *NoteDB) GetByID(ctx context.Context, id int64) (*model.Note, error) {
	var note model.Note
	if err := n.gorm.WithContext(ctx).First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("postgres: getting note %d: %w", id, err)
	}
	return &note, nil
}

// List returns notes matching filter.Query (ILIKE on title or content),
// ordered by position with NULLs last, then newest first.
func (n *NoteDB) List(ctx context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	q := n.gorm.WithContext(ctx).Model(&model.Note{})
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}
	q = q.Order("position ASC NULLS LAST").Order("created_at DESC").Order("id DESC")

	notes := []model.Note{}
	if err := paginate(q, filter.ListOptions).Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("postgres: listing notes: %w", err)
	}
	return notes, nil
}

func (n *NoteDB) Update(ctx context.Context, note *model.Note) error {
	note.UpdatedAt = time.Now().UTC()

	res := n.gorm.WithContext(ctx).
		Model(&model.Note{}).
		Where("id = ?", note.ID).
		Select(noteUpdateColumns).
		Updates(note)
	if res.Error != nil {
		return fmt.Errorf("postgres: updating note %d: %w", note.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("note", note.ID)
	}
	return nil
}

func (n *NoteDB) Delete(ctx context.Context, id int64) error {
	res := n.gorm.WithContext(ctx).Delete(&model.Note{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("postgres: deleting note %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("note", id)
	}
	return nil
}

// escapeLike makes %, _ and \ match literally. Backslash is Postgres's
// default LIKE escape character.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
