package model

import (
	"encoding/json"
	"time"
)

// Table names shared by both stores and by the migrator. They match the
// names used by databases created before this app was written in Go.
const (
	UserTable = "user"
	NoteTable = "note"
)

// DefaultNoteTitle is used when a note arrives without a usable title.
const DefaultNoteTitle = "Untitled"

// Note is a single note.
//
// NULLABLE COLUMNS AS POINTERS:
// tags, position, event_date and event_time were added to the table over time,
// so older rows have NULL in them. A nil pointer is the Go spelling of "unset";
// using zero values ("" or 0) would make an unset position look like position 0.
type Note struct {
	ID        int64      `json:"id"         db:"id"         gorm:"primaryKey"`
	Title     string     `json:"title"      db:"title"      gorm:"size:200;not null"`
	Content   string     `json:"content"    db:"content"    gorm:"type:text;not null"`
	Tags      *string    `json:"tags"       db:"tags"       gorm:"type:text"`
	Position  *int64     `json:"position"   db:"position"`
	EventDate *Date      `json:"event_date" db:"event_date"`
	EventTime *TimeOfDay `json:"event_time" db:"event_time"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at" gorm:"not null"`
}

// TableName pins the table name to "note".
func (Note) TableName() string { return NoteTable }

// NotePatch describes a partial update to a Note.
//
// Title and Content are plain pointers: nil means "leave unchanged".
// The nullable columns use Nullable so a client can also send an explicit
// null to clear them, which a plain pointer cannot express.
type NotePatch struct {
	Title     *string             `json:"title"`
	Content   *string             `json:"content"`
	Tags      Nullable[string]    `json:"tags"`
	Position  Nullable[int64]     `json:"position"`
	EventDate Nullable[Date]      `json:"event_date"`
	EventTime Nullable[TimeOfDay] `json:"event_time"`
}

// Apply copies every set field of the patch onto n.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	p.Tags.apply(&n.Tags)
	p.Position.apply(&n.Position)
	p.EventDate.apply(&n.EventDate)
	p.EventTime.apply(&n.EventTime)
}

// Nullable is a patch field for a nullable column.
//
// Three states:
//   - Set == false            → field absent from the patch, keep the old value
//   - Set == true, Value nil  → explicit null, clear the column
//   - Set == true, Value != nil → store the new value
//
// encoding/json only calls UnmarshalJSON for keys that are present, which is
// what lets us tell "absent" from "null".
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that clears the column.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

// Some returns a Nullable that stores v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// UnmarshalJSON records that the field was present and decodes its value.
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON encodes the value, or null when it is unset.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n Nullable[T]) apply(dst **T) {
	if !n.Set {
		return
	}
	if n.Value == nil {
		*dst = nil
		return
	}
	v := *n.Value
	*dst = &v
}
