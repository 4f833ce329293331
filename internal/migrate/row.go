package migrate

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/notebook/internal/model"
)

// Row is one source row keyed by column name. It only lives long enough to
// be mapped to a typed entity.
type Row map[string]any

// ScanRows reads every row of rows into Rows, keyed by the column names the
// driver reports. []byte values are copied because the driver may reuse them.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading column names: %w", err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(Row, len(cols))
		for i, name := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
			row[name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// String returns the column as text. ok is false when the column is absent or NULL.
func (r Row) String(col string) (string, bool) {
	switch v := r[col].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	default:
		return fmt.Sprint(v), true
	}
}

// Int returns the column as an integer. ok is false when the column is
// absent, NULL, or not a whole number.
func (r Row) Int(col string) (int64, bool) {
	switch v := r[col].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case string, []byte:
		s, _ := r.String(col)
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// UserFromRow maps a source user row. Only id, username and email are read;
// any other column is ignored. A row without a username or email cannot be
// stored and is an error.
func UserFromRow(row Row) (*model.User, error) {
	u := &model.User{}
	if id, ok := row.Int("id"); ok {
		u.ID = id
	}

	var ok bool
	if u.Username, ok = row.String("username"); !ok || strings.TrimSpace(u.Username) == "" {
		return nil, fmt.Errorf("user row %d: missing username", u.ID)
	}
	if u.Email, ok = row.String("email"); !ok || strings.TrimSpace(u.Email) == "" {
		return nil, fmt.Errorf("user row %d: missing email", u.ID)
	}
	return u, nil
}

// NoteMapping is the result of mapping one note row.
type NoteMapping struct {
	Note *model.Note
	// TimestampFallbacks counts created_at/updated_at values that were
	// missing or unparsable and were replaced by the run's clock.
	TimestampFallbacks int
}

// NoteFromRow maps a source note row. It never fails: every column has a
// fallback.
//
//   - title missing or empty → "Untitled"
//   - content missing → ""
//   - created_at/updated_at unparsable → now
//   - event_date/event_time unparsable → unset
//   - tags/position copied as-is, unset when absent
func NoteFromRow(row Row, now time.Time) NoteMapping {
	n := &model.Note{}
	var m NoteMapping

	if id, ok := row.Int("id"); ok {
		n.ID = id
	}

	n.Title, _ = row.String("title")
	if n.Title == "" {
		n.Title = model.DefaultNoteTitle
	}
	n.Content, _ = row.String("content")

	if tags, ok := row.String("tags"); ok {
		n.Tags = &tags
	}
	if pos, ok := row.Int("position"); ok {
		n.Position = &pos
	}

	var ok bool
	if n.CreatedAt, ok = parseTimestamp(row["created_at"]); !ok {
		n.CreatedAt = now
		m.TimestampFallbacks++
	}
	if n.UpdatedAt, ok = parseTimestamp(row["updated_at"]); !ok {
		n.UpdatedAt = now
		m.TimestampFallbacks++
	}

	if d, ok := parseDate(row["event_date"]); ok {
		n.EventDate = &d
	}
	if t, ok := parseTimeOfDay(row["event_time"]); ok {
		n.EventTime = &t
	}

	m.Note = n
	return m
}

func parseTimestamp(v any) (time.Time, bool) {
	switch v := v.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		t, err := model.ParseTimestamp(v)
		return t.UTC(), err == nil
	case []byte:
		t, err := model.ParseTimestamp(string(v))
		return t.UTC(), err == nil
	default:
		return time.Time{}, false
	}
}

func parseDate(v any) (model.Date, bool) {
	if v == nil {
		return model.Date{}, false
	}
	var d model.Date
	if err := d.Scan(v); err != nil {
		return model.Date{}, false
	}
	return d, true
}

func parseTimeOfDay(v any) (model.TimeOfDay, bool) {
	if v == nil {
		return model.TimeOfDay{}, false
	}
	var t model.TimeOfDay
	if err := t.Scan(v); err != nil {
		return model.TimeOfDay{}, false
	}
	return t, true
}
