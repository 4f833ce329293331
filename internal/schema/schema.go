// Package schema brings an existing table up to the column set the current
// code expects, without losing data.
//
// There is no versions table. The live column list is compared with the
// expected columns and exactly the missing ones are added:
//   - only ADD COLUMN, never drop, rename, or change a type
//   - every added column is nullable with no default, so old rows read as unset
//   - a failing column is recorded and the rest are still attempted
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Kind is the portable type of a column. Each store maps it to its own SQL type.
type Kind int

const (
	Text Kind = iota
	Integer
	Date
	Time
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Date:
		return "date"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one expected column.
type Column struct {
	Name string
	Kind Kind
}

// NoteColumns are the note columns added after the table was first created.
// Older databases may be missing any of them.
var NoteColumns = []Column{
	{Name: "tags", Kind: Text},
	{Name: "position", Kind: Integer},
	{Name: "event_date", Kind: Date},
	{Name: "event_time", Kind: Time},
}

// Inspector is the store-side half of reconciliation.
//
// Columns returns apperror.ErrNotFound when the table does not exist.
// AddColumn must add a nullable column with no default.
type Inspector interface {
	Columns(ctx context.Context, table string) ([]string, error)
	AddColumn(ctx context.Context, table string, col Column) error
}

// Result reports what a Reconcile call changed.
type Result struct {
	Table  string
	Added  []string
	Failed map[string]error
}

// Err joins the per-column failures, or returns nil when every column was added.
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for name, err := range r.Failed {
		errs = append(errs, fmt.Errorf("adding %s.%s: %w", r.Table, name, err))
	}
	return errors.Join(errs...)
}

// Reconciler adds missing columns through an Inspector.
type Reconciler struct {
	store  Inspector
	logger *slog.Logger
}

// NewReconciler creates a Reconciler for the given store.
func NewReconciler(store Inspector, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile adds every column of expected that the live table lacks.
//
// It is safe to run on every start: when nothing is missing it makes no
// changes and returns an empty Result. The returned error is non-nil only
// when the live column list cannot be read; per-column failures are in
// Result.Failed.
func (r *Reconciler) Reconcile(ctx context.Context, table string, expected []Column) (Result, error) {
	result := Result{Table: table, Failed: map[string]error{}}

	live, err := r.store.Columns(ctx, table)
	if err != nil {
		return result, fmt.Errorf("schema: listing columns of %s: %w", table, err)
	}

	// Column names compare case-insensitively, as both SQLite and unquoted
	// PostgreSQL identifiers do.
	present := make(map[string]bool, len(live))
	for _, name := range live {
		present[strings.ToLower(name)] = true
	}

	for _, col := range expected {
		if present[strings.ToLower(col.Name)] {
			continue
		}

		r.logger.Info("adding missing column",
			slog.String("table", table),
			slog.String("column", col.Name),
			slog.String("kind", col.Kind.String()),
		)

		if err := r.store.AddColumn(ctx, table, col); err != nil {
			r.logger.Error("failed to add column",
				slog.String("table", table),
				slog.String("column", col.Name),
				slog.String("error", err.Error()),
			)
			result.Failed[col.Name] = err
			continue
		}
		result.Added = append(result.Added, col.Name)
	}

	if len(result.Added) == 0 && len(result.Failed) == 0 {
		r.logger.Debug("schema up to date", slog.String("table", table))
	}

	return result, nil
}
