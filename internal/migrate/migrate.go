// Package migrate copies every user and note from one store into another.
//
// HOW A RUN WORKS:
//  1. List the tables the source has.
//  2. Read all "user" rows, then all "note" rows, into typed entities.
//     Mapping is tolerant: missing columns become unset fields and bad
//     timestamps fall back to the run's clock (see NoteFromRow).
//  3. Insert everything into the target inside ONE transaction. Rows are
//     appended: the target assigns new ids, so a target that already holds
//     data keeps it. Any failed insert rolls the whole run back, so the
//     target never holds a partial copy.
//  4. Return a Report with per-entity counts. Verify compares those counts
//     against the source.
//
// The migrator never creates tables. Callers create the target schema first.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/notebook/internal/model"
)

// Source is a store rows are read from.
type Source interface {
	Tables(ctx context.Context) ([]string, error)
	Rows(ctx context.Context, table string) ([]Row, error)
	Count(ctx context.Context, table string) (int64, error)
}

// Writer inserts entities inside a target transaction. The store assigns
// every id and writes it back into the entity.
type Writer interface {
	InsertUser(ctx context.Context, u *model.User) error
	InsertNote(ctx context.Context, n *model.Note) error
}

// Target is a store rows are written to. InTx commits only when fn returns
// nil and rolls back otherwise.
type Target interface {
	InTx(ctx context.Context, fn func(w Writer) error) error
}

// Report describes a finished run.
type Report struct {
	RunID              string   `json:"run_id"`
	UsersMigrated      int      `json:"users_migrated"`
	NotesMigrated      int      `json:"notes_migrated"`
	TimestampFallbacks int      `json:"timestamp_fallbacks"`
	SkippedTables      []string `json:"skipped_tables,omitempty"`
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithClock replaces time.Now. The clock is read once per run.
func WithClock(now func() time.Time) Option {
	return func(m *Migrator) { m.now = now }
}

// Migrator runs cross-store copies.
type Migrator struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Migrator.
func New(logger *slog.Logger, opts ...Option) *Migrator {
	m := &Migrator{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Migrate copies all users and notes from src to dst.
//
// Rows with an unparsable created_at or updated_at are still migrated and
// counted; the substitution is reported in Report.TimestampFallbacks. If any
// row cannot be mapped or inserted, nothing is committed and the returned
// report has zero counts.
func (m *Migrator) Migrate(ctx context.Context, src Source, dst Target) (Report, error) {
	report := Report{RunID: xid.New().String()}
	log := m.logger.With(slog.String("run_id", report.RunID))
	now := m.now().UTC()

	tables, err := src.Tables(ctx)
	if err != nil {
		return report, fmt.Errorf("migrate: listing source tables: %w", err)
	}
	for _, t := range tables {
		if t != model.UserTable && t != model.NoteTable {
			report.SkippedTables = append(report.SkippedTables, t)
		}
	}
	log.Info("source tables", slog.Any("tables", tables))

	var users []*model.User
	if slices.Contains(tables, model.UserTable) {
		rows, err := src.Rows(ctx, model.UserTable)
		if err != nil {
			return report, fmt.Errorf("migrate: reading users: %w", err)
		}
		for _, row := range rows {
			u, err := UserFromRow(row)
			if err != nil {
				return report, fmt.Errorf("migrate: %w", err)
			}
			users = append(users, u)
		}
	}

	var notes []*model.Note
	fallbacks := 0
	if slices.Contains(tables, model.NoteTable) {
		rows, err := src.Rows(ctx, model.NoteTable)
		if err != nil {
			return report, fmt.Errorf("migrate: reading notes: %w", err)
		}
		for _, row := range rows {
			mapped := NoteFromRow(row, now)
			if mapped.TimestampFallbacks > 0 {
				log.Warn("timestamp replaced with run time",
					slog.Int64("source_note_id", mapped.Note.ID),
					slog.Int("fields", mapped.TimestampFallbacks),
				)
			}
			fallbacks += mapped.TimestampFallbacks
			notes = append(notes, mapped.Note)
		}
	}

	err = dst.InTx(ctx, func(w Writer) error {
		for _, u := range users {
			sourceID := u.ID
			u.ID = 0
			if err := w.InsertUser(ctx, u); err != nil {
				return fmt.Errorf("inserting user %q (source id %d): %w", u.Username, sourceID, err)
			}
		}
		for _, n := range notes {
			sourceID := n.ID
			n.ID = 0
			if err := w.InsertNote(ctx, n); err != nil {
				return fmt.Errorf("inserting note (source id %d): %w", sourceID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("migration rolled back", slog.String("error", err.Error()))
		return report, fmt.Errorf("migrate: %w", err)
	}

	report.UsersMigrated = len(users)
	report.NotesMigrated = len(notes)
	report.TimestampFallbacks = fallbacks

	log.Info("migration committed",
		slog.Int("users", report.UsersMigrated),
		slog.Int("notes", report.NotesMigrated),
		slog.Int("timestamp_fallbacks", report.TimestampFallbacks),
	)
	return report, nil
}

// Discrepancy is a table whose migrated count differs from its source count.
type Discrepancy struct {
	Table    string `json:"table"`
	Source   int64  `json:"source"`
	Migrated int64  `json:"migrated"`
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: source has %d rows, %d migrated", d.Table, d.Source, d.Migrated)
}

// Verify compares a report against the source row counts. Tables the source
// does not have count as zero rows.
func Verify(ctx context.Context, src Source, report Report) ([]Discrepancy, error) {
	tables, err := src.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: listing source tables: %w", err)
	}

	checks := []struct {
		table    string
		migrated int
	}{
		{model.UserTable, report.UsersMigrated},
		{model.NoteTable, report.NotesMigrated},
	}

	var out []Discrepancy
	for _, c := range checks {
		var count int64
		if slices.Contains(tables, c.table) {
			if count, err = src.Count(ctx, c.table); err != nil {
				return nil, fmt.Errorf("migrate: counting %s: %w", c.table, err)
			}
		}
		if count != int64(c.migrated) {
			out = append(out, Discrepancy{Table: c.table, Source: count, Migrated: int64(c.migrated)})
		}
	}
	return out, nil
}
