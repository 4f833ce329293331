package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
	"github.com/sakif/notebook/internal/store"
)

// writeLegacyDB creates <root>/database/app.db in the shape the first
// version of the app left behind: no tags/position/event columns.
func writeLegacyDB(t *testing.T, root string, statements ...string) string {
	t.Helper()
	dir := filepath.Join(root, "database")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "app.db")

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`
		CREATE TABLE user (
			id       INTEGER PRIMARY KEY,
			username VARCHAR(80) UNIQUE NOT NULL,
			email    VARCHAR(120) UNIQUE NOT NULL
		);
		CREATE TABLE note (
			id         INTEGER PRIMARY KEY,
			title      VARCHAR(200),
			content    TEXT,
			created_at VARCHAR(40),
			updated_at VARCHAR(40)
		);
	`)
	require.NoError(t, err)
	for _, stmt := range statements {
		_, err := raw.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, raw.Close())
	return path
}

func openSQLite(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(),
		store.Descriptor{Driver: store.DriverSQLite, DSN: path},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =========================================================================
// MIGRATE TESTS
// =========================================================================

func TestMigrateCommand_SQLiteToSQLite(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root,
		`INSERT INTO user (id, username, email) VALUES (1, 'ada', 'ada@example.com')`,
		`INSERT INTO note (id, title, content, created_at) VALUES (1, 'first', 'a', '2023-04-05T06:07:08Z')`,
		`INSERT INTO note (id, title, content, created_at) VALUES (2, NULL, NULL, 'last tuesday')`,
	)
	target := filepath.Join(t.TempDir(), "target.db")

	out, err := execute(t, "migrate", "--root", root, "--to", target, "--format", "json")
	require.NoError(t, err)

	var result MigrateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Skipped)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 1, result.UsersMigrated)
	assert.Equal(t, 2, result.NotesMigrated)
	// Both updated_at values are NULL and one created_at is unparsable.
	assert.Equal(t, 3, result.TimestampFallbacks)
	assert.Empty(t, result.Discrepancies)

	dst := openSQLite(t, target)
	notes, err := dst.Notes.List(context.Background(), repository.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2)

	byID := map[int64]model.Note{}
	for _, n := range notes {
		byID[n.ID] = n
	}
	assert.Equal(t, "first", byID[1].Title)
	assert.Equal(t, model.DefaultNoteTitle, byID[2].Title)
}

func TestMigrateCommand_TextOutput(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root, `INSERT INTO note (title, content) VALUES ('x', 'y')`)

	out, err := execute(t, "migrate", "--root", root, "--to", filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "notes:  1 migrated")
	assert.Contains(t, out, "users:  0 migrated")
}

func TestMigrateCommand_MissingSourceIsSkipped(t *testing.T) {
	out, err := execute(t, "migrate", "--root", t.TempDir(), "--to", filepath.Join(t.TempDir(), "t.db"), "--format", "json")
	require.NoError(t, err)

	var result MigrateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Skipped)
	assert.Zero(t, result.NotesMigrated)
}

func TestMigrateCommand_NoTarget(t *testing.T) {
	_, err := execute(t, "migrate", "--root", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommand_SameDatabase(t *testing.T) {
	root := t.TempDir()
	src := writeLegacyDB(t, root)

	_, err := execute(t, "migrate", "--from", src, "--to", src)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommand_SameDatabaseDifferentSpelling(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root)
	t.Chdir(root)

	_, err := execute(t, "migrate", "--from", "database/app.db", "--to", "./database/../database/app.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommand_SourceFileUnchanged(t *testing.T) {
	root := t.TempDir()
	src := writeLegacyDB(t, root, `INSERT INTO note (title, content) VALUES ('x', 'y')`)

	_, err := execute(t, "migrate", "--root", root, "--to", filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)

	assert.NoFileExists(t, src+"-wal")
	assert.NoFileExists(t, src+"-shm")

	raw, err := sql.Open("sqlite", src)
	require.NoError(t, err)
	defer raw.Close()
	var mode string
	require.NoError(t, raw.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "delete", mode)
}

func TestMigrateCommand_MalformedTargetURL(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root)

	_, err := execute(t, "migrate", "--root", root, "--to", "mysql://u@h/db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommand_DuplicateInTargetRollsBack(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root,
		`INSERT INTO user (id, username, email) VALUES (1, 'ada', 'ada@example.com')`,
		`INSERT INTO note (id, title) VALUES (1, 'n')`,
	)
	target := filepath.Join(t.TempDir(), "target.db")
	dst := openSQLite(t, target)
	require.NoError(t, dst.CreateTables(context.Background()))
	require.NoError(t, dst.Users.Create(context.Background(), &model.User{Username: "ada", Email: "other@example.com"}))

	_, err := execute(t, "migrate", "--root", root, "--to", target)
	require.Error(t, err)

	n, err := dst.Count(context.Background(), model.NoteTable)
	require.NoError(t, err)
	assert.Zero(t, n, "no note may be committed when a user insert fails")
}

// =========================================================================
// RECONCILE TESTS
// =========================================================================

func TestReconcileCommand_AddsMissingColumnsOnce(t *testing.T) {
	root := t.TempDir()
	writeLegacyDB(t, root, `INSERT INTO note (title, content) VALUES ('old', 'row')`)

	out, err := execute(t, "reconcile", "--root", root, "--format", "json")
	require.NoError(t, err)

	var first ReconcileResult
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, model.NoteTable, first.Table)
	assert.ElementsMatch(t, []string{"tags", "position", "event_date", "event_time"}, first.Added)
	assert.Empty(t, first.Failed)

	out, err = execute(t, "reconcile", "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to do")

	st := openSQLite(t, filepath.Join(root, "database", "app.db"))
	notes, err := st.Notes.List(context.Background(), repository.NoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "old", notes[0].Title)
	assert.Nil(t, notes[0].Tags)
	assert.Nil(t, notes[0].EventDate)
}

// =========================================================================
// CHECK TESTS
// =========================================================================

func TestCheckCommand(t *testing.T) {
	root := t.TempDir()
	d, err := store.Select("", root)
	require.NoError(t, err)
	st := openSQLite(t, d.DSN)
	ctx := context.Background()
	_, err = st.Prepare(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, st.Notes.Create(ctx, &model.Note{Title: "keep"}))

	out, err := execute(t, "check", "--root", root, "--format", "json")
	require.NoError(t, err)

	var result CheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ok", result.Probe)
	assert.Empty(t, result.Missing)
	assert.Equal(t, int64(1), result.Counts[model.NoteTable])

	n, err := st.Count(ctx, model.NoteTable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "probe note must be removed")
}

func TestCheckCommand_EmptyStore(t *testing.T) {
	out, err := execute(t, "check", "--root", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "MISSING table note")
	assert.Contains(t, out, "probe:  skipped")
}
