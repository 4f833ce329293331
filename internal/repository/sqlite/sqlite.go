// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// SQLITE IS THE DEFAULT STORE:
// When no DATABASE_URL is configured the app keeps everything in a single file
// under <root>/database/app.db. No server to install, nothing to configure;
// a fresh checkout just runs.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler and painful
// cross-compilation. modernc.org/sqlite is a pure Go translation of SQLite.
//
// ONE PACKAGE, FOUR ROLES:
// The same *DB serves every store-facing contract in the app:
//   - repository.UserRepository / NoteRepository  (via Users() and Notes())
//   - schema.Inspector                            (inspect.go)
//   - migrate.Source and migrate.Target           (inspect.go, tx.go)
//
// LEGACY FILES:
// Databases created by the previous version of this app use INTEGER ids,
// the table names "user" and "note", and timestamps stored as text. Everything
// here reads those files as-is; the only change ever made to an existing file
// is adding missing note columns (see package schema).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// The driver registers itself with database/sql as "sqlite" in its init().
	_ "modernc.org/sqlite"

	"github.com/sakif/notebook/internal/model"
)

// timestampLayout matches what the previous version of the app wrote, so
// old and new rows sort together as text.
const timestampLayout = "2006-01-02 15:04:05.000000"

// DB wraps a sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens a SQLite database. It does not create any tables; call
// CreateTables for that.
//
// dsn examples:
//   - "database/app.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests, lost on close)
func New(dsn string) (*DB, error) {
	return open(dsn, false)
}

// OpenReadOnly opens an existing database file for reading only. Every
// connection runs with query_only, and the file's journal mode is left as
// it is, so no -wal or -shm files appear next to it.
func OpenReadOnly(path string) (*DB, error) {
	return open(path+"?_pragma=query_only(1)", true)
}

func open(dsn string, readOnly bool) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand-new empty database,
	// so the pool must never hold more than one.
	if dsn == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if readOnly {
		return &DB{conn: conn}, nil
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database file is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: pinging database: %w", err)
	}
	return nil
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Notes returns the note repository backed by this database.
func (db *DB) Notes() *NoteDB { return &NoteDB{conn: db.conn} }

// CreateTables creates the user and note tables if they do not exist.
//
// CREATE TABLE IF NOT EXISTS leaves an existing table untouched, even one
// missing newer columns. Run schema.Reconciler afterwards to fill those in.
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS "user" (
			id       INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email    TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating user table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS note (
			id         INTEGER PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			tags       TEXT,
			position   INTEGER,
			event_date DATE,
			event_time TIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_note_created_at ON note(created_at);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating note table: %w", err)
	}

	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx, so the insert helpers
// serve the repositories and the migration writer alike.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timeColumn scans DATETIME columns. modernc.org/sqlite hands back a
// time.Time when it recognises the text, and the raw string otherwise.
type timeColumn struct{ t *time.Time }

func (c timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.t = time.Time{}
		return nil
	case time.Time:
		*c.t = v.UTC()
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("sqlite: cannot scan %T into timestamp", src)
	}
}

func (c timeColumn) parse(s string) error {
	t, err := model.ParseTimestamp(s)
	if err != nil {
		return err
	}
	*c.t = t.UTC()
	return nil
}

// quoteIdent quotes a table or column name for interpolation into SQL.
// Identifiers cannot be bound as ? parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
