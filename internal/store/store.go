// Package store decides which database the process uses and opens it.
//
// SELECTION RULES (evaluated once per process):
//   - DATABASE_URL set   → PostgreSQL. A legacy "postgres://" scheme is
//     rewritten to "postgresql://". Connections are pinged before use and
//     recycled every 300s.
//   - DATABASE_URL empty → SQLite at <root>/database/app.db. The directory is
//     created if needed.
//
// A malformed DATABASE_URL is a configuration error; it never silently falls
// back to SQLite.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
	"github.com/sakif/notebook/internal/repository/postgres"
	"github.com/sakif/notebook/internal/repository/sqlite"
	"github.com/sakif/notebook/internal/schema"
)

// Driver names a backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Defaults for remote stores.
const (
	DefaultConnMaxLifetime = 300 * time.Second
	sqliteDir              = "database"
	sqliteFile             = "app.db"
)

// Descriptor fully describes how to open a store.
type Descriptor struct {
	Driver          Driver
	DSN             string
	PrePing         bool
	ConnMaxLifetime time.Duration
	// ReadOnly opens the store for reading only, as a migration source.
	ReadOnly bool
}

// String returns the descriptor with any password masked, for logs.
func (d Descriptor) String() string {
	if d.Driver != DriverPostgres {
		return fmt.Sprintf("%s:%s", d.Driver, d.DSN)
	}
	u, err := url.Parse(d.DSN)
	if err != nil {
		return string(d.Driver)
	}
	return fmt.Sprintf("%s:%s", d.Driver, u.Redacted())
}

// Select turns the DATABASE_URL value into a Descriptor. rootDir anchors
// the SQLite file when databaseURL is empty.
func Select(databaseURL, rootDir string) (Descriptor, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return selectSQLite(rootDir)
	}
	return selectPostgres(databaseURL)
}

func selectSQLite(rootDir string) (Descriptor, error) {
	dir := filepath.Join(rootDir, sqliteDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Descriptor{}, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return Descriptor{
		Driver: DriverSQLite,
		DSN:    filepath.Join(dir, sqliteFile),
	}, nil
}

func selectPostgres(databaseURL string) (Descriptor, error) {
	if rest, ok := strings.CutPrefix(databaseURL, "postgres://"); ok {
		databaseURL = "postgresql://" + rest
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return Descriptor{}, apperror.Config("DATABASE_URL", "DATABASE_URL is not a valid URL")
	}
	if u.Scheme != "postgresql" {
		return Descriptor{}, apperror.Config("DATABASE_URL",
			fmt.Sprintf("DATABASE_URL scheme %q is not supported, use postgresql://", u.Scheme))
	}
	if u.Host == "" && u.Query().Get("host") == "" {
		return Descriptor{}, apperror.Config("DATABASE_URL", "DATABASE_URL has no host")
	}

	return Descriptor{
		Driver:          DriverPostgres,
		DSN:             databaseURL,
		PrePing:         true,
		ConnMaxLifetime: DefaultConnMaxLifetime,
	}, nil
}

// Backend is everything a store offers besides the repositories.
type Backend interface {
	schema.Inspector
	migrate.Source
	migrate.Target
	CreateTables(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Store is an open database, passed explicitly to every component that uses it.
type Store struct {
	Backend
	Descriptor Descriptor
	Users      repository.UserRepository
	Notes      repository.NoteRepository
}

// Open connects to the store d describes.
func Open(ctx context.Context, d Descriptor, logger *slog.Logger) (*Store, error) {
	switch d.Driver {
	case DriverSQLite:
		open := sqlite.New
		if d.ReadOnly {
			open = sqlite.OpenReadOnly
		}
		db, err := open(d.DSN)
		if err != nil {
			return nil, apperror.Unavailable("sqlite", err)
		}
		logger.Info("store opened", slog.String("store", d.String()))
		return &Store{Backend: db, Descriptor: d, Users: db.Users(), Notes: db.Notes()}, nil

	case DriverPostgres:
		db, err := postgres.Open(ctx, d.DSN, postgres.Options{
			PrePing:         d.PrePing,
			ConnMaxLifetime: d.ConnMaxLifetime,
			ReadOnly:        d.ReadOnly,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened",
			slog.String("store", d.String()),
			slog.Duration("conn_max_lifetime", d.ConnMaxLifetime),
		)
		return &Store{Backend: db, Descriptor: d, Users: db.Users(), Notes: db.Notes()}, nil

	default:
		return nil, apperror.Config("driver", fmt.Sprintf("unknown store driver %q", d.Driver))
	}
}

// Prepare creates missing tables and adds missing note columns. It is run on
// every server start and is a no-op on an up-to-date database.
func (s *Store) Prepare(ctx context.Context, logger *slog.Logger) (schema.Result, error) {
	if err := s.CreateTables(ctx); err != nil {
		return schema.Result{}, err
	}
	return schema.NewReconciler(s, logger).Reconcile(ctx, model.NoteTable, schema.NoteColumns)
}
