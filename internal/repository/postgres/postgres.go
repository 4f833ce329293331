// Package postgres implements the repository interfaces on PostgreSQL using GORM.
//
// This is the store used when DATABASE_URL is set, typically a managed
// database. It serves the same contracts as package sqlite:
//   - repository.UserRepository / NoteRepository  (via Users() and Notes())
//   - schema.Inspector                            (inspect.go)
//   - migrate.Source and migrate.Target           (inspect.go, tx.go)
//
// # Connection health
//
// Managed databases close idle connections without telling the client.
// Two pool settings cover that:
//   - every connection is pinged before it is handed out (pgx's ResetSession hook)
//   - connections are recycled after ConnMaxLifetime (300s by default)
//
// # Schema
//
// CreateTables only creates tables that are missing. It does not
// run AutoMigrate, which may change the type of an existing column;
// existing tables are only ever extended by package schema.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

// Options tunes the connection pool.
type Options struct {
	// PrePing checks each pooled connection before use.
	PrePing bool
	// ConnMaxLifetime recycles connections after this long. Zero keeps them forever.
	ConnMaxLifetime time.Duration
	// ReadOnly makes every transaction on the pool read-only.
	ReadOnly bool
}

// DB wraps a GORM handle.
type DB struct {
	gorm *gorm.DB
}

// Open connects to PostgreSQL and verifies the connection.
// An unreachable server returns an apperror.ErrUnavailable error.
func Open(ctx context.Context, dsn string, opts Options, logger *slog.Logger) (*DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, apperror.Config("DATABASE_URL", fmt.Sprintf("invalid postgres connection string: %v", err))
	}

	if opts.ReadOnly {
		cfg.RuntimeParams["default_transaction_read_only"] = "on"
	}

	var dbOpts []stdlib.OptionOpenDB
	if opts.PrePing {
		dbOpts = append(dbOpts, stdlib.OptionResetSession(func(ctx context.Context, conn *pgx.Conn) error {
			return conn.Ping(ctx)
		}))
	}
	sqlDB := stdlib.OpenDB(*cfg, dbOpts...)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	gdb, err := gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("postgres: opening gorm: %w", err)
	}

	db := &DB{gorm: gdb}
	if err := db.Ping(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// newGormLogger routes GORM's own warnings (slow queries, SQL errors)
// through slog at WARN level.
func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(
		slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks that the server is reachable.
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperror.Unavailable("postgres", err)
	}
	return nil
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserDB { return &UserDB{gorm: db.gorm} }

// Notes returns the note repository backed by this database.
func (db *DB) Notes() *NoteDB { return &NoteDB{gorm: db.gorm} }

// CreateTables creates the user and note tables if they do not exist.
// Existing tables are left exactly as they are.
func (db *DB) CreateTables(ctx context.Context) error {
	m := db.gorm.WithContext(ctx).Migrator()
	for _, table := range []any{&model.User{}, &model.Note{}} {
		if m.HasTable(table) {
			continue
		}
		if err := m.CreateTable(table); err != nil {
			return fmt.Errorf("postgres: creating table for %T: %w", table, err)
		}
	}
	return nil
}
