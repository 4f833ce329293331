// Package cli implements the notebook command line.
//
//	notebook serve      run the HTTP API against the selected store
//	notebook migrate    copy users and notes from one store to another
//	notebook reconcile  add missing note columns to the selected store
//	notebook check      probe the selected store end to end
//
// Configuration comes from flags whose defaults are read from the
// environment once, when the command tree is built.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/store"
)

// Environment variables that provide flag defaults.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvRoot        = "NOTEBOOK_ROOT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvPort        = "PORT"
	EnvStaticDir   = "STATIC_DIR"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Root        string // project root; the local store lives in <Root>/database/app.db
	LogLevel    string
	Format      string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the notebook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notebook",
		Short: "Personal notes server",
		Long: `A personal notes server backed by a local SQLite file or a hosted PostgreSQL database.

Without DATABASE_URL every command uses <root>/database/app.db.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if _, err := parseLevel(opts.LogLevel); err != nil {
				return WrapExitError(ExitCommandError, "invalid log level", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", os.Getenv(EnvDatabaseURL),
		"PostgreSQL URL; empty selects the local SQLite store [$"+EnvDatabaseURL+"]")
	cmd.PersistentFlags().StringVar(&opts.Root, "root", envOr(EnvRoot, "."),
		"project root holding database/app.db [$"+EnvRoot+"]")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", envOr(EnvLogLevel, "info"),
		"debug|info|warn|error [$"+EnvLogLevel+"]")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// Logger builds the process logger. Logs go to w (stderr in practice) so
// that --format json output on stdout stays machine-readable.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(o.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OpenStore selects and opens the store named by --database-url / --root.
func (o *RootOptions) OpenStore(ctx context.Context, logger *slog.Logger) (*store.Store, error) {
	d, err := store.Select(o.DatabaseURL, o.Root)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, d, logger)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
