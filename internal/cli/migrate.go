package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	From string
	To   string
}

// MigrateResult is what the migrate command prints.
type MigrateResult struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Skipped bool   `json:"skipped,omitempty"`
	migrate.Report
	Discrepancies []migrate.Discrepancy `json:"discrepancies,omitempty"`
}

// WriteText prints the report for a terminal.
func (r MigrateResult) WriteText(w io.Writer) {
	fmt.Fprintf(w, "source: %s\ntarget: %s\n", r.Source, r.Target)
	if r.Skipped {
		fmt.Fprintln(w, "source database not found, nothing to migrate")
		return
	}
	fmt.Fprintf(w, "run:    %s\n", r.RunID)
	fmt.Fprintf(w, "users:  %d migrated\n", r.UsersMigrated)
	fmt.Fprintf(w, "notes:  %d migrated\n", r.NotesMigrated)
	if r.TimestampFallbacks > 0 {
		fmt.Fprintf(w, "%d unparsable timestamps were replaced with the migration time\n", r.TimestampFallbacks)
	}
	if len(r.SkippedTables) > 0 {
		fmt.Fprintf(w, "ignored tables: %s\n", strings.Join(r.SkippedTables, ", "))
	}
	for _, d := range r.Discrepancies {
		fmt.Fprintf(w, "MISMATCH %s\n", d)
	}
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy all users and notes into another store",
		Long: `Copy every user and note from --from into --to in a single transaction.

--from and --to each take a SQLite file path or a postgresql:// URL.
--from defaults to <root>/database/app.db; --to defaults to DATABASE_URL.
Missing tables are created in the target first. Any row that fails to insert
rolls the whole run back. After the copy, source row counts are compared with
the migrated counts and a mismatch exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := rootOpts.Logger(cmd.ErrOrStderr())
			result, err := runMigrate(cmd.Context(), rootOpts, opts, logger)
			if err != nil {
				return err
			}
			if err := rootOpts.formatter(cmd).Print(result); err != nil {
				return err
			}
			if len(result.Discrepancies) > 0 {
				return NewExitError(ExitFailure, "migrated counts do not match the source")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "source SQLite path or PostgreSQL URL (default <root>/database/app.db)")
	cmd.Flags().StringVar(&opts.To, "to", "", "target SQLite path or PostgreSQL URL (default $"+EnvDatabaseURL+")")

	return cmd
}

func runMigrate(ctx context.Context, rootOpts *RootOptions, opts *MigrateOptions, logger *slog.Logger) (MigrateResult, error) {
	from := opts.From
	if from == "" {
		from = filepath.Join(rootOpts.Root, "database", "app.db")
	}
	to := opts.To
	if to == "" {
		to = rootOpts.DatabaseURL
	}
	if to == "" {
		return MigrateResult{}, NewExitError(ExitCommandError,
			"no migration target: pass --to or set "+EnvDatabaseURL)
	}

	srcDesc, err := descriptorFor(from)
	if err != nil {
		return MigrateResult{}, err
	}
	srcDesc.ReadOnly = true
	dstDesc, err := descriptorFor(to)
	if err != nil {
		return MigrateResult{}, err
	}
	result := MigrateResult{Source: srcDesc.String(), Target: dstDesc.String()}

	if srcDesc.DSN == dstDesc.DSN {
		return result, NewExitError(ExitCommandError, "source and target are the same database")
	}

	// Opening a missing SQLite file would create an empty one.
	if srcDesc.Driver == store.DriverSQLite {
		if _, err := os.Stat(srcDesc.DSN); errors.Is(err, fs.ErrNotExist) {
			logger.Info("no source database, skipping migration", slog.String("source", srcDesc.DSN))
			result.Skipped = true
			return result, nil
		}
	}

	src, err := store.Open(ctx, srcDesc, logger)
	if err != nil {
		return result, fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	dst, err := store.Open(ctx, dstDesc, logger)
	if err != nil {
		return result, fmt.Errorf("opening target: %w", err)
	}
	defer dst.Close()

	if err := dst.Ping(ctx); err != nil {
		return result, fmt.Errorf("target not reachable: %w", err)
	}
	if err := dst.CreateTables(ctx); err != nil {
		return result, fmt.Errorf("creating target tables: %w", err)
	}

	report, err := migrate.New(logger).Migrate(ctx, src, dst)
	if err != nil {
		return result, err
	}
	result.Report = report

	result.Discrepancies, err = migrate.Verify(ctx, src, report)
	if err != nil {
		return result, err
	}
	return result, nil
}

// descriptorFor reads a --from/--to value: a URL goes through the store
// selector, anything else is a SQLite file path. Paths are made absolute so
// two spellings of the same file compare equal.
func descriptorFor(value string) (store.Descriptor, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "://") {
		return store.Select(value, "")
	}
	if value == ":memory:" {
		return store.Descriptor{Driver: store.DriverSQLite, DSN: value}, nil
	}
	path, err := filepath.Abs(value)
	if err != nil {
		return store.Descriptor{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid database path %q: %v", value, err))
	}
	return store.Descriptor{Driver: store.DriverSQLite, DSN: path}, nil
}
