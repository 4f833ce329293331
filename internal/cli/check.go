package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/store"
)

// CheckResult is what the check command prints.
type CheckResult struct {
	Store   string           `json:"store"`
	Tables  []string         `json:"tables"`
	Counts  map[string]int64 `json:"counts"`
	Missing []string         `json:"missing,omitempty"`
	Probe   string           `json:"probe"`
}

// OK reports whether every check passed.
func (r CheckResult) OK() bool { return len(r.Missing) == 0 && r.Probe == "ok" }

// WriteText prints the result for a terminal.
func (r CheckResult) WriteText(w io.Writer) {
	fmt.Fprintf(w, "store:  %s\n", r.Store)
	fmt.Fprintf(w, "tables: %s\n", strings.Join(r.Tables, ", "))
	for _, table := range []string{model.UserTable, model.NoteTable} {
		if n, ok := r.Counts[table]; ok {
			fmt.Fprintf(w, "  %-5s %d rows\n", table, n)
		}
	}
	for _, table := range r.Missing {
		fmt.Fprintf(w, "MISSING table %s (run serve or migrate to create it)\n", table)
	}
	fmt.Fprintf(w, "probe:  %s\n", r.Probe)
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the selected store",
		Long: `Connect to the selected store, list its tables and row counts, then create
and delete a throwaway note to prove writes work. Nothing is left behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := rootOpts.Logger(cmd.ErrOrStderr())

			st, err := rootOpts.OpenStore(ctx, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			result, err := runCheck(ctx, st)
			if err != nil {
				return err
			}
			if err := rootOpts.formatter(cmd).Print(result); err != nil {
				return err
			}
			if !result.OK() {
				return NewExitError(ExitFailure, "store check failed")
			}
			return nil
		},
	}
}

func runCheck(ctx context.Context, st *store.Store) (CheckResult, error) {
	result := CheckResult{Store: st.Descriptor.String(), Counts: map[string]int64{}}

	if err := st.Ping(ctx); err != nil {
		return result, err
	}

	tables, err := st.Tables(ctx)
	if err != nil {
		return result, fmt.Errorf("listing tables: %w", err)
	}
	result.Tables = tables

	for _, table := range []string{model.UserTable, model.NoteTable} {
		if !slices.Contains(tables, table) {
			result.Missing = append(result.Missing, table)
			continue
		}
		n, err := st.Count(ctx, table)
		if err != nil {
			return result, fmt.Errorf("counting %s: %w", table, err)
		}
		result.Counts[table] = n
	}

	if slices.Contains(result.Missing, model.NoteTable) {
		result.Probe = "skipped"
		return result, nil
	}
	result.Probe = probeNote(ctx, st)
	return result, nil
}

// probeNote writes and removes one note. It returns "ok" or the failure.
func probeNote(ctx context.Context, st *store.Store) string {
	note := &model.Note{Title: "check-" + xid.New().String(), Content: "store probe"}
	if err := st.Notes.Create(ctx, note); err != nil {
		return "create failed: " + err.Error()
	}
	if _, err := st.Notes.GetByID(ctx, note.ID); err != nil {
		return "read back failed: " + err.Error()
	}
	if err := st.Notes.Delete(ctx, note.ID); err != nil {
		return "delete failed: " + err.Error()
	}
	return "ok"
}
