package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/schema"
)

// ReconcileResult is what the reconcile command prints.
type ReconcileResult struct {
	Store  string            `json:"store"`
	Table  string            `json:"table"`
	Added  []string          `json:"added"`
	Failed map[string]string `json:"failed,omitempty"`
}

// WriteText prints the result for a terminal.
func (r ReconcileResult) WriteText(w io.Writer) {
	fmt.Fprintf(w, "store: %s\n", r.Store)
	if len(r.Added) == 0 && len(r.Failed) == 0 {
		fmt.Fprintf(w, "%s: all columns present, nothing to do\n", r.Table)
		return
	}
	if len(r.Added) > 0 {
		fmt.Fprintf(w, "%s: added %s\n", r.Table, strings.Join(r.Added, ", "))
	}
	names := make([]string, 0, len(r.Failed))
	for name := range r.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: FAILED to add %s: %s\n", r.Table, name, r.Failed[name])
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Add missing note columns to the selected store",
		Long: `Bring a note table created by an older version up to date by adding the
tags, position, event_date and event_time columns where they are missing.

Existing rows are untouched and get NULL in the new columns. Running it on an
up-to-date database does nothing. A column that cannot be added is reported
and the remaining columns are still attempted; the exit status is then 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := rootOpts.Logger(cmd.ErrOrStderr())

			st, err := rootOpts.OpenStore(ctx, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := schema.NewReconciler(st, logger).Reconcile(ctx, model.NoteTable, schema.NoteColumns)
			if err != nil {
				return err
			}

			out := ReconcileResult{
				Store: st.Descriptor.String(),
				Table: res.Table,
				Added: res.Added,
			}
			if out.Added == nil {
				out.Added = []string{}
			}
			if len(res.Failed) > 0 {
				out.Failed = make(map[string]string, len(res.Failed))
				for name, ferr := range res.Failed {
					out.Failed[name] = ferr.Error()
				}
			}

			if err := rootOpts.formatter(cmd).Print(out); err != nil {
				return err
			}
			if res.Err() != nil {
				return WrapExitError(ExitFailure, "some columns could not be added", res.Err())
			}
			return nil
		},
	}
}
