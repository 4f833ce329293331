package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/notebook/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Port      int
	StaticDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Open the selected store, create missing tables, add missing note columns,
and serve the REST API until interrupted.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				return nil
			}
			raw := os.Getenv(EnvPort)
			if raw == "" {
				return nil
			}
			port, err := strconv.Atoi(raw)
			if err != nil || port <= 0 || port > 65535 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid %s value %q", EnvPort, raw))
			}
			opts.Port = port
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", server.DefaultPort, "listen port [$"+EnvPort+"]")
	cmd.Flags().StringVar(&opts.StaticDir, "static-dir", os.Getenv(EnvStaticDir),
		"built frontend to serve with index.html fallback [$"+EnvStaticDir+"]")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *ServeOptions) error {
	ctx := cmd.Context()
	logger := rootOpts.Logger(cmd.ErrOrStderr())

	st, err := rootOpts.OpenStore(ctx, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := st.Prepare(ctx, logger)
	if err != nil {
		return fmt.Errorf("preparing store: %w", err)
	}
	// A column that could not be added only disables that field; the
	// server still starts.
	if err := result.Err(); err != nil {
		logger.Warn("schema reconciliation incomplete", slog.String("error", err.Error()))
	}

	srv, err := server.New(server.Config{Port: opts.Port, StaticDir: opts.StaticDir}, logger, st)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
