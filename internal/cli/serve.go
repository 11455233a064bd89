package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kinetichq/kinetic/internal/config"
	"github.com/kinetichq/kinetic/internal/server"
	"github.com/kinetichq/kinetic/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config string
	Listen string
	DB     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the collaboration server",
		Long: `Run the HTTP/WebSocket collaboration server.

Each project gets a room with a single-writer loop that assigns
sequence numbers, persists accepted actions to the SQLite log, and
rebroadcasts them to other members. The server resumes every room from
its persisted log on first access.

Examples:
  kinetic serve --db ./kinetic.db
  kinetic serve --config kinetic.yaml --listen :9000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "bind address (overrides config)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}
	if opts.DB != "" {
		cfg.DBPath = opts.DB
	}
	cfg.Verbose = cfg.Verbose || opts.Verbose

	st, err := store.Open(cfg.DBPath, store.WithMaxLogEntries(cfg.MaxLogEntries))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	srv := server.New(cfg, st)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown failed", err)
	}
	return nil
}
