package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinetichq/kinetic/internal/store"
)

// RollbackOptions holds flags for the rollback command.
type RollbackOptions struct {
	*RootOptions
	Database string
	Version  int
}

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollbackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rollback <project-id>",
		Short: "Restore a project to a checkpoint version",
		Long: `Restore a project to a checkpointed version and truncate every
action sequenced after the checkpoint. The truncated suffix of the
log cannot be recovered.

Examples:
  kinetic rollback 7f2a... --db ./kinetic.db --to-version 3`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Version, "to-version", 0, "checkpoint version to restore (required)")
	_ = cmd.MarkFlagRequired("to-version")

	return cmd
}

func runRollback(opts *RollbackOptions, cmd *cobra.Command, projectID string) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.Rollback(ctx, projectID, opts.Version); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to roll back %s", projectID), err)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "ok",
			Data:   map[string]any{"project_id": projectID, "version": opts.Version},
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Project %s restored to v%d\n", projectID, opts.Version)
	return nil
}
