package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinetichq/kinetic/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	After    int64
}

// LogEntry is one action row rendered for output.
type LogEntry struct {
	Seq    int64           `json:"seq"`
	Type   string          `json:"type"`
	UserID string          `json:"user_id,omitempty"`
	Action json.RawMessage `json:"action,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <project-id>",
		Short: "Print a project's action log",
		Long: `Print a project's action log in sequence order.

Examples:
  kinetic log 7f2a... --db ./kinetic.db
  kinetic log 7f2a... --db ./kinetic.db --after 100 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only show actions with seq greater than this")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command, projectID string) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if _, err := st.GetProject(ctx, projectID); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("project %s", projectID), err)
	}

	actions, err := st.ReadActionsAfter(ctx, projectID, opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read action log", err)
	}

	if opts.Format == "json" {
		entries := make([]LogEntry, 0, len(actions))
		for _, action := range actions {
			raw, err := json.Marshal(action)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to encode action", err)
			}
			entries = append(entries, LogEntry{
				Seq:    action.ServerSequence,
				Type:   string(action.Type),
				UserID: action.UserID,
				Action: raw,
			})
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: entries})
	}

	w := cmd.OutOrStdout()
	if len(actions) == 0 {
		fmt.Fprintln(w, "Log is empty.")
		return nil
	}
	for _, action := range actions {
		if action.UserID != "" {
			fmt.Fprintf(w, "%6d  %-22s %s\n", action.ServerSequence, action.Type, action.UserID)
		} else {
			fmt.Fprintf(w, "%6d  %s\n", action.ServerSequence, action.Type)
		}
	}
	fmt.Fprintf(w, "\n%d action(s)\n", len(actions))
	return nil
}
