package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kinetichq/kinetic/internal/scene"
	"github.com/kinetichq/kinetic/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Project  string // optional - specific project only
}

// ReplayProjectResult holds the replay result for a single project.
type ReplayProjectResult struct {
	ProjectID     string `json:"project_id"`
	Actions       int    `json:"actions"`
	Elements      int    `json:"elements"`
	LastSeq       int64  `json:"last_seq"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Projects         []ReplayProjectResult `json:"projects"`
	TotalProjects    int                   `json:"total_projects"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay action logs and verify determinism",
		Long: `Replay each project's action log and verify determinism.

The log is read in sequence order and folded through the transition
function twice from the initial state. The two resulting states must
serialize to identical bytes; any difference means a non-deterministic
transition and is reported as a failure.

Exit codes:
  0 - All projects replay deterministically
  1 - Determinism verification failed (states diverged)
  2 - Command error (database not found, etc.)

Examples:
  kinetic replay --db ./kinetic.db
  kinetic replay --db ./kinetic.db --project 7f2a...
  kinetic replay --db ./kinetic.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Project, "project", "", "replay a specific project only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var projectIDs []string
	if opts.Project != "" {
		projectIDs = []string{opts.Project}
	} else {
		projects, err := st.ListProjects(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list projects", err)
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ID)
		}
	}

	if len(projectIDs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Projects:         []ReplayProjectResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No projects found in database.")
		return nil
	}

	result := ReplayResult{
		Projects:         make([]ReplayProjectResult, 0, len(projectIDs)),
		TotalProjects:    len(projectIDs),
		AllDeterministic: true,
	}

	for _, id := range projectIDs {
		projectResult, err := replayAndVerifyProject(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay project %s", id), err)
		}
		result.Projects = append(result.Projects, projectResult)
		if !projectResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyProject folds the log twice and compares the results
// byte-for-byte.
func replayAndVerifyProject(ctx context.Context, st *store.Store, projectID string) (ReplayProjectResult, error) {
	actions, err := st.ReadActionsAfter(ctx, projectID, 0)
	if err != nil {
		return ReplayProjectResult{}, err
	}

	first := scene.Replay(scene.NewState(), actions)
	second := scene.Replay(scene.NewState(), actions)

	firstJSON, err := json.Marshal(first)
	if err != nil {
		return ReplayProjectResult{}, fmt.Errorf("marshal first replay: %w", err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		return ReplayProjectResult{}, fmt.Errorf("marshal second replay: %w", err)
	}

	var lastSeq int64
	if n := len(actions); n > 0 {
		lastSeq = actions[n-1].ServerSequence
	}

	return ReplayProjectResult{
		ProjectID:     projectID,
		Actions:       len(actions),
		Elements:      len(first.Elements),
		LastSeq:       lastSeq,
		Deterministic: bytes.Equal(firstJSON, secondJSON),
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d project(s)\n", result.TotalProjects)
	fmt.Fprintln(w)

	for _, p := range result.Projects {
		status := "✓"
		if !p.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Project: %s\n", status, p.ProjectID)
		if verbose {
			fmt.Fprintf(w, "  Actions: %d\n", p.Actions)
			fmt.Fprintf(w, "  Elements: %d\n", p.Elements)
			fmt.Fprintf(w, "  Last Seq: %d\n", p.LastSeq)
		} else {
			fmt.Fprintf(w, "  Log: %d actions, %d elements\n", p.Actions, p.Elements)
		}
		if !p.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All projects verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
