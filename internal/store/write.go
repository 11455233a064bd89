package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kinetichq/kinetic/internal/scene"
)

// CreateProject inserts a new project row. Creating an id that already
// exists is an error; use GetProject to test for existence.
func (s *Store) CreateProject(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, version, created_at)
		VALUES (?, ?, 1, ?)
	`, id, name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("create project %s: %w", id, err)
	}
	return nil
}

// AppendAction persists one stamped action to a project's log.
//
// Idempotent per (project_id, seq): re-appending an already-persisted
// stamp is silently ignored, which makes coordinator crash recovery a
// plain re-drive of the inbound queue.
func (s *Store) AppendAction(ctx context.Context, projectID string, action scene.Action) error {
	if s.maxLogEntries > 0 {
		var count int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM actions WHERE project_id = ?`, projectID,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("append action: count log: %w", err)
		}
		if count >= s.maxLogEntries {
			return fmt.Errorf("append action to %s: %w", projectID, ErrLogCapacity)
		}
	}

	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("append action: marshal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (project_id, seq, user_id, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, seq) DO NOTHING
	`, projectID, action.ServerSequence, action.UserID, string(payload))
	if err != nil {
		return fmt.Errorf("append action to %s: %w", projectID, err)
	}
	return nil
}

// WriteSnapshot stores a materialized checkpoint and advances the
// project's version counter to it.
func (s *Store) WriteSnapshot(ctx context.Context, projectID string, version int, lastSeq int64, state scene.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("write snapshot: marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (project_id, version, last_seq, state, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, projectID, version, lastSeq, string(stateJSON), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write snapshot %s v%d: %w", projectID, version, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET version = ? WHERE id = ?`, version, projectID)
	if err != nil {
		return fmt.Errorf("write snapshot %s v%d: bump version: %w", projectID, version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}
	return nil
}

// Rollback restores a project to a checkpointed version, truncates
// every action sequenced after the checkpoint, and discards every
// later checkpoint so materialization resumes from the restored one.
// The truncated suffix cannot be recovered.
func (s *Store) Rollback(ctx context.Context, projectID string, version int) error {
	var lastSeq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_seq FROM snapshots WHERE project_id = ? AND version = ?`,
		projectID, version,
	).Scan(&lastSeq)
	if err != nil {
		return fmt.Errorf("rollback %s to v%d: %w", projectID, version, ErrVersionNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("rollback: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM actions WHERE project_id = ? AND seq > ?`, projectID, lastSeq)
	if err != nil {
		return fmt.Errorf("rollback %s: truncate log: %w", projectID, err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE project_id = ? AND version > ?`, projectID, version)
	if err != nil {
		return fmt.Errorf("rollback %s: drop later snapshots: %w", projectID, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE projects SET version = ? WHERE id = ?`, version, projectID)
	if err != nil {
		return fmt.Errorf("rollback %s: set version: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("rollback: commit: %w", err)
	}
	return nil
}
