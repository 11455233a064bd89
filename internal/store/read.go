package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kinetichq/kinetic/internal/scene"
)

// Project is a project row.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	CreatedAt int64  `json:"createdAt"`
}

// GetProject returns a project row or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, version, created_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Version, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("get project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns every project row ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, version, created_at FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("list projects: scan: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ReadActionsAfter returns a project's actions with seq > afterSeq in
// ascending sequence order. Ordering by seq (never timestamps) keeps
// materialization deterministic across replicas.
func (s *Store) ReadActionsAfter(ctx context.Context, projectID string, afterSeq int64) ([]scene.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM actions
		WHERE project_id = ? AND seq > ?
		ORDER BY seq ASC
	`, projectID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("read actions for %s: %w", projectID, err)
	}
	defer rows.Close()

	var actions []scene.Action
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("read actions for %s: scan: %w", projectID, err)
		}
		var action scene.Action
		if err := json.Unmarshal([]byte(payload), &action); err != nil {
			return nil, fmt.Errorf("read actions for %s: decode: %w", projectID, err)
		}
		actions = append(actions, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read actions for %s: %w", projectID, err)
	}
	return actions, nil
}

// LastSeq returns the highest sequence persisted for a project, or 0
// for an empty log.
func (s *Store) LastSeq(ctx context.Context, projectID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM actions WHERE project_id = ?`, projectID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq for %s: %w", projectID, err)
	}
	return seq.Int64, nil
}

// Snapshot is one materialized checkpoint row.
type Snapshot struct {
	Version   int
	LastSeq   int64
	State     scene.State
	CreatedAt int64
}

// LatestSnapshot returns the newest checkpoint for a project. The
// second return value reports whether one exists.
func (s *Store) LatestSnapshot(ctx context.Context, projectID string) (Snapshot, bool, error) {
	var (
		snap      Snapshot
		stateJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT version, last_seq, state, created_at FROM snapshots
		WHERE project_id = ?
		ORDER BY version DESC LIMIT 1
	`, projectID).Scan(&snap.Version, &snap.LastSeq, &stateJSON, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("latest snapshot for %s: %w", projectID, err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &snap.State); err != nil {
		return Snapshot{}, false, fmt.Errorf("latest snapshot for %s: decode state: %w", projectID, err)
	}
	return snap, true, nil
}

// Materialize rebuilds a project's current state: the latest checkpoint
// (or the canonical initial state) plus a replay of every action
// sequenced after it. Returns the state and the last applied sequence.
func (s *Store) Materialize(ctx context.Context, projectID string) (scene.State, int64, error) {
	state := scene.NewState()
	var fromSeq int64

	snap, ok, err := s.LatestSnapshot(ctx, projectID)
	if err != nil {
		return scene.State{}, 0, err
	}
	if ok {
		state = snap.State
		fromSeq = snap.LastSeq
	}

	actions, err := s.ReadActionsAfter(ctx, projectID, fromSeq)
	if err != nil {
		return scene.State{}, 0, err
	}
	state = scene.Replay(state, actions)

	lastSeq := fromSeq
	if n := len(actions); n > 0 {
		lastSeq = actions[n-1].ServerSequence
	}
	return state, lastSeq, nil
}
