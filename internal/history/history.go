// Package history implements the replay-based undo/redo store.
//
// The store keeps an ordered log of committed actions and a redo stack.
// Undo never applies inverse actions: it rebuilds state from a baseline
// by replaying the remaining log through scene.Transition. The state is
// therefore always exactly "baseline + this ordered action prefix",
// with no possibility of drift.
//
// Consecutive gesture actions (drags, scrubs, color tweaks) coalesce
// into a single log entry when they arrive within the configured
// window, so a drag of hundreds of micro-moves undoes in one step.
package history

import (
	"sync"
	"time"

	"github.com/kinetichq/kinetic/internal/scene"
)

// DefaultCoalesceWindow is the maximum gap between two tracked
// dispatches that still merge into one history entry.
const DefaultCoalesceWindow = 300 * time.Millisecond

// DefaultMaxHistory bounds the replay cost of a single undo.
const DefaultMaxHistory = 200

// Config tunes the store. Zero values select the defaults.
type Config struct {
	CoalesceWindow time.Duration
	MaxHistory     int
}

// Option configures a Store at construction.
type Option func(*Store)

// WithNow injects the time source used for coalescing decisions.
// Tests use a fixed clock; production uses time.Now.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store owns one client session's action log and redo stack. It is not
// shared across sessions.
//
// All operations hold the store lock for their full duration, so a
// dispatch that arrives while undo is replaying waits instead of
// interleaving with the rebuild.
type Store struct {
	mu sync.Mutex

	window     time.Duration
	maxHistory int
	now        func() time.Time

	// baseline is the initial document state plus any entries dropped
	// by the history cap, folded in order. Replay always starts here.
	baseline scene.State
	state    scene.State

	history []scene.Action
	redo    []scene.Action

	lastTracked time.Time
}

// New creates a store over the given initial state.
func New(initial scene.State, cfg Config, opts ...Option) *Store {
	s := &Store{
		window:     cfg.CoalesceWindow,
		maxHistory: cfg.MaxHistory,
		now:        time.Now,
		baseline:   initial,
		state:      initial,
	}
	if s.window <= 0 {
		s.window = DefaultCoalesceWindow
	}
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies an action and returns the new state.
//
// With track true the action is committed to the log (possibly
// coalescing with the previous entry) and the redo stack is cleared.
// With track false the action mutates state but is never recorded -
// used for camera pans, live presence, and uncommitted scrubbing.
func (s *Store) Dispatch(action scene.Action, track bool) scene.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = scene.Transition(s.state, action)

	if !track {
		return s.state
	}

	now := s.now()
	if merged, ok := s.coalesce(action, now); ok {
		s.history[len(s.history)-1] = merged
	} else {
		s.history = append(s.history, action)
	}
	s.lastTracked = now
	s.redo = s.redo[:0]

	// Enforce the history cap by folding the oldest entry into the
	// baseline, so replay still reproduces the current state exactly.
	for len(s.history) > s.maxHistory {
		s.baseline = scene.Transition(s.baseline, s.history[0])
		s.history = append([]scene.Action(nil), s.history[1:]...)
	}

	return s.state
}

// coalesce decides whether action merges into the last history entry.
// Only gesture-shaped actions coalesce: element moves (deltas summed),
// element updates, fill changes (same target required), and
// time/view/selection scrubs. Structural actions such as add, remove
// or group never coalesce - replacing one would lose a mutation.
func (s *Store) coalesce(action scene.Action, now time.Time) (scene.Action, bool) {
	if len(s.history) == 0 || len(s.redo) > 0 {
		return scene.Action{}, false
	}
	if s.lastTracked.IsZero() || now.Sub(s.lastTracked) >= s.window {
		return scene.Action{}, false
	}
	last := s.history[len(s.history)-1]
	if last.Type != action.Type {
		return scene.Action{}, false
	}

	switch p := action.Payload.(type) {
	case scene.MoveElementPayload:
		prev, ok := last.Payload.(scene.MoveElementPayload)
		if !ok || prev.ID != p.ID {
			return scene.Action{}, false
		}
		// Sum the deltas so the coalesced entry replays to the same
		// cumulative translation as the individual micro-moves.
		merged := action
		merged.Payload = scene.MoveElementPayload{ID: p.ID, DX: prev.DX + p.DX, DY: prev.DY + p.DY}
		return merged, true
	case scene.UpdateElementPayload:
		prev, ok := last.Payload.(scene.UpdateElementPayload)
		if !ok || prev.ID != p.ID {
			return scene.Action{}, false
		}
		return action, true
	case scene.SetFillPayload:
		prev, ok := last.Payload.(scene.SetFillPayload)
		if !ok || prev.ID != p.ID {
			return scene.Action{}, false
		}
		return action, true
	case scene.SetTimePayload, scene.SetViewPayload, scene.SetSelectionPayload:
		return action, true
	default:
		return scene.Action{}, false
	}
}

// Undo pops the newest history entry onto the redo stack and rebuilds
// state by replaying the remaining log from the baseline. With an empty
// history it returns the current state unchanged.
func (s *Store) Undo() scene.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return s.state
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.redo = append(s.redo, last)

	s.state = scene.Replay(s.baseline, s.history)
	// An undo ends any in-flight gesture; the next dispatch starts a
	// fresh history entry.
	s.lastTracked = time.Time{}
	return s.state
}

// Redo moves the newest redo entry back onto the history and applies
// it. With an empty redo stack it returns the current state unchanged.
func (s *Store) Redo() scene.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return s.state
	}
	action := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.history = append(s.history, action)

	s.state = scene.Transition(s.state, action)
	s.lastTracked = time.Time{}
	return s.state
}

// CanUndo reports whether the history holds at least one entry.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) > 0
}

// CanRedo reports whether the redo stack holds at least one entry.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// HistoryLen returns the number of committed history entries.
func (s *Store) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// OpLog returns a copy of the committed action log. Persistence and
// collaboration layers treat it as the durable source of truth for the
// session's edits.
func (s *Store) OpLog() []scene.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scene.Action(nil), s.history...)
}

// State returns the latest committed snapshot.
func (s *Store) State() scene.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
