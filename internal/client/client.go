// Package client implements the sync adapter that keeps a local scene
// converged with a project room.
//
// The adapter forwards locally dispatched actions to the coordinator
// and applies remotely sequenced actions through the same pure
// transition function the server uses. Every session therefore runs
// the identical state machine; only the sequence stamps come from the
// server.
//
// Ordering discipline: after the SYNC_STATE snapshot, forwarded
// actions arrive in serverSequence order on the socket. Sequence
// numbers are not consecutive from any one client's view - the
// coordinator skips the origin when broadcasting, so a client's own
// submissions consume numbers it never receives. Stale or duplicate
// sequences are dropped; actual frame loss surfaces as a closed
// socket, and the adapter resynchronizes from a fresh snapshot.
// Locally queued actions that were never acknowledged are discarded on
// reconnect because their order relative to other clients can no
// longer be guaranteed.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kinetichq/kinetic/internal/room"
	"github.com/kinetichq/kinetic/internal/scene"
)

const (
	dialTimeout    = 10 * time.Second
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Adapter is one client session's connection to a project room.
type Adapter struct {
	baseURL   string
	projectID string
	userID    string

	mu       sync.Mutex
	state    scene.State
	sequence int64
	synced   bool
	outbound []scene.Action

	// updates receives the state after every applied change; the render
	// side drains it at its own pace and only the latest value matters.
	updates chan scene.State
}

// New creates an adapter for a room. baseURL is the ws:// or wss://
// origin of the server, without path.
func New(baseURL, projectID, userID string) *Adapter {
	return &Adapter{
		baseURL:   baseURL,
		projectID: projectID,
		userID:    userID,
		state:     scene.NewState(),
		updates:   make(chan scene.State, 1),
	}
}

// State returns the latest converged state.
func (a *Adapter) State() scene.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Sequence returns the last applied server sequence.
func (a *Adapter) Sequence() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sequence
}

// Updates exposes the converged-state stream. The channel holds only
// the most recent state; slow readers skip intermediate frames.
func (a *Adapter) Updates() <-chan scene.State {
	return a.updates
}

// Dispatch applies an action locally and queues it for the server.
// Local application is optimistic only in latency, not in ordering:
// the action still reaches every peer through the server's sequencing.
func (a *Adapter) Dispatch(action scene.Action) {
	a.mu.Lock()
	a.state = scene.Transition(a.state, action)
	a.outbound = append(a.outbound, action)
	a.mu.Unlock()
	a.publish()
}

// Run dials the room and processes frames until ctx is cancelled.
// Connection loss triggers a capped-backoff redial; each successful
// dial starts from a fresh SYNC_STATE.
func (a *Adapter) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := a.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("sync session ended, reconnecting",
			"project", a.projectID, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// session runs one connection lifetime: dial, snapshot, apply loop.
func (a *Adapter) session(ctx context.Context) error {
	u, err := a.wsURL()
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	// Unacknowledged actions from the previous connection are gone:
	// their order relative to other clients is unknowable, and the
	// fresh snapshot already reflects everything the server accepted.
	a.mu.Lock()
	a.synced = false
	a.outbound = a.outbound[:0]
	a.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go a.sendLoop(done, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		if err := a.handleFrame(data); err != nil {
			return err
		}
	}
}

// sendLoop drains the outbound queue to the socket.
func (a *Adapter) sendLoop(done <-chan struct{}, conn *websocket.Conn) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		if !a.synced || len(a.outbound) == 0 {
			a.mu.Unlock()
			continue
		}
		batch := a.outbound
		a.outbound = nil
		a.mu.Unlock()

		for _, action := range batch {
			data, err := json.Marshal(action)
			if err != nil {
				slog.Error("marshal outbound action failed", "type", action.Type, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// frame is the minimal envelope needed to route an inbound message.
type frame struct {
	Type           string          `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	ServerSequence int64           `json:"serverSequence"`
	UserID         string          `json:"userId"`
}

func (a *Adapter) handleFrame(data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	if f.Type == room.MessageSyncState {
		var p room.SyncPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return fmt.Errorf("decode sync state: %w", err)
		}
		a.mu.Lock()
		a.state = p.State
		a.sequence = p.Sequence
		a.synced = true
		a.mu.Unlock()
		a.publish()
		slog.Info("synchronized", "project", a.projectID, "sequence", p.Sequence)
		return nil
	}

	var action scene.Action
	if err := json.Unmarshal(data, &action); err != nil {
		return fmt.Errorf("decode action: %w", err)
	}

	a.mu.Lock()
	if !a.synced {
		a.mu.Unlock()
		return fmt.Errorf("action before sync state: seq %d", action.ServerSequence)
	}
	if action.ServerSequence <= a.sequence {
		// Duplicate from a rebroadcast; already reflected.
		a.mu.Unlock()
		return nil
	}
	a.state = scene.Transition(a.state, action)
	a.sequence = action.ServerSequence
	a.mu.Unlock()
	a.publish()
	return nil
}

// publish replaces the pending update with the latest state.
func (a *Adapter) publish() {
	state := a.State()
	select {
	case a.updates <- state:
	default:
		select {
		case <-a.updates:
		default:
		}
		select {
		case a.updates <- state:
		default:
		}
	}
}

func (a *Adapter) wsURL() (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("projectId", a.projectID)
	q.Set("userId", a.userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
