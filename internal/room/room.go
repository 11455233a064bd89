package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kinetichq/kinetic/internal/scene"
	"github.com/kinetichq/kinetic/internal/store"
)

// DefaultSendBuffer is the per-member outbound message buffer.
const DefaultSendBuffer = 256

// Member is one socket joined to a room. The transport layer drains
// Send and writes each message to the wire; Detach closes when the
// member leaves or falls too far behind.
type Member struct {
	UserID string

	send   chan []byte
	detach chan struct{}
}

// NewMember creates a member for a connected user.
func NewMember(userID string) *Member {
	return &Member{
		UserID: userID,
		send:   make(chan []byte, DefaultSendBuffer),
		detach: make(chan struct{}),
	}
}

// Send returns the member's outbound message stream.
func (m *Member) Send() <-chan []byte {
	return m.send
}

// Detach is closed when the room has dropped the member. The transport
// should close the socket; the client resynchronizes on reconnect.
func (m *Member) Detach() <-chan struct{} {
	return m.detach
}

// Room serializes all mutation of one project's shared document.
type Room struct {
	ProjectID string

	log     *store.Store
	clock   *Clock
	queue   *eventQueue
	state   scene.State
	members map[*Member]bool
}

// New creates a room resuming from the materialized state and last
// persisted sequence of the project's log.
func New(projectID string, log *store.Store, state scene.State, lastSeq int64) *Room {
	return &Room{
		ProjectID: projectID,
		log:       log,
		clock:     NewClockAt(lastSeq),
		queue:     newEventQueue(),
		state:     state,
		members:   make(map[*Member]bool),
	}
}

// Join registers a member. The SYNC_STATE snapshot is delivered as the
// member's first message, ordered before any subsequent broadcast.
func (r *Room) Join(m *Member) bool {
	return r.queue.enqueue(event{kind: eventJoin, member: m})
}

// Leave unregisters a member and releases its outbound stream.
func (r *Room) Leave(m *Member) bool {
	return r.queue.enqueue(event{kind: eventLeave, member: m})
}

// Submit offers an action from a member for sequencing. The action is
// stamped, persisted, applied, and forwarded to every other member, in
// that order, inside the room loop.
func (r *Room) Submit(m *Member, action scene.Action) bool {
	return r.queue.enqueue(event{kind: eventAction, member: m, action: action})
}

// Sequence returns the latest assigned sequence number.
func (r *Room) Sequence() int64 {
	return r.clock.Current()
}

// Stop closes the inbound queue. Run drains what was already queued,
// detaches every member, and returns. Further Join/Submit calls report
// false; callers re-acquire the room through the coordinator.
func (r *Room) Stop() {
	r.queue.close()
}

// Run drives the single-writer loop until ctx is cancelled.
// Must be called from exactly one goroutine per room.
//
// ERROR HANDLING: a failed persist drops the action (logged with full
// context) rather than broadcasting state the log does not hold -
// the log is the source of truth, and a broadcast it doesn't cover
// would let replicas diverge from replay.
func (r *Room) Run(ctx context.Context) error {
	slog.Info("room starting", "project", r.ProjectID)

	for {
		ev, ok := r.queue.tryDequeue()
		if ok {
			r.process(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("room stopping", "project", r.ProjectID)
			r.queue.close()
			r.dropAll()
			return ctx.Err()
		case _, open := <-r.queue.wait():
			if open {
				// Wake token; the token may be left over from an event
				// already dequeued above, so re-check the queue rather
				// than treating it as a drained signal.
				continue
			}
			// Queue closed: drain what was accepted before the close,
			// then detach everyone and exit.
			for {
				ev, ok := r.queue.tryDequeue()
				if !ok {
					break
				}
				r.process(ctx, ev)
			}
			r.dropAll()
			return nil
		}
	}
}

// process handles one event. Called only from the Run goroutine.
func (r *Room) process(ctx context.Context, ev event) {
	switch ev.kind {
	case eventJoin:
		r.members[ev.member] = true
		msg, err := json.Marshal(SyncState(r.state, r.clock.Current()))
		if err != nil {
			slog.Error("marshal sync state failed", "project", r.ProjectID, "error", err)
			return
		}
		r.deliver(ev.member, msg)
		slog.Info("member joined", "project", r.ProjectID, "user", ev.member.UserID, "members", len(r.members))

	case eventLeave:
		r.drop(ev.member)

	case eventAction:
		r.sequenceAndBroadcast(ctx, ev)
	}
}

// sequenceAndBroadcast is the room's ordering pipeline.
func (r *Room) sequenceAndBroadcast(ctx context.Context, ev event) {
	action := ev.action
	action.ServerSequence = r.clock.Next()
	if ev.member != nil {
		action.UserID = ev.member.UserID
	}

	if err := r.log.AppendAction(ctx, r.ProjectID, action); err != nil {
		slog.Error("persist action failed, dropping",
			"project", r.ProjectID,
			"seq", action.ServerSequence,
			"type", action.Type,
			"user", action.UserID,
			"error", err,
		)
		return
	}

	r.state = scene.Transition(r.state, action)

	msg, err := json.Marshal(action)
	if err != nil {
		slog.Error("marshal action failed", "project", r.ProjectID, "seq", action.ServerSequence, "error", err)
		return
	}
	for m := range r.members {
		if m == ev.member {
			continue
		}
		r.deliver(m, msg)
	}

	slog.Debug("action sequenced",
		"project", r.ProjectID,
		"seq", action.ServerSequence,
		"type", action.Type,
		"user", action.UserID,
	)
}

// deliver writes to a member's buffer. A member that cannot keep up is
// detached; it will resynchronize with a fresh SYNC_STATE on reconnect.
func (r *Room) deliver(m *Member, msg []byte) {
	select {
	case m.send <- msg:
	default:
		slog.Warn("member buffer full, detaching", "project", r.ProjectID, "user", m.UserID)
		r.drop(m)
	}
}

// drop removes a member and releases its channels.
func (r *Room) drop(m *Member) {
	if !r.members[m] {
		return
	}
	delete(r.members, m)
	close(m.send)
	close(m.detach)
	slog.Info("member left", "project", r.ProjectID, "user", m.UserID, "members", len(r.members))
}

// dropAll detaches every member; used at shutdown.
func (r *Room) dropAll() {
	for m := range r.members {
		r.drop(m)
	}
}
