package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetichq/kinetic/internal/scene"
	"github.com/kinetichq/kinetic/internal/store"
	"github.com/kinetichq/kinetic/internal/testutil"
)

func startTestRoom(t *testing.T) (*Room, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	r := New("p-1", st, scene.NewState(), 0)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, st
}

// recv reads one frame from a member with a deadline.
func recv(t *testing.T, m *Member) []byte {
	t.Helper()
	select {
	case msg, ok := <-m.Send():
		require.True(t, ok, "member channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRoom_JoinDeliversSyncState(t *testing.T) {
	r, _ := startTestRoom(t)

	m := NewMember("u-1")
	require.True(t, r.Join(m))

	var msg SyncMessage
	require.NoError(t, json.Unmarshal(recv(t, m), &msg))
	assert.Equal(t, MessageSyncState, msg.Type)
	assert.Equal(t, int64(0), msg.Payload.Sequence)
	assert.Empty(t, msg.Payload.State.Elements)
}

func TestRoom_SyncStateReflectsResumedState(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	state := scene.Transition(scene.NewState(), testutil.AddRect("el-1", 0, 0, 10, 10))
	r := New("p-1", st, state, 5)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.Run(runCtx)

	m := NewMember("u-1")
	require.True(t, r.Join(m))

	var msg SyncMessage
	require.NoError(t, json.Unmarshal(recv(t, m), &msg))
	assert.Equal(t, int64(5), msg.Payload.Sequence)
	assert.Contains(t, msg.Payload.State.Elements, "el-1")
}

func TestRoom_BroadcastSkipsOrigin(t *testing.T) {
	r, _ := startTestRoom(t)

	origin := NewMember("u-1")
	peer := NewMember("u-2")
	require.True(t, r.Join(origin))
	require.True(t, r.Join(peer))
	recv(t, origin) // sync state
	recv(t, peer)   // sync state

	require.True(t, r.Submit(origin, testutil.AddRect("el-1", 0, 0, 10, 10)))

	var action scene.Action
	require.NoError(t, json.Unmarshal(recv(t, peer), &action))
	assert.Equal(t, scene.ActionAddElement, action.Type)
	assert.Equal(t, int64(1), action.ServerSequence)
	assert.Equal(t, "u-1", action.UserID)

	// The origin must not receive its own action back.
	select {
	case msg := <-origin.Send():
		t.Fatalf("origin received unexpected message: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRoom_SequencesAreMonotonic(t *testing.T) {
	r, _ := startTestRoom(t)

	a := NewMember("u-a")
	b := NewMember("u-b")
	observer := NewMember("u-o")
	require.True(t, r.Join(a))
	require.True(t, r.Join(b))
	require.True(t, r.Join(observer))
	recv(t, a)
	recv(t, b)
	recv(t, observer)

	const n = 10
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		require.True(t, r.Submit(a, testutil.AddRect("a-"+id, 0, 0, 10, 10)))
		require.True(t, r.Submit(b, testutil.AddRect("b-"+id, 0, 0, 10, 10)))
	}

	var last int64
	for i := 0; i < 2*n; i++ {
		var action scene.Action
		require.NoError(t, json.Unmarshal(recv(t, observer), &action))
		assert.Greater(t, action.ServerSequence, last)
		last = action.ServerSequence
	}
	assert.Equal(t, int64(2*n), last)
}

func TestRoom_PersistsAcceptedActions(t *testing.T) {
	r, st := startTestRoom(t)

	m := NewMember("u-1")
	peer := NewMember("u-2")
	require.True(t, r.Join(m))
	require.True(t, r.Join(peer))
	recv(t, m)
	recv(t, peer)

	require.True(t, r.Submit(m, testutil.AddRect("el-1", 0, 0, 10, 10)))
	recv(t, peer) // broadcast confirms the action was processed

	actions, err := st.ReadActionsAfter(context.Background(), "p-1", 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, int64(1), actions[0].ServerSequence)
	assert.Equal(t, "u-1", actions[0].UserID)
}

func TestRoom_LateJoinerSeesAppliedActions(t *testing.T) {
	r, _ := startTestRoom(t)

	m := NewMember("u-1")
	peer := NewMember("u-2")
	require.True(t, r.Join(m))
	require.True(t, r.Join(peer))
	recv(t, m)
	recv(t, peer)
	require.True(t, r.Submit(m, testutil.AddRect("el-1", 0, 0, 10, 10)))
	recv(t, peer)

	late := NewMember("u-3")
	require.True(t, r.Join(late))

	var msg SyncMessage
	require.NoError(t, json.Unmarshal(recv(t, late), &msg))
	assert.Equal(t, int64(1), msg.Payload.Sequence)
	assert.Contains(t, msg.Payload.State.Elements, "el-1")
}

func TestRoom_ServesEventsQueuedBeforeRun(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	r := New("p-1", st, scene.NewState(), 0)

	// Everything lands in the queue before the loop exists.
	m := NewMember("u-1")
	peer := NewMember("u-2")
	require.True(t, r.Join(m))
	require.True(t, r.Join(peer))
	require.True(t, r.Submit(m, testutil.AddRect("el-0", 0, 0, 10, 10)))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	recv(t, m)    // sync state
	recv(t, peer) // sync state
	recv(t, peer) // el-0 broadcast

	// The loop must keep serving across repeated drain-and-park cycles.
	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Millisecond)
		id := string(rune('a' + i))
		require.True(t, r.Submit(m, testutil.AddRect("el-"+id, 0, 0, 10, 10)))
		var action scene.Action
		require.NoError(t, json.Unmarshal(recv(t, peer), &action))
		assert.Equal(t, int64(i+2), action.ServerSequence)
	}

	select {
	case <-done:
		t.Fatal("room loop exited while context still live")
	default:
	}

	late := NewMember("u-3")
	require.True(t, r.Join(late))
	var msg SyncMessage
	require.NoError(t, json.Unmarshal(recv(t, late), &msg))
	assert.Equal(t, int64(6), msg.Payload.Sequence)
}

func TestRoom_StopDrainsAcceptedEvents(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.CreateProject(context.Background(), "p-1", "Test"))

	r := New("p-1", st, scene.NewState(), 0)
	m := NewMember("u-1")
	require.True(t, r.Join(m))
	require.True(t, r.Submit(m, testutil.AddRect("el-1", 0, 0, 10, 10)))
	r.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(context.Background())
	}()
	<-done

	actions, err := st.ReadActionsAfter(context.Background(), "p-1", 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, int64(1), actions[0].ServerSequence)
}

func TestRoom_LeaveClosesMember(t *testing.T) {
	r, _ := startTestRoom(t)

	m := NewMember("u-1")
	require.True(t, r.Join(m))
	recv(t, m)

	require.True(t, r.Leave(m))

	select {
	case <-m.Detach():
	case <-time.After(2 * time.Second):
		t.Fatal("member was not detached")
	}
}

func TestRoom_StopRejectsFurtherEvents(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.CreateProject(context.Background(), "p-1", "Test"))

	r := New("p-1", st, scene.NewState(), 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(context.Background())
	}()

	m := NewMember("u-1")
	require.True(t, r.Join(m))
	recv(t, m)

	r.Stop()
	<-done

	assert.False(t, r.Join(NewMember("u-2")))
	assert.False(t, r.Submit(m, testutil.AddRect("el-1", 0, 0, 10, 10)))
}

func TestClock_ResumesFromStart(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(41), c.Current())
	assert.Equal(t, int64(42), c.Next())
	assert.Equal(t, int64(42), c.Current())
}
