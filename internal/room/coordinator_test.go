package room

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetichq/kinetic/internal/store"
	"github.com/kinetichq/kinetic/internal/testutil"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c := NewCoordinator(st)
	t.Cleanup(c.Close)
	return c, st
}

func TestCoordinator_RoomIsCached(t *testing.T) {
	c, st := newTestCoordinator(t)
	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	first, err := c.Room(ctx, "p-1")
	require.NoError(t, err)
	second, err := c.Room(ctx, "p-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCoordinator_UnknownProject(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, err := c.Room(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCoordinator_RoomResumesFromLog(t *testing.T) {
	c, st := newTestCoordinator(t)
	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	action := testutil.AddRect("el-1", 0, 0, 10, 10)
	action.ServerSequence = 3
	require.NoError(t, st.AppendAction(ctx, "p-1", action))

	r, err := c.Room(ctx, "p-1")
	require.NoError(t, err)

	m := NewMember("u-1")
	require.True(t, r.Join(m))

	var msg SyncMessage
	require.NoError(t, json.Unmarshal(recv(t, m), &msg))
	assert.Equal(t, int64(3), msg.Payload.Sequence)
	assert.Contains(t, msg.Payload.State.Elements, "el-1")
}

func TestCoordinator_EvictStopsAndRebuilds(t *testing.T) {
	c, st := newTestCoordinator(t)
	ctx := context.Background()
	require.NoError(t, st.CreateProject(ctx, "p-1", "Test"))

	stale, err := c.Room(ctx, "p-1")
	require.NoError(t, err)

	c.Evict("p-1")
	assert.False(t, stale.Join(NewMember("u-1")))

	fresh, err := c.Room(ctx, "p-1")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.True(t, fresh.Join(NewMember("u-2")))
}
