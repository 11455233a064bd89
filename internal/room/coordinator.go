package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kinetichq/kinetic/internal/store"
)

// Coordinator owns the set of live rooms. Rooms are created lazily on
// first access, resuming from the project's persisted log, and run
// until the coordinator's context is cancelled.
type Coordinator struct {
	log *store.Store

	mu    sync.Mutex
	rooms map[string]*Room
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator backed by the given log.
func NewCoordinator(log *store.Store) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		log:    log,
		rooms:  make(map[string]*Room),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Room returns the live room for a project, materializing and starting
// it on first access. The project must exist in the log.
func (c *Coordinator) Room(ctx context.Context, projectID string) (*Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.rooms[projectID]; ok {
		return r, nil
	}

	if _, err := c.log.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	state, lastSeq, err := c.log.Materialize(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("open room %s: %w", projectID, err)
	}

	r := New(projectID, c.log, state, lastSeq)
	c.rooms[projectID] = r
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := r.Run(c.ctx); err != nil && c.ctx.Err() == nil {
			slog.Error("room exited", "project", projectID, "error", err)
		}
	}()

	slog.Info("room opened", "project", projectID, "resumedSeq", lastSeq)
	return r, nil
}

// Evict stops a room and removes it from the live set so the next
// access rebuilds it from the log. Used after a rollback invalidates
// in-memory state. Members are detached and must rejoin.
func (c *Coordinator) Evict(projectID string) {
	c.mu.Lock()
	r, ok := c.rooms[projectID]
	delete(c.rooms, projectID)
	c.mu.Unlock()

	if ok {
		r.Stop()
	}
}

// Close stops every room and waits for their loops to drain.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}
