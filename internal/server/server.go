package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kinetichq/kinetic/internal/config"
	"github.com/kinetichq/kinetic/internal/room"
	"github.com/kinetichq/kinetic/internal/store"
)

// Server wires the action log and room coordinator to HTTP handlers.
type Server struct {
	cfg   config.Config
	log   *store.Store
	rooms *room.Coordinator
	http  *http.Server
}

// New builds a server around an open store.
func New(cfg config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:   cfg,
		log:   st,
		rooms: room.NewCoordinator(st),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/settings", s.handleSettings)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("GET /api/projects/{id}/state", s.handleGetState)
	mux.HandleFunc("POST /api/projects/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /api/projects/{id}/rollback", s.handleRollback)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the route table; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	slog.Info("server listening", "addr", s.cfg.Listen)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains HTTP connections and stops every room.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.rooms.Close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type settingsResponse struct {
	CoalesceWindowMS int64   `json:"coalesceWindowMs"`
	MaxHistory       int     `json:"maxHistory"`
	SnapThreshold    float64 `json:"snapThreshold"`
}

// handleSettings serves the editor tunables clients apply locally.
func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{
		CoalesceWindowMS: s.cfg.CoalesceWindow.Std().Milliseconds(),
		MaxHistory:       s.cfg.MaxHistory,
		SnapThreshold:    s.cfg.SnapThreshold,
	})
}

type createProjectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Name == "" {
		req.Name = "Untitled Project"
	}
	req.Name = normalizeText(req.Name)

	if err := s.log.CreateProject(r.Context(), req.ID, req.Name); err != nil {
		httpError(w, http.StatusConflict, err)
		return
	}
	project, err := s.log.GetProject(r.Context(), req.ID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("project created", "project", project.ID, "name", project.Name)
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.log.GetProject(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type stateResponse struct {
	State    json.RawMessage `json:"state"`
	Sequence int64           `json:"sequence"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.log.GetProject(r.Context(), id); err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}

	state, lastSeq, err := s.log.Materialize(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: raw, Sequence: lastSeq})
}

type snapshotResponse struct {
	Version int   `json:"version"`
	LastSeq int64 `json:"lastSeq"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	project, err := s.log.GetProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	state, lastSeq, err := s.log.Materialize(r.Context(), id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	version := project.Version + 1
	if err := s.log.WriteSnapshot(r.Context(), id, version, lastSeq, state); err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	slog.Info("snapshot written", "project", id, "version", version, "lastSeq", lastSeq)
	writeJSON(w, http.StatusCreated, snapshotResponse{Version: version, LastSeq: lastSeq})
}

type rollbackRequest struct {
	Version int `json:"version"`
}

type rollbackResponse struct {
	Version int `json:"version"`
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req rollbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.log.Rollback(r.Context(), id, req.Version); err != nil {
		if errors.Is(err, store.ErrVersionNotFound) {
			httpError(w, http.StatusNotFound, err)
			return
		}
		httpError(w, http.StatusInternalServerError, err)
		return
	}

	// The live room's in-memory state is now ahead of the log; force a
	// rebuild so rejoining clients see the restored version.
	s.rooms.Evict(id)

	slog.Info("project rolled back", "project", id, "version", req.Version)
	writeJSON(w, http.StatusOK, rollbackResponse{Version: req.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	slog.Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
