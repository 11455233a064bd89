package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/text/unicode/norm"

	"github.com/kinetichq/kinetic/internal/room"
	"github.com/kinetichq/kinetic/internal/scene"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var errMissingProject = errors.New("projectId query parameter is required")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// normalizeText folds inbound strings to NFC so visually identical
// names hash and compare equal regardless of how the client composed
// them.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}

// handleWS joins a socket to a project's room. Query parameters:
// projectId (required) and userId (optional, generated when absent).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		httpError(w, http.StatusBadRequest, errMissingProject)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = uuid.NewString()
	}

	rm, err := s.rooms.Room(r.Context(), projectID)
	if err != nil {
		httpError(w, http.StatusNotFound, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "project", projectID, "error", err)
		return
	}

	member := room.NewMember(userID)
	if !rm.Join(member) {
		// Room stopped between lookup and join; client retries.
		_ = conn.Close()
		return
	}

	go writePump(conn, member)
	go readPump(conn, rm, member)
}

// readPump decodes actions off the socket and submits them for
// sequencing. Returning unregisters the member.
func readPump(conn *websocket.Conn, rm *room.Room, member *room.Member) {
	defer func() {
		rm.Leave(member)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "project", rm.ProjectID, "user", member.UserID, "error", err)
			}
			return
		}

		// NFC before decode: every string field in the action is
		// normalized in one pass over the frame.
		var action scene.Action
		if err := json.Unmarshal(norm.NFC.Bytes(data), &action); err != nil {
			slog.Warn("discarding malformed frame", "project", rm.ProjectID, "user", member.UserID, "error", err)
			continue
		}
		if !rm.Submit(member, action) {
			return
		}
	}
}

// writePump drains the member's outbound stream to the socket and
// keeps the connection alive with pings.
func writePump(conn *websocket.Conn, member *room.Member) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-member.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Room dropped the member (leave, detach, shutdown).
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
