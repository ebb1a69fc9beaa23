package ws

import (
	"chat-relay/domain"
	goerrors "errors"
	"log/slog"
	"net/http"

	"chat-relay/errors"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket sessions bound to a room.
type Handler struct {
	relay      Relay
	bufferSize int
	log        *slog.Logger
}

func NewHandler(relay Relay, bufferSize int, log *slog.Logger) *Handler {
	return &Handler{relay: relay, bufferSize: bufferSize, log: log}
}

// ServeWS handles GET /ws/{room}/{username}. The room is created on first
// join; a room deactivated by an operator rejects new sessions.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := domain.RoomID(r.PathValue("room"))
	username := r.PathValue("username")
	if room == "" || username == "" {
		http.Error(w, "room and username are required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "room", room, "error", err)
		return
	}

	session := NewSession(conn, room, username, h.relay, h.bufferSize, h.log)

	if err := h.relay.JoinRoom(room, session.ID(), username, session.Sink()); err != nil {
		reason := "join refused"
		if goerrors.Is(err, errors.ErrRoomInactive) {
			reason = "room is closed"
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
		_ = conn.Close()
		return
	}

	h.log.Info("Session joined", "room", room, "username", username, "session", session.ID())

	go session.WritePump(r.Context())
	session.ReadPump()
}
