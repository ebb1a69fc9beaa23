package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Relay is the slice of the orchestrator a session needs.
type Relay interface {
	JoinRoom(roomID domain.RoomID, sessionID, username string, sink contract.EventSink) error
	LeaveRoom(roomID domain.RoomID, sessionID, username string)
	Dispatch(cmd domain.Command)
}

// Session is one connected client: its websocket, its identity within a
// room, and the pumps moving frames in both directions. The receive loop
// exclusively owns the session; the room only back-references its sink.
type Session struct {
	id        string
	room      domain.RoomID
	username  string
	conn      *websocket.Conn
	sink      *SessionSink
	relay     Relay
	log       *slog.Logger
	leaveOnce sync.Once
}

func NewSession(conn *websocket.Conn, room domain.RoomID, username string,
	relay Relay, bufferSize int, log *slog.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		room:     room,
		username: username,
		conn:     conn,
		sink: &SessionSink{
			send: make(chan []byte, bufferSize),
			done: make(chan struct{}),
		},
		relay: relay,
		log:   log,
	}
}

func (s *Session) ID() string { return s.id }

// Sink returns the delivery endpoint the registry holds for this session.
func (s *Session) Sink() contract.EventSink { return s.sink }

// ReadPump decodes inbound frames until the connection dies. A malformed
// frame is dropped silently and the loop continues; only transport-level
// failures end the session. Cleanup runs exactly once.
func (s *Session) ReadPump() {
	defer s.cleanup()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.log.Warn("Unexpected websocket error",
					"room", s.room, "username", s.username, "error", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			// Frame-level failure only; the sender gets no feedback.
			s.log.Debug("Dropping malformed frame",
				"room", s.room, "username", s.username, "error", err)
			continue
		}

		s.relay.Dispatch(domain.PostMessageCommand{
			RoomID:    s.room,
			Sender:    s.username,
			Content:   frame.Content,
			Type:      domain.MessageType(frame.Type).OrDefault(),
			CreatedAt: time.Now().UTC(),
		})
	}
}

// WritePump serializes all writes to the connection: queued frames from the
// sink plus keepalive pings.
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data := <-s.sink.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.sink.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanup leaves the room and unblocks both pumps. Guarded so a read error
// racing an explicit close never removes the session twice.
func (s *Session) cleanup() {
	s.leaveOnce.Do(func() {
		s.relay.LeaveRoom(s.room, s.id, s.username)
		s.sink.close()
		_ = s.conn.Close()
	})
}
