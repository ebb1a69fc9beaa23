package event

import (
	"chat-relay/domain"
	"time"

	"github.com/google/uuid"
)

type DomainEvent interface {
	RoomID() domain.RoomID
}

// MessagePosted is the raw inbound message before moderation.
type MessagePosted struct {
	ID      uuid.UUID
	Room    domain.RoomID
	Sender  string
	Content string
	Type    domain.MessageType
	At      time.Time
}

func (m MessagePosted) RoomID() domain.RoomID {
	return m.Room
}

// SanitizedMessage is a message after the moderation pass. Only sanitized
// messages reach sinks and connected sessions.
type SanitizedMessage struct {
	ID      uuid.UUID
	Room    domain.RoomID
	Sender  string
	Content string
	Type    domain.MessageType
	At      time.Time
}

func (m SanitizedMessage) RoomID() domain.RoomID {
	return m.Room
}

// PresenceChanged carries the room occupancy snapshot broadcast on every
// join and leave.
type PresenceChanged struct {
	Room  domain.RoomID
	Users []string
	Count int
}

func (p PresenceChanged) RoomID() domain.RoomID {
	return p.Room
}
