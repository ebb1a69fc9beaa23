package domain

import (
	"time"
)

type Command interface {
	Room() RoomID
}

// PostMessageCommand is the intent produced by a session for every decoded
// inbound frame. The relay owns timestamps and identifiers from here on.
type PostMessageCommand struct {
	RoomID    RoomID
	Sender    string
	Content   string
	Type      MessageType
	CreatedAt time.Time
}

func (c PostMessageCommand) Room() RoomID {
	return c.RoomID
}
