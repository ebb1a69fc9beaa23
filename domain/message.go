// Package domain contains core concepts of the chat relay.
// This file defines Message events and related rules.
// Messages are immutable once constructed.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType tags the payload kind carried by a message. Anything the
// client sends that is not recognized is relayed as-is; an absent tag
// defaults to text.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeFile  MessageType = "file"
)

// OrDefault maps the empty tag to text.
func (t MessageType) OrDefault() MessageType {
	if t == "" {
		return MessageTypeText
	}
	return t
}

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID
	Room      RoomID
	Sender    string
	Content   string
	Type      MessageType
	CreatedAt time.Time
}
