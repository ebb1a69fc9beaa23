// Package ws exposes the websocket relay endpoint: one session per
// connection, JSON frames in both directions.
package ws

import (
	"chat-relay/domain/event"
	"encoding/json"
	"time"
)

// InboundFrame is the payload clients send. An absent type tag means text;
// anything else in the frame is ignored.
type InboundFrame struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// ChatFrame is the relayed message as every occupant receives it.
type ChatFrame struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// PresenceFrame announces the username set after a join or leave.
type PresenceFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
	Count int      `json:"count"`
}

const presenceFrameType = "user_list"

// encodeFrame serializes delivery-relevant events to their wire form.
// Events without a wire representation return (nil, false).
func encodeFrame(e event.DomainEvent) ([]byte, bool) {
	switch evt := e.(type) {
	case event.SanitizedMessage:
		data, err := json.Marshal(ChatFrame{
			Sender:    evt.Sender,
			Content:   evt.Content,
			Type:      string(evt.Type),
			CreatedAt: evt.At.UTC().Format(time.RFC3339Nano),
		})
		return data, err == nil
	case event.PresenceChanged:
		users := evt.Users
		if users == nil {
			users = []string{}
		}
		data, err := json.Marshal(PresenceFrame{
			Type:  presenceFrameType,
			Users: users,
			Count: evt.Count,
		})
		return data, err == nil
	default:
		return nil, false
	}
}
