package sink

import (
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
)

// DiskSink persists every sanitized message to the Badger message log.
// It is a permanent sink: the fanout worker logs and swallows its errors,
// so a failed write never blocks delivery.
type DiskSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewDiskSink(repository repositories.IMessageRepository, log *slog.Logger) DiskSink {
	return DiskSink{repository: repository, log: log}
}

func (d DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.SanitizedMessage:
		return d.repository.StoreMessage(toStoredMessage(evt))
	default:
		d.log.Debug(fmt.Sprintf("Not a persisted event : %T", evt))
		return nil
	}
}

func toStoredMessage(evt event.SanitizedMessage) repositories.StoredMessage {
	return repositories.StoredMessage{
		ID:      evt.ID,
		Room:    evt.Room,
		Sender:  evt.Sender,
		Content: evt.Content,
		Type:    evt.Type,
		At:      evt.At,
	}
}
