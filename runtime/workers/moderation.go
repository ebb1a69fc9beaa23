package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"context"
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

var _ contract.Worker = (*ModerationWorker)(nil)

// ModerationWorker turns raw MessagePosted events into SanitizedMessage
// events. Every other event kind passes through untouched so the pipeline
// keeps a single ordered lane per room.
type ModerationWorker struct {
	moderator moderation.Moderator
	rawEvents chan event.DomainEvent
	events    chan event.DomainEvent
	log       *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	rawEvents, events chan event.DomainEvent, log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator: moderator,
		rawEvents: rawEvents,
		events:    events,
		log:       log,
	}
}

func (w *ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.rawEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if posted, isMessage := e.(event.MessagePosted); isMessage {
				e = w.toSanitizedEvent(posted)
			}
			select {
			case <-ctx.Done():
				w.log.Debug("Stopping worker")
				return ctx.Err()
			case w.events <- e:
			}
		}
	}
}

func (w *ModerationWorker) toSanitizedEvent(evt event.MessagePosted) event.SanitizedMessage {
	sanitized, foundWords := w.moderator.Censor(evt.Content)

	if len(foundWords) > 0 {
		info := whatlanggo.Detect(evt.Content)
		w.log.Warn("Censored message content",
			"room", evt.Room,
			"sender", evt.Sender,
			"words", len(foundWords),
			"lang", info.Lang.Iso6391())
	}

	return event.SanitizedMessage{
		ID:      evt.ID,
		Room:    evt.Room,
		Sender:  evt.Sender,
		Content: sanitized,
		Type:    evt.Type,
		At:      evt.At,
	}
}
