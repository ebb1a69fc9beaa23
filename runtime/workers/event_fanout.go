package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*EventFanout)(nil)

// EventFanout delivers each pipeline event to the permanent sinks (storage,
// search) and then to every session currently in the event's room.
//
// It provides best-effort fan-out: a failing sink is logged and skipped,
// never aborting delivery to the remaining recipients and never surfacing
// back to the sender. Because a single fanout worker drains a single ordered
// channel, messages from one sender reach all recipients of a room in the
// order they were sent.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	permanentSinks []contract.EventSink, events chan event.DomainEvent,
	sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		permanentSinks: permanentSinks,
		events:         events,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout pushes one event through the permanent sinks and the room's
// sessions. Persistence and delivery are independent outcomes: a storage
// failure is logged and the event still reaches every session.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.permanentSinks {
		w.consume(ctx, sink, evt)
	}
	for _, sink := range w.registry.SinksFor(evt.RoomID()) {
		w.consume(ctx, sink, evt)
	}
}

// consume applies the log-and-continue recovery policy to a single sink.
func (w *EventFanout) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Warn("Sink failed to consume event",
			"room", evt.RoomID(),
			"error", err)
	}
}
