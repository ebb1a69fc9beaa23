package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
	"context"
	"embed"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

//go:embed censored/*
var censoredFolder embed.FS

// Timings groups the durations driving the background workers.
type Timings struct {
	SinkTimeout       time.Duration
	ReaperInterval    time.Duration
	IdleThreshold     time.Duration
	TelemetryInterval time.Duration
}

// Orchestrator owns the event pipeline: session dispatch -> moderation ->
// fanout. It connects the registry, the persistence sinks, and the
// supervised background workers.
type Orchestrator struct {
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IRegistry
	messages        repositories.IMessageRepository
	rooms           repositories.IRoomRepository
	permanentSinks  []contract.EventSink
	rawEvents       chan event.DomainEvent
	domainEvents    chan event.DomainEvent
	timings         Timings
	charReplacement rune
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, messages repositories.IMessageRepository,
	rooms repositories.IRoomRepository, permanentSinks []contract.EventSink,
	bufferSize int, timings Timings, charReplacement rune) *Orchestrator {
	return &Orchestrator{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		messages:        messages,
		rooms:           rooms,
		permanentSinks:  permanentSinks,
		rawEvents:       make(chan event.DomainEvent, bufferSize),
		domainEvents:    make(chan event.DomainEvent, bufferSize),
		timings:         timings,
		charReplacement: charReplacement,
	}
}

// JoinRoom registers a session and broadcasts the new presence snapshot.
// A room whose persisted record was deactivated must be recreated through
// the allocation API before it accepts sessions again.
func (o *Orchestrator) JoinRoom(roomID domain.RoomID, sessionID, username string, sink contract.EventSink) error {
	record, err := o.rooms.GetRoom(roomID)
	switch {
	case goerrors.Is(err, errors.ErrRoomNotFound):
		// Implicitly created room; the registry is the source of truth.
	case err != nil:
		// Storage trouble never blocks a join.
		o.log.Warn("Could not read room record on join", "room", roomID, "error", err)
	case !record.Active:
		return errors.ErrRoomInactive
	}

	presence := o.registry.Join(roomID, sessionID, username, sink)
	o.emit(event.PresenceChanged{Room: roomID, Users: presence.Users, Count: presence.Count})
	return nil
}

// LeaveRoom removes a session, broadcasts the shrunken presence to the
// remaining occupants, and lets the registry garbage-collect empty rooms.
func (o *Orchestrator) LeaveRoom(roomID domain.RoomID, sessionID, username string) {
	presence, roomRemoved := o.registry.Leave(roomID, sessionID, username)
	if roomRemoved {
		return
	}
	o.emit(event.PresenceChanged{Room: roomID, Users: presence.Users, Count: presence.Count})
}

// Dispatch accepts a decoded inbound frame from a session. The message is
// not echoed synchronously; the sender receives it through the fanout like
// every other occupant, keeping a single source of truth for ordering.
func (o *Orchestrator) Dispatch(cmd domain.Command) {
	postCmd, ok := cmd.(domain.PostMessageCommand)
	if !ok {
		return
	}
	o.registry.Touch(postCmd.RoomID)
	o.emit(event.MessagePosted{
		ID:      uuid.New(),
		Room:    postCmd.RoomID,
		Sender:  postCmd.Sender,
		Content: postCmd.Content,
		Type:    postCmd.Type.OrDefault(),
		At:      postCmd.CreatedAt,
	})
}

// History returns the persisted messages of a room, timestamp ascending.
func (o *Orchestrator) History(roomID domain.RoomID) ([]domain.Message, error) {
	stored, err := o.messages.GetMessages(roomID)
	if err != nil {
		return nil, err
	}
	return repositories.ToDomain(stored), nil
}

func (o *Orchestrator) emit(evt event.DomainEvent) {
	select {
	case o.rawEvents <- evt:
	default:
		o.log.Warn(fmt.Sprintf("Event channel full for room %s, dropping event", evt.RoomID()))
	}
}

// Start builds the moderation automaton, registers all workers with the
// supervisor, and launches supervision. It returns once the pipeline is
// accepting events.
func (o *Orchestrator) Start(ctx context.Context) error {
	moderationWorker, err := o.prepareModeration("censored", o.charReplacement)
	if err != nil {
		return err
	}

	fanoutWorker := workers.NewEventFanout(
		o.log, o.registry, o.permanentSinks, o.domainEvents, o.timings.SinkTimeout)
	reaperWorker := workers.NewReaperWorker(
		o.registry, o.rooms, o.timings.ReaperInterval, o.timings.IdleThreshold, o.log)
	telemetryWorker := workers.NewTelemetryWorker(o.log, o.timings.TelemetryInterval)

	o.supervisor.Add(moderationWorker)
	o.supervisor.Add(fanoutWorker)
	o.supervisor.Add(reaperWorker)
	o.supervisor.Add(telemetryWorker)

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration(path string, charReplacement rune) (contract.Worker, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement)
	if err != nil {
		return nil, err
	}

	return workers.NewModerationWorker(moderator, o.rawEvents, o.domainEvents, o.log), nil
}

// Stop initiates a graceful shutdown of the orchestrator.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
