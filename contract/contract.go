//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives domain events. Sinks are either permanent (storage,
// search) or scoped to one connected session.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the room registry: the single owner of in-memory room
// liveness, occupancy, and last-activity state.
type IRegistry interface {
	Join(roomID domain.RoomID, sessionID, username string, sink EventSink) domain.Presence
	Leave(roomID domain.RoomID, sessionID, username string) (domain.Presence, bool)
	Touch(roomID domain.RoomID)
	Snapshot(roomID domain.RoomID) (domain.Presence, bool)
	ScanIdle(threshold time.Duration) []domain.RoomID
	Evict(roomID domain.RoomID)
	SinksFor(roomID domain.RoomID) []EventSink
}
