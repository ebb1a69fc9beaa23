package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	goerrors "errors"
	"log/slog"
	"time"
)

var _ contract.Worker = (*ReaperWorker)(nil)

// ReaperWorker deactivates rooms with no traffic for longer than the idle
// threshold. External state is deactivated first and the room is evicted
// from the registry only on success, so persisted and in-memory state never
// diverge: a failed deactivation leaves the room for the next tick.
type ReaperWorker struct {
	registry      contract.IRegistry
	rooms         repositories.IRoomRepository
	interval      time.Duration
	idleThreshold time.Duration
	log           *slog.Logger
}

func NewReaperWorker(registry contract.IRegistry, rooms repositories.IRoomRepository,
	interval, idleThreshold time.Duration, log *slog.Logger) *ReaperWorker {
	return &ReaperWorker{
		registry:      registry,
		rooms:         rooms,
		interval:      interval,
		idleThreshold: idleThreshold,
		log:           log,
	}
}

func (w *ReaperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			w.ReapOnce()
		}
	}
}

// ReapOnce runs a single scan-and-evict pass.
func (w *ReaperWorker) ReapOnce() {
	idle := w.registry.ScanIdle(w.idleThreshold)
	for _, roomID := range idle {
		w.reap(roomID)
	}
	if len(idle) > 0 {
		w.log.Info("Idle room scan finished", "reaped", len(idle))
	}
}

func (w *ReaperWorker) reap(roomID domain.RoomID) {
	// Rooms joined without ever passing through the allocation API have no
	// persisted record; there is nothing external to deactivate for them.
	err := w.rooms.DeactivateRoom(roomID)
	if goerrors.Is(err, errors.ErrRoomNotFound) {
		err = nil
	}
	if err != nil {
		// Room stays in memory; retried on the next tick.
		w.log.Warn("Failed to deactivate idle room, keeping it for retry",
			"room", roomID,
			"error", err)
		return
	}
	w.registry.Evict(roomID)
	w.log.Info("Evicted idle room", "room", roomID)
}
