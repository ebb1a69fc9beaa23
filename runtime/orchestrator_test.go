package runtime

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/logs"
	"chat-relay/mocks"
	"chat-relay/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *mocks.MockIRegistry, *mocks.MockIMessageRepository, *mocks.MockIRoomRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	rooms := mocks.NewMockIRoomRepository(ctrl)

	o := NewOrchestrator(
		logs.GetLoggerFromLevel(slog.LevelError),
		nil, registry, messages, rooms, nil, 16,
		Timings{SinkTimeout: time.Second, ReaperInterval: time.Minute, IdleThreshold: time.Hour},
		'*')
	return o, registry, messages, rooms
}

func TestOrchestrator_JoinEmitsPresence(t *testing.T) {
	req := require.New(t)
	o, registry, _, rooms := newTestOrchestrator(t)
	sink := mocks.NewMockEventSink(gomock.NewController(t))

	// Given a room without a persisted record (implicit creation)
	rooms.EXPECT().GetRoom(domain.RoomID("general")).
		Return(repositories.RoomRecord{}, errors.ErrRoomNotFound).Times(1)
	registry.EXPECT().Join(domain.RoomID("general"), "s1", "alice", sink).
		Return(domain.Presence{Users: []string{"alice"}, Count: 1}).Times(1)

	req.NoError(o.JoinRoom("general", "s1", "alice", sink))

	select {
	case evt := <-o.rawEvents:
		presence, ok := evt.(event.PresenceChanged)
		req.True(ok)
		req.Equal([]string{"alice"}, presence.Users)
		req.Equal(1, presence.Count)
	default:
		req.Fail("No presence event emitted")
	}
}

func TestOrchestrator_JoinRejectsInactiveRoom(t *testing.T) {
	req := require.New(t)
	o, registry, _, rooms := newTestOrchestrator(t)

	rooms.EXPECT().GetRoom(domain.RoomID("closed")).
		Return(repositories.RoomRecord{ID: "closed", Active: false}, nil).Times(1)
	registry.EXPECT().Join(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := o.JoinRoom("closed", "s1", "alice", mocks.NewMockEventSink(gomock.NewController(t)))
	req.ErrorIs(err, errors.ErrRoomInactive)
}

func TestOrchestrator_JoinSurvivesStorageTrouble(t *testing.T) {
	req := require.New(t)
	o, registry, _, rooms := newTestOrchestrator(t)
	sink := mocks.NewMockEventSink(gomock.NewController(t))

	// A storage failure on the record read never blocks a live join
	rooms.EXPECT().GetRoom(domain.RoomID("general")).
		Return(repositories.RoomRecord{}, fmt.Errorf("storage down")).Times(1)
	registry.EXPECT().Join(domain.RoomID("general"), "s1", "alice", sink).
		Return(domain.Presence{Users: []string{"alice"}, Count: 1}).Times(1)

	req.NoError(o.JoinRoom("general", "s1", "alice", sink))
}

func TestOrchestrator_LeaveEmitsPresenceUnlessRoomRemoved(t *testing.T) {
	req := require.New(t)
	o, registry, _, _ := newTestOrchestrator(t)

	// Given bob stays behind
	registry.EXPECT().Leave(domain.RoomID("general"), "s1", "alice").
		Return(domain.Presence{Users: []string{"bob"}, Count: 1}, false).Times(1)
	o.LeaveRoom("general", "s1", "alice")
	req.Len(o.rawEvents, 1)

	// Given the room emptied out, there is nobody left to notify
	registry.EXPECT().Leave(domain.RoomID("general"), "s2", "bob").
		Return(domain.Presence{}, true).Times(1)
	o.LeaveRoom("general", "s2", "bob")
	req.Len(o.rawEvents, 1)
}

func TestOrchestrator_DispatchTouchesAndEmits(t *testing.T) {
	req := require.New(t)
	o, registry, _, _ := newTestOrchestrator(t)

	registry.EXPECT().Touch(domain.RoomID("general")).Times(1)

	at := time.Now().UTC()
	o.Dispatch(domain.PostMessageCommand{
		RoomID:    "general",
		Sender:    "alice",
		Content:   "hello",
		Type:      domain.MessageTypeText,
		CreatedAt: at,
	})

	select {
	case evt := <-o.rawEvents:
		posted, ok := evt.(event.MessagePosted)
		req.True(ok)
		req.NotEqual(uuid.Nil, posted.ID)
		req.Equal("hello", posted.Content)
		req.Equal(at, posted.At)
	default:
		req.Fail("No message event emitted")
	}
}

func TestOrchestrator_DispatchDropsWhenChannelFull(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)

	// A buffer of one so the second dispatch hits a full channel
	o := NewOrchestrator(
		logs.GetLoggerFromLevel(slog.LevelError),
		nil, registry, mocks.NewMockIMessageRepository(ctrl),
		mocks.NewMockIRoomRepository(ctrl), nil, 1,
		Timings{SinkTimeout: time.Second}, '*')

	registry.EXPECT().Touch(gomock.Any()).Times(2)

	o.Dispatch(domain.PostMessageCommand{RoomID: "general", Sender: "alice", Content: "one"})
	o.Dispatch(domain.PostMessageCommand{RoomID: "general", Sender: "alice", Content: "two"})

	// The overflowing event is dropped, not blocked on
	req.Len(o.rawEvents, 1)
}

func TestOrchestrator_History(t *testing.T) {
	req := require.New(t)
	o, _, messages, _ := newTestOrchestrator(t)

	stored := []repositories.StoredMessage{{
		ID:      uuid.New(),
		Room:    "general",
		Sender:  "alice",
		Content: "hello",
		Type:    domain.MessageTypeText,
		At:      time.Now().UTC(),
	}}
	messages.EXPECT().GetMessages(domain.RoomID("general")).Return(stored, nil).Times(1)

	history, err := o.History("general")
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("alice", history[0].Sender)
}
