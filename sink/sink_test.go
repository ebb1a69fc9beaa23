package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/logs"
	"chat-relay/mocks"
	"chat-relay/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sanitizedEvent() event.SanitizedMessage {
	return event.SanitizedMessage{
		ID:      uuid.New(),
		Room:    "general",
		Sender:  "alice",
		Content: "hello",
		Type:    domain.MessageTypeText,
		At:      time.Now().UTC(),
	}
}

func TestDiskSink_PersistsSanitizedMessages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	diskSink := NewDiskSink(mockRepo, logs.GetLoggerFromLevel(slog.LevelError))

	evt := sanitizedEvent()
	mockRepo.EXPECT().
		StoreMessage(gomock.Any()).
		DoAndReturn(func(message repositories.StoredMessage) error {
			req.Equal(evt.ID, message.ID)
			req.Equal(evt.Room, message.Room)
			req.Equal(evt.Content, message.Content)
			return nil
		}).
		Times(1)

	req.NoError(diskSink.Consume(context.Background(), evt))
}

func TestDiskSink_IgnoresPresenceEvents(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIMessageRepository(ctrl)
	diskSink := NewDiskSink(mockRepo, logs.GetLoggerFromLevel(slog.LevelError))

	// Presence updates are transient, nothing to persist
	mockRepo.EXPECT().StoreMessage(gomock.Any()).Times(0)

	evt := event.PresenceChanged{Room: "general", Users: []string{"alice"}, Count: 1}
	req.NoError(diskSink.Consume(context.Background(), evt))
}

func TestSearchSink_IndexesSanitizedMessages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockISearchRepository(ctrl)
	searchSink := NewSearchSink(mockRepo)

	evt := sanitizedEvent()
	mockRepo.EXPECT().
		IndexMessage(gomock.Any()).
		DoAndReturn(func(message repositories.StoredMessage) error {
			req.Equal(evt.ID, message.ID)
			req.Equal(evt.Content, message.Content)
			return nil
		}).
		Times(1)

	req.NoError(searchSink.Consume(context.Background(), evt))
}

func TestSearchSink_IgnoresPresenceEvents(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockISearchRepository(ctrl)
	searchSink := NewSearchSink(mockRepo)

	mockRepo.EXPECT().IndexMessage(gomock.Any()).Times(0)

	evt := event.PresenceChanged{Room: "general"}
	req.NoError(searchSink.Consume(context.Background(), evt))
}
