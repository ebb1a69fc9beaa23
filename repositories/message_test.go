package repositories

import (
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/logs"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelError)
}

func storedMessage(room domain.RoomID, sender, content string, at time.Time) StoredMessage {
	return StoredMessage{
		ID:      uuid.New(),
		Room:    room,
		Sender:  sender,
		Content: content,
		Type:    domain.MessageTypeText,
		At:      at,
	}
}

func TestMessageRepository_StoreAndGetInOrder(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, testLogger(), nil)

	base := time.Now().UTC().Truncate(time.Millisecond)

	// Given messages stored out of chronological order
	req.NoError(repo.StoreMessage(storedMessage("general", "bob", "second", base.Add(time.Second))))
	req.NoError(repo.StoreMessage(storedMessage("general", "alice", "first", base)))
	req.NoError(repo.StoreMessage(storedMessage("general", "carol", "third", base.Add(2*time.Second))))

	// When reading the room history
	messages, err := repo.GetMessages("general")
	req.NoError(err)

	// Then they come back timestamp ascending
	req.Len(messages, 3)
	req.Equal("first", messages[0].Content)
	req.Equal("second", messages[1].Content)
	req.Equal("third", messages[2].Content)
}

func TestMessageRepository_ScopesByRoom(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, testLogger(), nil)

	now := time.Now().UTC()
	req.NoError(repo.StoreMessage(storedMessage("general", "alice", "in general", now)))
	req.NoError(repo.StoreMessage(storedMessage("random", "bob", "in random", now)))

	messages, err := repo.GetMessages("general")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("in general", messages[0].Content)

	empty, err := repo.GetMessages("ghost")
	req.NoError(err)
	req.Empty(empty)
}

func TestMessageRepository_HonorsLimit(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, testLogger(), lo.ToPtr(2))

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		req.NoError(repo.StoreMessage(
			storedMessage("general", "alice", "msg", now.Add(time.Duration(i)*time.Second))))
	}

	messages, err := repo.GetMessages("general")
	req.NoError(err)
	req.Len(messages, 2)
}

func TestToDomain(t *testing.T) {
	req := require.New(t)
	now := time.Now().UTC()
	stored := []StoredMessage{storedMessage("general", "alice", "hello", now)}

	messages := ToDomain(stored)
	req.Len(messages, 1)
	req.Equal("alice", messages[0].Sender)
	req.Equal("hello", messages[0].Content)
	req.Equal(domain.MessageTypeText, messages[0].Type)
	req.Equal(now, messages[0].CreatedAt)
}
