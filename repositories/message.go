package repositories

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message StoredMessage) error
	GetMessages(room domain.RoomID) ([]StoredMessage, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// StoredMessage is the repository-level representation of a persisted message.
type StoredMessage struct {
	ID      uuid.UUID
	Room    domain.RoomID
	Sender  string
	Content string
	Type    domain.MessageType
	At      time.Time
}

type messageRecord struct {
	ID      string    `json:"id"`
	Room    string    `json:"room"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	Type    string    `json:"type"`
	At      int64     `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message StoredMessage) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		message.Room,
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromStoredMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves the messages of a room in timestamp-ascending order
// using a prefix scan. Thanks to the padded timestamp in the key, messages
// are naturally sorted by time. Collection stops once the configured
// limitMessages is reached.
func (m MessageRepository) GetMessages(room domain.RoomID) ([]StoredMessage, error) {
	var rawMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", room))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(rawMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				rawMessages = append(rawMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []StoredMessage
	for _, raw := range rawMessages {
		var record messageRecord
		if err = json.Unmarshal(raw, &record); err != nil {
			return nil, err
		}
		message, err := toStoredMessage(record)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromStoredMessage(message StoredMessage) messageRecord {
	return messageRecord{
		ID:      message.ID.String(),
		Room:    string(message.Room),
		Sender:  message.Sender,
		Content: message.Content,
		Type:    string(message.Type),
		At:      message.At.UnixNano(),
	}
}

func toStoredMessage(record messageRecord) (StoredMessage, error) {
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return StoredMessage{}, err
	}
	return StoredMessage{
		ID:      parsedID,
		Room:    domain.RoomID(record.Room),
		Sender:  record.Sender,
		Content: record.Content,
		Type:    domain.MessageType(record.Type),
		At:      time.Unix(0, record.At).UTC(),
	}, nil
}

// ToDomain converts repository messages back to domain messages for history
// responses.
func ToDomain(messages []StoredMessage) []domain.Message {
	return lo.Map(messages, func(item StoredMessage, _ int) domain.Message {
		return domain.Message{
			ID:        item.ID,
			Room:      item.Room,
			Sender:    item.Sender,
			Content:   item.Content,
			Type:      item.Type,
			CreatedAt: item.At,
		}
	})
}
