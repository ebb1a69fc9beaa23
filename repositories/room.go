package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"encoding/json"
	goerrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(name string) (RoomRecord, error)
	GetRoom(id domain.RoomID) (RoomRecord, error)
	ListActiveRooms() ([]RoomRecord, error)
	DeactivateRoom(id domain.RoomID) error
	IsActive(id domain.RoomID) (bool, error)
}

// RoomRecord is the externally persisted room state. The in-memory registry
// stays the source of truth for liveness; this record only carries the
// allocation metadata and the active flag the reaper maintains.
type RoomRecord struct {
	ID        domain.RoomID `json:"id"`
	Name      string        `json:"name"`
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"created_at"`
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func roomKey(id domain.RoomID) []byte {
	return []byte("room:" + string(id))
}

// CreateRoom persists an active record under the room's name, which is also
// its identifier in the websocket path. Creating an existing room is an
// upsert: a deactivated room comes back active, which is the only way to
// reopen it once the reaper closed it.
func (r *RoomRepository) CreateRoom(name string) (RoomRecord, error) {
	record := RoomRecord{
		ID:        domain.RoomID(name),
		Name:      name,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(record.ID))
		if err == nil {
			var existing RoomRecord
			if err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			record.CreatedAt = existing.CreatedAt
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(record.ID), data)
	})
	if err != nil {
		return RoomRecord{}, err
	}
	return record, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (RoomRecord, error) {
	var record RoomRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return RoomRecord{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return RoomRecord{}, err
	}
	return record, nil
}

func (r *RoomRepository) ListActiveRooms() ([]RoomRecord, error) {
	var records []RoomRecord
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record RoomRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				if record.Active {
					records = append(records, record)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

// DeactivateRoom flips the persisted active flag off. Deactivating an
// unknown room reports ErrRoomNotFound so the reaper can log it.
func (r *RoomRepository) DeactivateRoom(id domain.RoomID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		var record RoomRecord
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		}); err != nil {
			return err
		}
		record.Active = false
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(id), data)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrRoomNotFound
	}
	return err
}

// IsActive reports whether a persisted record exists and is still active.
// A room never created through the API has no record and reports false.
func (r *RoomRepository) IsActive(id domain.RoomID) (bool, error) {
	record, err := r.GetRoom(id)
	if goerrors.Is(err, errors.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Active, nil
}
