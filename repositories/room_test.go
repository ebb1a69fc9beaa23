package repositories

import (
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func TestRoomRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewRoomRepository(openTestDB(t))

	record, err := repo.CreateRoom("general")
	req.NoError(err)
	req.Equal(domain.RoomID("general"), record.ID)
	req.Equal("general", record.Name)
	req.True(record.Active)

	fetched, err := repo.GetRoom("general")
	req.NoError(err)
	req.Equal(record.ID, fetched.ID)
	req.True(fetched.Active)
}

func TestRoomRepository_GetUnknownRoom(t *testing.T) {
	req := require.New(t)
	repo := NewRoomRepository(openTestDB(t))

	_, err := repo.GetRoom("ghost")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestRoomRepository_DeactivateRoom(t *testing.T) {
	req := require.New(t)
	repo := NewRoomRepository(openTestDB(t))

	record, err := repo.CreateRoom("general")
	req.NoError(err)

	req.NoError(repo.DeactivateRoom(record.ID))

	active, err := repo.IsActive(record.ID)
	req.NoError(err)
	req.False(active)

	// Deactivating a room that never existed reports the missing record
	req.ErrorIs(repo.DeactivateRoom("ghost"), errors.ErrRoomNotFound)
}

func TestRoomRepository_ListActiveRooms(t *testing.T) {
	req := require.New(t)
	repo := NewRoomRepository(openTestDB(t))

	kept, err := repo.CreateRoom("kept")
	req.NoError(err)
	dropped, err := repo.CreateRoom("dropped")
	req.NoError(err)
	req.NoError(repo.DeactivateRoom(dropped.ID))

	rooms, err := repo.ListActiveRooms()
	req.NoError(err)
	req.Len(rooms, 1)
	req.Equal(kept.ID, rooms[0].ID)
}

func TestRoomRepository_CreateReopensDeactivatedRoom(t *testing.T) {
	req := require.New(t)
	repo := NewRoomRepository(openTestDB(t))

	record, err := repo.CreateRoom("general")
	req.NoError(err)
	req.NoError(repo.DeactivateRoom(record.ID))

	reopened, err := repo.CreateRoom("general")
	req.NoError(err)
	req.True(reopened.Active)
	req.WithinDuration(record.CreatedAt, reopened.CreatedAt, time.Second)

	active, err := repo.IsActive(record.ID)
	req.NoError(err)
	req.True(active)
}
