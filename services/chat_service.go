package services

import (
	"context"

	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

type IChatService interface {
	CreateRoom(name string) (repositories.RoomRecord, error)
	ListRooms() ([]repositories.RoomRecord, error)
	History(roomID domain.RoomID) ([]domain.Message, error)
	Search(ctx context.Context, roomID domain.RoomID, terms string, limit int) ([]repositories.SearchHit, error)
}

// ChatService is the facade the HTTP API talks to. Live traffic goes
// through the orchestrator directly via the websocket layer.
type ChatService struct {
	orchestrator *runtime.Orchestrator
	rooms        repositories.IRoomRepository
	search       repositories.ISearchRepository
}

func NewChatService(o *runtime.Orchestrator, rooms repositories.IRoomRepository,
	search repositories.ISearchRepository) *ChatService {
	return &ChatService{orchestrator: o, rooms: rooms, search: search}
}

func (s *ChatService) CreateRoom(name string) (repositories.RoomRecord, error) {
	return s.rooms.CreateRoom(name)
}

func (s *ChatService) ListRooms() ([]repositories.RoomRecord, error) {
	return s.rooms.ListActiveRooms()
}

func (s *ChatService) History(roomID domain.RoomID) ([]domain.Message, error) {
	return s.orchestrator.History(roomID)
}

func (s *ChatService) Search(ctx context.Context, roomID domain.RoomID,
	terms string, limit int) ([]repositories.SearchHit, error) {
	return s.search.Search(ctx, roomID, terms, limit)
}
