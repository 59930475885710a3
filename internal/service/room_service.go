package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/wavechat/chat-service/internal/domain"
)

// RoomRepo is the slice of the storage layer the room service consumes.
type RoomRepo interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Delete(ctx context.Context, id string) error
}

type RoomService struct {
	roomRepo RoomRepo
}

func NewRoomService(roomRepo RoomRepo) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom creates a room with the given name and optional description.
func (s *RoomService) CreateRoom(ctx context.Context, name string, description *string) (*domain.Room, error) {
	if name == "" {
		return nil, domain.ErrEmptyRoomName
	}

	room := &domain.Room{
		Name:        name,
		Description: description,
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}
	return room, nil
}

// GetRoom returns a room by ID.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// ListRooms returns rooms with cursor pagination, newest first.
func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	rooms, nextCursor, err := s.roomRepo.List(ctx, limit, cursor)
	if err != nil {
		return nil, "", err
	}
	return rooms, nextCursor, nil
}

func (s *RoomService) DeleteRoom(ctx context.Context, id string) error {
	return s.roomRepo.Delete(ctx, id)
}
