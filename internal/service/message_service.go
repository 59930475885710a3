package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/wavechat/chat-service/internal/domain"
)

const maxContentLen = 4000

// MessageRepo is the slice of the storage layer the message service consumes.
type MessageRepo interface {
	Create(ctx context.Context, m *domain.Message) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
}

type MessageService struct {
	messageRepo MessageRepo
}

func NewMessageService(messageRepo MessageRepo) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// Post persists one message for a room and returns it with the
// store-assigned id and timestamp. A missing sender is defaulted, empty
// content is allowed: inbound payloads are never rejected for missing
// fields.
func (s *MessageService) Post(ctx context.Context, roomID, sender, content string) (*domain.Message, error) {
	if strings.TrimSpace(sender) == "" {
		sender = domain.AnonymousSender
	}
	if len(content) > maxContentLen {
		return nil, domain.ErrMessageTooLong
	}

	msg := &domain.Message{
		RoomID:  roomID,
		Sender:  sender,
		Content: content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("messageRepo.Create: %w", err)
	}
	return msg, nil
}

// History returns up to limit messages of a room in creation order.
func (s *MessageService) History(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.messageRepo.ListByRoom(ctx, roomID, limit)
}
