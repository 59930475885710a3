package ws

import (
	"time"

	"github.com/wavechat/chat-service/internal/domain"
)

// InboundFrame is what a client sends over the socket. Both fields are
// optional: a missing sender is defaulted downstream, missing content
// becomes the empty string.
type InboundFrame struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// MessageFrame is the persisted message as fanned out to subscribers.
type MessageFrame struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorFrame is sent only to the connection whose own frame failed to
// persist; other subscribers never see it.
type ErrorFrame struct {
	Error string `json:"error"`
}

func NewMessageFrame(m *domain.Message) MessageFrame {
	return MessageFrame{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Sender:    m.Sender,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
