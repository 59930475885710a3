package postgres

import (
	"context"

	"github.com/wavechat/chat-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists the message and fills in the store-assigned id and
// creation timestamp. The insert is atomic: the id is authoritative once
// Scan returns without error.
func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, m.RoomID, m.Sender, m.Content)

	return row.Scan(&m.ID, &m.CreatedAt)
}

// ListByRoom returns up to limit messages of a room, oldest first.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, sender, content, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
