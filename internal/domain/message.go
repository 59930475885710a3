package domain

import "time"

// AnonymousSender is substituted when an inbound payload carries no sender.
const AnonymousSender = "Anon"

type Message struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}
