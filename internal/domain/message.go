package domain

import "time"

// ChatMessage is one entry of the append-only per-room chat log.
// SenderID is the live connection id of the sender, not an account id.
type ChatMessage struct {
	ID         string    `db:"id"`
	RoomID     string    `db:"room_id"`
	SenderID   string    `db:"sender_id"`
	SenderName string    `db:"sender_name"`
	Text       string    `db:"text"`
	CreatedAt  time.Time `db:"created_at"`
}
