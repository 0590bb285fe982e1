package domain

import "time"

const (
	DefaultCode     = "// Start coding...\n"
	DefaultLanguage = "javascript"
)

// Room is the durable record behind a live session. Members is the
// account-level roster, distinct from live presence in the broker.
type Room struct {
	RoomID       string    `db:"room_id"`
	Name         string    `db:"name"`
	OwnerID      *int64    `db:"owner_id"`
	Code         string    `db:"code"`
	Language     string    `db:"language"`
	IsPublic     bool      `db:"is_public"`
	PasswordHash *string   `db:"password_hash"`
	Members      []int64   `db:"members"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// FileRecord is an uploaded file scoped to one room, keyed by filename.
type FileRecord struct {
	Filename   string    `db:"filename" json:"filename"`
	Content    string    `db:"content" json:"content"`
	Language   string    `db:"language" json:"language"`
	Size       int64     `db:"size" json:"size"`
	UploadedBy string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}
