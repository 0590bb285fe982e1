package http

import (
	"time"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserItem struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserItem `json:"user"`
}

type CreateRoomRequest struct {
	Name     string `json:"name"`
	IsPublic *bool  `json:"isPublic"`
	Password string `json:"password"`
}

type RoomItem struct {
	RoomID      string          `json:"roomId"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Language    string          `json:"language"`
	IsPublic    bool            `json:"isPublic"`
	Live        bool            `json:"live"`
	LiveMembers []domain.Member `json:"liveMembers,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type JoinRoomRequest struct {
	Password string `json:"password"`
}

type JoinRoomResponse struct {
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

type ChatMessageItem struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type UploadFileRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

type FilesResponse struct {
	Items []domain.FileRecord `json:"items"`
}
