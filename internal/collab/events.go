package collab

import (
	"encoding/json"
	"time"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
)

// Inbound event names. The dispatch table at the gateway maps each of
// these to a broker handler.
const (
	EvtJoinRoom         = "join-room"
	EvtLeaveRoom        = "leave-room"
	EvtCodeChange       = "code-change"
	EvtLanguageChange   = "language-change"
	EvtSendMessage      = "send-message"
	EvtUserTyping       = "user-typing"
	EvtFileUploaded     = "file-uploaded"
	EvtFileDeleted      = "file-deleted"
	EvtLoadFileToEditor = "load-file-to-editor"
)

// Outbound-only event names.
const (
	EvtLoadCode       = "load-code"
	EvtUsersUpdate    = "users-update"
	EvtReceiveMessage = "receive-message"
)

// Message is the outbound wire envelope.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Envelope is the inbound wire envelope; Data stays raw until the
// per-event handler decodes it.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

type LeavePayload struct {
	RoomID string `json:"roomId"`
}

type CodePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

// CodeBroadcast carries the sender's connection id so clients can
// ignore their own edits.
type CodeBroadcast struct {
	Code   string `json:"code"`
	Sender string `json:"sender"`
}

type LanguagePayload struct {
	RoomID   string `json:"roomId"`
	Language string `json:"language"`
}

type LanguageBroadcast struct {
	Language string `json:"language"`
}

type ChatPayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ChatBroadcast struct {
	SenderID   string    `json:"senderId,omitempty"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type TypingBroadcast struct {
	Username string `json:"username"`
}

// SnapshotPayload is the load-code message sent to a joining
// connection only.
type SnapshotPayload struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type FileUploadedPayload struct {
	RoomID string            `json:"roomId"`
	File   domain.FileRecord `json:"file"`
}

type FileDeletedPayload struct {
	RoomID   string `json:"roomId"`
	Filename string `json:"filename"`
}

type LoadFilePayload struct {
	RoomID   string `json:"roomId"`
	Content  string `json:"content"`
	Language string `json:"language"`
}
