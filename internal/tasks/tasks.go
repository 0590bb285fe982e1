// Package tasks defines the background task types exchanged between
// the broker and the worker over the asynq queue.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSaveCode     = "room:save_code"
	TypeSaveLanguage = "room:save_language"
	TypeAppendChat   = "chat:append"
)

type SaveCodePayload struct {
	RoomID string `json:"room_id"`
	Code   string `json:"code"`
}

type SaveLanguagePayload struct {
	RoomID   string `json:"room_id"`
	Language string `json:"language"`
}

type AppendChatPayload struct {
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

func NewSaveCodeTask(roomID, code string) (*asynq.Task, error) {
	b, err := json.Marshal(SaveCodePayload{RoomID: roomID, Code: code})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSaveCode, b), nil
}

func NewSaveLanguageTask(roomID, language string) (*asynq.Task, error) {
	b, err := json.Marshal(SaveLanguagePayload{RoomID: roomID, Language: language})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSaveLanguage, b), nil
}

func NewAppendChatTask(roomID, senderID, senderName, text string) (*asynq.Task, error) {
	b, err := json.Marshal(AppendChatPayload{
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAppendChat, b), nil
}
