package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/tasks"
)

// Handlers owns the repositories the background tasks write through.
type Handlers struct {
	rooms    *postgres.RoomRepository
	messages *postgres.MessageRepository
}

func NewHandlers(rooms *postgres.RoomRepository, messages *postgres.MessageRepository) *Handlers {
	return &Handlers{rooms: rooms, messages: messages}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(tasks.TypeSaveCode, h.HandleSaveCode)
	mux.HandleFunc(tasks.TypeSaveLanguage, h.HandleSaveLanguage)
	mux.HandleFunc(tasks.TypeAppendChat, h.HandleAppendChat)
}

func (h *Handlers) HandleSaveCode(ctx context.Context, t *asynq.Task) error {
	var p tasks.SaveCodePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := h.rooms.SaveCode(ctx, p.RoomID, p.Code); err != nil {
		return fmt.Errorf("save code for room %s: %w", p.RoomID, err)
	}
	slog.Debug("code snapshot persisted", "room", p.RoomID, "bytes", len(p.Code))
	return nil
}

func (h *Handlers) HandleSaveLanguage(ctx context.Context, t *asynq.Task) error {
	var p tasks.SaveLanguagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := h.rooms.SaveLanguage(ctx, p.RoomID, p.Language); err != nil {
		return fmt.Errorf("save language for room %s: %w", p.RoomID, err)
	}
	return nil
}

func (h *Handlers) HandleAppendChat(ctx context.Context, t *asynq.Task) error {
	var p tasks.AppendChatPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if _, err := h.messages.Append(ctx, p.RoomID, p.SenderID, p.SenderName, p.Text); err != nil {
		return fmt.Errorf("append chat for room %s: %w", p.RoomID, err)
	}
	return nil
}
