// Package durability bridges live room sessions to the database.
// Reads are synchronous; writes are fire-and-forget through the task
// queue so a slow or dead database never stalls a broadcast.
package durability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/tasks"
)

type Bridge struct {
	rooms  *postgres.RoomRepository
	client *asynq.Client
}

func NewBridge(rooms *postgres.RoomRepository, client *asynq.Client) *Bridge {
	return &Bridge{rooms: rooms, client: client}
}

// LoadSnapshot returns the stored code and language for the room, or
// nil when the room has no row yet. Used once per session, on the
// first join.
func (b *Bridge) LoadSnapshot(ctx context.Context, roomID string) (*collab.Snapshot, error) {
	room, err := b.rooms.Get(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collab.Snapshot{Code: room.Code, Language: room.Language}, nil
}

func (b *Bridge) SaveSnapshot(roomID, code string) {
	b.enqueue(tasks.NewSaveCodeTask(roomID, code))
}

func (b *Bridge) SaveLanguage(roomID, language string) {
	b.enqueue(tasks.NewSaveLanguageTask(roomID, language))
}

func (b *Bridge) AppendMessage(roomID, senderID, senderName, text string) {
	b.enqueue(tasks.NewAppendChatTask(roomID, senderID, senderName, text))
}

// enqueue logs and swallows failures: live collaboration continues on
// the in-memory state even when the queue is down.
func (b *Bridge) enqueue(t *asynq.Task, err error) {
	if err != nil {
		slog.Error("encode durability task", "err", err)
		return
	}
	if _, err := b.client.Enqueue(t); err != nil {
		slog.Error("enqueue durability task", "task_type", t.Type(), "err", err)
	}
}
