package service

import (
	"context"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
)

// ChatService serves the durable chat log. Writes go through the
// broker's durability bridge; this is the read side.
type ChatService struct {
	messageRepo *postgres.MessageRepository
}

func NewChatService(messageRepo *postgres.MessageRepository) *ChatService {
	return &ChatService{messageRepo: messageRepo}
}

func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	return s.messageRepo.History(ctx, roomID, after, limit)
}
