package service

import (
	"context"
	"strings"
	"time"

	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
)

// FileService handles room file uploads over REST and mirrors every
// change into the live session so connected editors stay in sync.
type FileService struct {
	fileRepo *postgres.FileRepository
	broker   *collab.Broker
	maxSize  int64
}

func NewFileService(fileRepo *postgres.FileRepository, broker *collab.Broker, maxSize int64) *FileService {
	return &FileService{fileRepo: fileRepo, broker: broker, maxSize: maxSize}
}

func (s *FileService) Upload(ctx context.Context, roomID string, f domain.FileRecord) (*domain.FileRecord, error) {
	f.Filename = strings.TrimSpace(f.Filename)
	if roomID == "" || f.Filename == "" {
		return nil, domain.ErrInvalidArgument
	}
	f.Size = int64(len(f.Content))
	if f.Size > s.maxSize {
		return nil, domain.ErrFileTooLarge
	}
	f.UploadedAt = time.Now().UTC()

	if err := s.fileRepo.Upsert(ctx, roomID, &f); err != nil {
		return nil, err
	}
	s.broker.MirrorFileUpserted(roomID, f)
	return &f, nil
}

func (s *FileService) List(ctx context.Context, roomID string) ([]domain.FileRecord, error) {
	return s.fileRepo.ListByRoom(ctx, roomID)
}

func (s *FileService) Delete(ctx context.Context, roomID, filename string) error {
	if err := s.fileRepo.Delete(ctx, roomID, filename); err != nil {
		return err
	}
	s.broker.MirrorFileRemoved(roomID, filename)
	return nil
}
