package postgres

import (
	"context"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FileRepository struct {
	db *pgxpool.Pool
}

func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

// Upsert replaces the record atomically when the filename already
// exists in the room. The parent rooms row may not exist yet for
// rooms first seen over the realtime channel, so it is created first.
func (r *FileRepository) Upsert(ctx context.Context, roomID string, f *domain.FileRecord) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO rooms (room_id) VALUES ($1)
		ON CONFLICT (room_id) DO NOTHING`, roomID); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_files (room_id, filename, content, language, size, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, filename) DO UPDATE
		SET content = EXCLUDED.content,
		    language = EXCLUDED.language,
		    size = EXCLUDED.size,
		    uploaded_by = EXCLUDED.uploaded_by,
		    uploaded_at = EXCLUDED.uploaded_at`,
		roomID, f.Filename, f.Content, f.Language, f.Size, f.UploadedBy, f.UploadedAt)
	return err
}

func (r *FileRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.FileRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT filename, content, language, size, uploaded_by, uploaded_at
		FROM room_files
		WHERE room_id = $1
		ORDER BY uploaded_at ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FileRecord
	for rows.Next() {
		var f domain.FileRecord
		if err := rows.Scan(&f.Filename, &f.Content, &f.Language, &f.Size, &f.UploadedBy, &f.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FileRepository) Delete(ctx context.Context, roomID, filename string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM room_files WHERE room_id = $1 AND filename = $2`,
		roomID, filename)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}
