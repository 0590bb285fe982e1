package postgres

import (
	"context"
	"errors"

	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (room_id, name, owner_id, code, language, is_public, password_hash, members)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		room.RoomID, room.Name, room.OwnerID, room.Code, room.Language,
		room.IsPublic, room.PasswordHash, room.Members,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrRoomExists
		}
		return err
	}
	return nil
}

func (r *RoomRepository) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	var rm domain.Room
	query := `
		SELECT room_id, name, owner_id, code, language, is_public, password_hash, members, created_at, updated_at
		FROM rooms WHERE room_id=$1`
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&rm.RoomID, &rm.Name, &rm.OwnerID, &rm.Code, &rm.Language,
		&rm.IsPublic, &rm.PasswordHash, &rm.Members, &rm.CreatedAt, &rm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

// SaveCode upserts the code buffer for a room. Rooms first seen over
// the realtime channel may have no row yet, hence the upsert.
func (r *RoomRepository) SaveCode(ctx context.Context, roomID, code string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (room_id, code)
		VALUES ($1, $2)
		ON CONFLICT (room_id) DO UPDATE
		SET code = EXCLUDED.code, updated_at = now()`,
		roomID, code)
	return err
}

func (r *RoomRepository) SaveLanguage(ctx context.Context, roomID, language string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (room_id, language)
		VALUES ($1, $2)
		ON CONFLICT (room_id) DO UPDATE
		SET language = EXCLUDED.language, updated_at = now()`,
		roomID, language)
	return err
}

// AddRosterMember records account-level membership, distinct from live
// presence. Duplicate adds are no-ops.
func (r *RoomRepository) AddRosterMember(ctx context.Context, roomID string, userID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE rooms
		SET members = array_append(members, $2), updated_at = now()
		WHERE room_id = $1 AND NOT ($2 = ANY(members))`,
		roomID, userID)
	return err
}

func (r *RoomRepository) Delete(ctx context.Context, roomID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM rooms WHERE room_id=$1`, roomID)
	return err
}
