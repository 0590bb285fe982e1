package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
	"github.com/Vishalkumjan/realtime-code-collab/internal/domain"
	"github.com/Vishalkumjan/realtime-code-collab/internal/postgres"
	"github.com/Vishalkumjan/realtime-code-collab/internal/security"
)

type RoomService struct {
	roomRepo *postgres.RoomRepository
	registry *collab.Registry
}

func NewRoomService(roomRepo *postgres.RoomRepository, registry *collab.Registry) *RoomService {
	return &RoomService{roomRepo: roomRepo, registry: registry}
}

// RoomState is the durable room plus a view of its live session, when
// one exists.
type RoomState struct {
	Room        *domain.Room
	Live        bool
	LiveMembers []domain.Member
}

// CreateRoom creates a room owned by ownerID. Private rooms require a
// password, which is stored hashed.
func (s *RoomService) CreateRoom(ctx context.Context, name string, ownerID *int64, isPublic bool, password string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}

	room := &domain.Room{
		RoomID:   uuid.NewString(),
		Name:     name,
		OwnerID:  ownerID,
		Code:     domain.DefaultCode,
		Language: domain.DefaultLanguage,
		IsPublic: isPublic,
		Members:  []int64{},
	}
	if ownerID != nil {
		room.Members = []int64{*ownerID}
	}
	if !isPublic {
		hash, err := security.HashPassword(password)
		if err != nil {
			return nil, err
		}
		room.PasswordHash = &hash
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}
	return room, nil
}

// GetRoom returns the durable room merged with its live session view.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*RoomState, error) {
	room, err := s.roomRepo.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	state := &RoomState{Room: room}
	if sess := s.registry.Get(roomID); sess != nil {
		state.Live = true
		state.LiveMembers = sess.Members()
		// the live buffer is fresher than the persisted one
		state.Room.Code = sess.Code()
		state.Room.Language = sess.Language()
	}
	return state, nil
}

// JoinRoom adds the user to the durable roster after checking room
// access. Live presence is handled separately over the socket.
func (s *RoomService) JoinRoom(ctx context.Context, roomID string, userID int64, password string) error {
	room, err := s.roomRepo.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsPublic {
		if room.PasswordHash == nil {
			return domain.ErrRoomNotPublic
		}
		if err := security.ComparePassword(*room.PasswordHash, password); err != nil {
			return domain.ErrWrongPassword
		}
	}

	return s.roomRepo.AddRosterMember(ctx, roomID, userID)
}

// DeleteRoom removes the durable record. The live session, if any,
// keeps running until its members leave.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string, userID int64) error {
	room, err := s.roomRepo.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID == nil || *room.OwnerID != userID {
		return domain.ErrInvalidArgument
	}
	return s.roomRepo.Delete(ctx, roomID)
}
