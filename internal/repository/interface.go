package repository

import (
	"context"
	"errors"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrMembershipNotFound = errors.New("membership not found")
)

// RoomRepository is the durable store of room metadata.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context, page, pageSize int, category string) ([]domain.Room, int, error)
}

// MessageRepository is the append-only, per-room-ordered message log.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)
	ListSince(ctx context.Context, roomID string, sinceSeq int64, limit int) ([]domain.ChatMessage, error)
	MaxSeq(ctx context.Context, roomID string) (int64, error)
	UpdateReactions(ctx context.Context, id string, reactions domain.ReactionSet) error
}

// MembershipRepository is the durable (room, user) membership table.
type MembershipRepository interface {
	Upsert(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	Delete(ctx context.Context, roomID, userID string) error
	Get(ctx context.Context, roomID, userID string) (*domain.Membership, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Membership, error)
}
