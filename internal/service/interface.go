package service

import (
	"context"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// DirectoryService resolves rooms to their static metadata.
type DirectoryService interface {
	// Resolve returns a room's metadata or ErrRoomNotFound. NotFound
	// is a normal outcome, not an infrastructure failure.
	Resolve(ctx context.Context, roomID string) (*domain.Room, error)
	Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error)
	List(ctx context.Context, page, pageSize int, category string) (*domain.ListRoomsResponse, error)
}

// SendRequest carries one message send.
type SendRequest struct {
	RoomID     string
	SenderID   string
	SenderName string
	Body       string
	Kind       domain.MessageKind
	MediaRef   string
}

// StreamService is the append-only, ordered message log of each room
// with live fan-out to subscribers.
type StreamService interface {
	// Send validates, assigns the next order key, durably records the
	// message and fans it out. It returns once the message is durable,
	// independent of fan-out completion.
	Send(ctx context.Context, req *SendRequest) (*domain.ChatMessage, error)

	// Subscribe delivers the backlog after sinceSeq once, in ascending
	// order, then live events with no gaps and no duplicates. Closing
	// the subscription fully unregisters it before Close returns.
	Subscribe(ctx context.Context, roomID string, sinceSeq int64) (*MessageSubscription, error)

	// React toggles a user's emoji reaction on a message.
	React(ctx context.Context, messageID, userID, emoji string) error

	// History returns a cursor page of a room's log.
	History(ctx context.Context, roomID string, sinceSeq int64, limit int) (*domain.HistoryPage, error)
}

// PresenceTracker maintains the ephemeral online set of each room.
type PresenceTracker interface {
	Join(ctx context.Context, roomID, userID string, role domain.PresenceRole) error
	Heartbeat(ctx context.Context, roomID, userID string) error
	Leave(ctx context.Context, roomID, userID string) error
	Online(ctx context.Context, roomID string) ([]domain.PresenceEntry, error)
	SubscribeOnline(ctx context.Context, roomID string) (*OnlineSubscription, error)
	OpenSession(ctx context.Context, roomID, userID string, role domain.PresenceRole) (*Session, error)

	// Run drives TTL expiry until ctx is cancelled.
	Run(ctx context.Context) error
}

// MembershipService is the durable opt-in membership table.
type MembershipService interface {
	// BecomeMember is idempotent: joining twice returns the record of
	// the first join.
	BecomeMember(ctx context.Context, roomID, userID string, role domain.PresenceRole) (*domain.Membership, error)
	// LeaveMembership is idempotent.
	LeaveMembership(ctx context.Context, roomID, userID string) error
	GetMembership(ctx context.Context, roomID, userID string) (*domain.Membership, error)
	ListMembers(ctx context.Context, roomID string) ([]domain.Membership, error)
	// IsMember is the boolean predicate used by notification gating
	// and comment-permission checks.
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}
