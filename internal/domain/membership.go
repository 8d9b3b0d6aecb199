package domain

import "time"

// Membership is the durable opt-in record for a (room, user) pair. It
// persists until an explicit leave and is independent of presence.
type Membership struct {
	RoomID   string       `json:"room_id"`
	UserID   string       `json:"user_id"`
	Role     PresenceRole `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`
}
