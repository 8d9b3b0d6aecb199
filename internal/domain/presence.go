package domain

import "time"

// PresenceRole is the display role attached to a presence entry.
type PresenceRole string

const (
	RoleMember PresenceRole = "member"
	RoleGuest  PresenceRole = "guest"
)

// PresenceEntry records that a user is actively viewing a room.
//
// Entries are ephemeral: existence implies a fresh heartbeat, and it says
// nothing about durable membership.
type PresenceEntry struct {
	RoomID        string       `json:"room_id"`
	UserID        string       `json:"user_id"`
	Role          PresenceRole `json:"role"`
	LastHeartbeat time.Time    `json:"last_heartbeat"`
}

// PresenceChangeKind distinguishes add and remove transitions.
type PresenceChangeKind string

const (
	PresenceAdded   PresenceChangeKind = "added"
	PresenceRemoved PresenceChangeKind = "removed"
)

// PresenceChange is one transition of a room's online set. Removals
// caused by TTL expiry look identical to explicit leaves.
type PresenceChange struct {
	Kind  PresenceChangeKind `json:"kind"`
	Entry PresenceEntry      `json:"entry"`
	At    time.Time          `json:"at"`
}
