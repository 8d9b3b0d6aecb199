package domain

import (
	"sort"
	"time"
)

// MessageKind is the closed set of message variants.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
	KindMedia  MessageKind = "media"
)

// ValidKind reports whether k is one of the known message kinds.
func ValidKind(k MessageKind) bool {
	switch k {
	case KindText, KindSystem, KindMedia:
		return true
	}
	return false
}

// ReactionSet maps an emoji to the sorted set of user ids that reacted
// with it. Empty emoji buckets are never kept.
type ReactionSet map[string][]string

// Toggle adds the reaction if absent and removes it if present. It
// returns true when the reaction is present after the call.
func (r ReactionSet) Toggle(emoji, userID string) bool {
	users := r[emoji]
	for i, u := range users {
		if u == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(r, emoji)
			} else {
				r[emoji] = users
			}
			return false
		}
	}

	users = append(users, userID)
	sort.Strings(users)
	r[emoji] = users
	return true
}

// Has reports whether userID has reacted with emoji.
func (r ReactionSet) Has(emoji, userID string) bool {
	for _, u := range r[emoji] {
		if u == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the set.
func (r ReactionSet) Clone() ReactionSet {
	out := make(ReactionSet, len(r))
	for emoji, users := range r {
		cp := make([]string, len(users))
		copy(cp, users)
		out[emoji] = cp
	}
	return out
}

// ChatMessage is one entry of a room's ordered message log.
//
// Messages within a room are totally ordered by (CreatedAt, Seq). Seq is
// a per-room counter assigned at commit time, strictly increasing, and is
// the cursor subscribers resume from. The order is stable once assigned.
type ChatMessage struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	Seq        int64       `json:"seq"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Body       string      `json:"body"`
	Kind       MessageKind `json:"kind"`
	MediaRef   string      `json:"media_ref,omitempty"`
	Reactions  ReactionSet `json:"reactions,omitempty"`
	Edited     bool        `json:"edited"`
	CreatedAt  time.Time   `json:"created_at"`
}

// HistoryPage is a cursor-paginated slice of a room's message log.
type HistoryPage struct {
	Messages   []ChatMessage `json:"messages"`
	NextCursor int64         `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}
