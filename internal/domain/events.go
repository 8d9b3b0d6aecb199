package domain

import "time"

// EventType tags the variants fanned out to room subscribers.
type EventType string

const (
	EventMessageCreated  EventType = "message.created"
	EventReactionUpdated EventType = "reaction.updated"
	EventPresenceJoined  EventType = "presence.joined"
	EventPresenceLeft    EventType = "presence.left"
)

// ReactionChange carries the authoritative reaction state of a message
// after a toggle, plus the toggle that produced it so optimistic client
// updates can be reconciled.
type ReactionChange struct {
	MessageID string      `json:"message_id"`
	Seq       int64       `json:"seq"`
	UserID    string      `json:"user_id"`
	Emoji     string      `json:"emoji"`
	Added     bool        `json:"added"`
	Reactions ReactionSet `json:"reactions"`
}

// Event is a single room event. Exactly one variant pointer is set,
// matching Type.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	RoomID    string          `json:"room_id"`
	Message   *ChatMessage    `json:"message,omitempty"`
	Reaction  *ReactionChange `json:"reaction,omitempty"`
	Presence  *PresenceChange `json:"presence,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationEvent is the fire-and-forget payload handed to the
// external notification service when a message lands in a room that has
// durable members besides the sender.
type NotificationEvent struct {
	EventID          string   `json:"event_id"`
	RoomID           string   `json:"room_id"`
	MessageID        string   `json:"message_id"`
	SenderID         string   `json:"sender_id"`
	SenderName       string   `json:"sender_name"`
	RecipientUserIDs []string `json:"recipient_user_ids"`
}
