package pubsub

import "fmt"

// Channel naming conventions for the chatroom engine.
const (
	// Per-room fan-out of message, reaction and presence events
	// between engine instances.
	channelRoomEvents = "chat:room:%s:events"

	// PatternRoomEvents matches every room's event channel.
	PatternRoomEvents = "chat:room:*:events"

	// ChannelNotifications carries fire-and-forget notification
	// dispatch events for the external notification service.
	ChannelNotifications = "notifications:dispatch"
)

// RoomEventsChannel returns the bus channel for a room's events.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(channelRoomEvents, roomID)
}
