package hub

import (
	"sync"

	"github.com/google/uuid"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// Subscription is one live listener on a room's event fan-out.
//
// Events() is closed when the subscription is cancelled or when the hub
// evicts it for not keeping up. An evicted consumer re-subscribes from
// its last delivered cursor, so eviction never loses messages, only the
// live channel.
type Subscription struct {
	id     string
	roomID string
	ch     chan *domain.Event
	hub    *Hub
	once   sync.Once
}

// Events returns the live event channel.
func (s *Subscription) Events() <-chan *domain.Event {
	return s.ch
}

// Close unregisters the subscription. The registration is fully removed
// before Close returns; no event is delivered afterwards. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

// Hub is the per-room fan-out registry. Every publish is delivered to
// each current subscriber of the room, in publish order.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]map[string]*Subscription
	bufferSize int
}

// NewHub creates a hub. bufferSize is the per-subscriber channel depth;
// a subscriber whose buffer is full is evicted rather than allowed to
// stall the room.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		rooms:      make(map[string]map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a listener on a room.
func (h *Hub) Subscribe(roomID string) *Subscription {
	sub := &Subscription{
		id:     uuid.New().String(),
		roomID: roomID,
		ch:     make(chan *domain.Event, h.bufferSize),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Subscription)
		h.rooms[roomID] = room
	}
	room[sub.id] = sub
	return sub
}

// Publish delivers an event to every subscriber of its room. Sends and
// channel closes both happen under the hub lock, so subscribers never
// see a send after close.
func (h *Hub) Publish(ev *domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[ev.RoomID]
	if !ok {
		return
	}

	for _, sub := range room {
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is not draining its buffer; cut it loose.
			log.L().Warn().
				Str(log.FieldRoomID, ev.RoomID).
				Str("subscription_id", sub.id).
				Msg("evicting slow subscriber")
			h.removeLocked(sub)
		}
	}
}

// SubscriberCount returns the number of live subscriptions on a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeLocked(sub *Subscription) {
	if room, ok := h.rooms[sub.roomID]; ok {
		delete(room, sub.id)
		if len(room) == 0 {
			delete(h.rooms, sub.roomID)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}
