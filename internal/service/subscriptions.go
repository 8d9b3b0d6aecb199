package service

import (
	"sync"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
)

// MessageSubscription delivers the message history after a cursor
// followed by live room events, with no gap and no duplication between
// the two. Events() is closed when the subscriber falls too far behind
// or Close is called; consumers resume from their last seen sequence.
type MessageSubscription struct {
	backlog []*domain.ChatMessage
	events  chan *domain.Event
	sub     *hub.Subscription
	closing chan struct{}
	once    sync.Once
	done    chan struct{}
}

// Backlog returns the persisted messages after the subscription cursor,
// in sequence order. It is populated once at subscribe time.
func (s *MessageSubscription) Backlog() []*domain.ChatMessage {
	return s.backlog
}

// Events returns the live event channel. The channel is closed when the
// subscription ends.
func (s *MessageSubscription) Events() <-chan *domain.Event {
	return s.events
}

func (s *MessageSubscription) Close() {
	s.once.Do(func() { close(s.closing) })
	s.sub.Close()
	<-s.done
}

// pump forwards message and reaction events to the consumer, dropping
// message events at or below the backlog horizon so a message raced
// between the backlog read and hub registration is not delivered twice.
func (s *MessageSubscription) pump(horizon int64) {
	defer close(s.done)
	defer close(s.events)
	for ev := range s.sub.Events() {
		switch ev.Type {
		case domain.EventMessageCreated:
			if ev.Message != nil && ev.Message.Seq <= horizon {
				continue
			}
		case domain.EventReactionUpdated:
		default:
			continue
		}
		select {
		case s.events <- ev:
		case <-s.closing:
			return
		}
	}
}

// OnlineSubscription delivers a snapshot of the users currently online
// in a room followed by the stream of presence changes.
type OnlineSubscription struct {
	snapshot []domain.PresenceEntry
	changes  chan domain.PresenceChange
	sub      *hub.Subscription
	closing  chan struct{}
	once     sync.Once
	done     chan struct{}
}

// Snapshot returns the online set captured at subscribe time.
func (s *OnlineSubscription) Snapshot() []domain.PresenceEntry {
	return s.snapshot
}

// Changes returns the presence change channel. The channel is closed
// when the subscription ends.
func (s *OnlineSubscription) Changes() <-chan domain.PresenceChange {
	return s.changes
}

func (s *OnlineSubscription) Close() {
	s.once.Do(func() { close(s.closing) })
	s.sub.Close()
	<-s.done
}

func (s *OnlineSubscription) pump() {
	defer close(s.done)
	defer close(s.changes)
	for ev := range s.sub.Events() {
		if ev.Presence == nil {
			continue
		}
		select {
		case s.changes <- *ev.Presence:
		case <-s.closing:
			return
		}
	}
}
