package service

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/internal/store"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

type presenceTracker struct {
	store         store.PresenceStore
	rooms         DirectoryService
	publisher     *eventPublisher
	ttl           time.Duration
	sweepInterval time.Duration
	roomMu        *keyedMutex
	now           func() time.Time
}

// NewPresenceTracker builds the per-room online-set tracker. Entries
// not refreshed within ttl are removed by Run's sweeper.
func NewPresenceTracker(
	presenceStore store.PresenceStore,
	rooms DirectoryService,
	h *hub.Hub,
	bus pubsub.Publisher,
	origin string,
	ttl, sweepInterval time.Duration,
) PresenceTracker {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	if sweepInterval <= 0 {
		sweepInterval = ttl / 4
	}
	return &presenceTracker{
		store:         presenceStore,
		rooms:         rooms,
		publisher:     &eventPublisher{hub: h, bus: bus, origin: origin},
		ttl:           ttl,
		sweepInterval: sweepInterval,
		roomMu:        newKeyedMutex(),
		now:           time.Now,
	}
}

func (t *presenceTracker) Join(ctx context.Context, roomID, userID string, role domain.PresenceRole) error {
	if _, err := t.rooms.Resolve(ctx, roomID); err != nil {
		return err
	}
	if role == "" {
		role = domain.RoleGuest
	}

	unlock := t.roomMu.Lock(roomID)
	defer unlock()

	entry := domain.PresenceEntry{
		RoomID:        roomID,
		UserID:        userID,
		Role:          role,
		LastHeartbeat: t.now().UTC(),
	}
	created, err := t.store.Upsert(ctx, entry)
	if err != nil {
		return err
	}
	if created {
		t.publishChange(ctx, domain.PresenceAdded, entry)
	}
	return nil
}

func (t *presenceTracker) Heartbeat(ctx context.Context, roomID, userID string) error {
	unlock := t.roomMu.Lock(roomID)
	defer unlock()

	now := t.now().UTC()
	ok, err := t.store.Touch(ctx, roomID, userID, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// The entry already expired; the heartbeat proves the user is still
	// there, so bring them back online.
	entry := domain.PresenceEntry{
		RoomID:        roomID,
		UserID:        userID,
		Role:          domain.RoleGuest,
		LastHeartbeat: now,
	}
	created, err := t.store.Upsert(ctx, entry)
	if err != nil {
		return err
	}
	if created {
		t.publishChange(ctx, domain.PresenceAdded, entry)
	}
	return nil
}

func (t *presenceTracker) Leave(ctx context.Context, roomID, userID string) error {
	unlock := t.roomMu.Lock(roomID)
	defer unlock()

	entries, err := t.store.List(ctx, roomID)
	if err != nil {
		return err
	}
	var entry domain.PresenceEntry
	for _, e := range entries {
		if e.UserID == userID {
			entry = e
			break
		}
	}

	removed, err := t.store.Remove(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if removed {
		entry.RoomID = roomID
		entry.UserID = userID
		t.publishChange(ctx, domain.PresenceRemoved, entry)
	}
	return nil
}

func (t *presenceTracker) Online(ctx context.Context, roomID string) ([]domain.PresenceEntry, error) {
	if _, err := t.rooms.Resolve(ctx, roomID); err != nil {
		return nil, err
	}
	return t.store.List(ctx, roomID)
}

func (t *presenceTracker) SubscribeOnline(ctx context.Context, roomID string) (*OnlineSubscription, error) {
	if _, err := t.rooms.Resolve(ctx, roomID); err != nil {
		return nil, err
	}

	// Take the room lock before registering so an in-flight change
	// either lands in the snapshot or arrives on the channel, never
	// both.
	unlock := t.roomMu.Lock(roomID)
	hubSub := t.publisher.hub.Subscribe(roomID)
	snapshot, err := t.store.List(ctx, roomID)
	unlock()
	if err != nil {
		hubSub.Close()
		return nil, err
	}

	sub := &OnlineSubscription{
		snapshot: snapshot,
		changes:  make(chan domain.PresenceChange),
		sub:      hubSub,
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

func (t *presenceTracker) OpenSession(ctx context.Context, roomID, userID string, role domain.PresenceRole) (*Session, error) {
	if err := t.Join(ctx, roomID, userID, role); err != nil {
		return nil, err
	}
	return &Session{
		id:      ulid.MustNew(ulid.Timestamp(t.now()), rand.Reader).String(),
		roomID:  roomID,
		userID:  userID,
		tracker: t,
	}, nil
}

// Run drives TTL expiry until ctx is cancelled.
func (t *presenceTracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *presenceTracker) sweep(ctx context.Context) {
	cutoff := t.now().UTC().Add(-t.ttl)
	roomIDs, err := t.store.Rooms(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("presence sweep failed")
		return
	}
	for _, roomID := range roomIDs {
		// Expire and publish under the room lock so a concurrent
		// heartbeat cannot re-add the user between the two.
		unlock := t.roomMu.Lock(roomID)
		expired, err := t.store.ExpireBefore(ctx, roomID, cutoff)
		if err != nil {
			unlock()
			log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("presence sweep failed")
			continue
		}
		for _, entry := range expired {
			t.publishChange(ctx, domain.PresenceRemoved, entry)
		}
		unlock()
	}
}

func (t *presenceTracker) publishChange(ctx context.Context, kind domain.PresenceChangeKind, entry domain.PresenceEntry) {
	eventType := domain.EventPresenceJoined
	if kind == domain.PresenceRemoved {
		eventType = domain.EventPresenceLeft
	}
	t.publisher.publish(ctx, &domain.Event{
		Type:   eventType,
		RoomID: entry.RoomID,
		Presence: &domain.PresenceChange{
			Kind:  kind,
			Entry: entry,
			At:    t.now().UTC(),
		},
	})
}

// Session is an explicit presence handle. Close releases the presence
// entry exactly once; the TTL covers the paths where Close never runs.
type Session struct {
	id      string
	roomID  string
	userID  string
	tracker *presenceTracker
	once    sync.Once
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// RoomID returns the room the session is attached to.
func (s *Session) RoomID() string { return s.roomID }

// UserID returns the user the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Heartbeat refreshes the session's presence entry.
func (s *Session) Heartbeat(ctx context.Context) error {
	return s.tracker.Heartbeat(ctx, s.roomID, s.userID)
}

// Close removes the presence entry. Safe to call from every exit path;
// only the first call takes effect.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.tracker.Leave(ctx, s.roomID, s.userID)
	})
	return err
}
