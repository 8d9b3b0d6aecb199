package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []*pubsub.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*pubsub.Event, len(p.events))
	copy(out, p.events)
	return out
}

func newNotifierEnv(t *testing.T) (*Notifier, repository.MembershipRepository, *capturePublisher) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&repository.MembershipModel{}))

	members := repository.NewGormMembershipRepository(db)
	bus := &capturePublisher{}
	return New(members, bus, "test-instance"), members, bus
}

func message(sender string) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:         "m1",
		RoomID:     "r1",
		Seq:        1,
		SenderID:   sender,
		SenderName: sender,
		Body:       "hello",
		Kind:       domain.KindText,
	}
}

func TestNotifierSkipsWithoutMembers(t *testing.T) {
	notifier, _, bus := newNotifierEnv(t)

	notifier.MessageCreated(context.Background(), message("alice"))

	// Give the dispatch goroutine a moment; nothing must be published.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, bus.published())
}

func TestNotifierSkipsWhenOnlySenderIsMember(t *testing.T) {
	notifier, members, bus := newNotifierEnv(t)
	ctx := context.Background()

	_, err := members.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: "alice", Role: domain.RoleMember})
	require.NoError(t, err)

	notifier.MessageCreated(ctx, message("alice"))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, bus.published())
}

func TestNotifierDispatchesToOtherMembers(t *testing.T) {
	notifier, members, bus := newNotifierEnv(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "carol"} {
		_, err := members.Upsert(ctx, &domain.Membership{RoomID: "r1", UserID: user, Role: domain.RoleMember})
		require.NoError(t, err)
	}

	notifier.MessageCreated(ctx, message("alice"))

	require.Eventually(t, func() bool {
		return len(bus.published()) == 1
	}, time.Second, 10*time.Millisecond)

	ev := bus.published()[0]
	assert.Equal(t, pubsub.TypeNotificationDispatch, ev.Type)

	var payload domain.NotificationEvent
	require.NoError(t, ev.UnmarshalPayload(&payload))
	assert.Equal(t, "m1", payload.MessageID)
	assert.Equal(t, "alice", payload.SenderID)
	assert.ElementsMatch(t, []string{"bob", "carol"}, payload.RecipientUserIDs)
	assert.NotEmpty(t, payload.EventID)
}

func TestNotifierIgnoresNonMemberPresence(t *testing.T) {
	// Presence is tracked elsewhere; only the durable membership table
	// feeds dispatch, so a room full of watchers with no members stays
	// silent.
	notifier, members, bus := newNotifierEnv(t)
	ctx := context.Background()

	_, err := members.Upsert(ctx, &domain.Membership{RoomID: "other-room", UserID: "bob", Role: domain.RoleMember})
	require.NoError(t, err)

	notifier.MessageCreated(ctx, message("alice"))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, bus.published())
}
