package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

func entry(roomID, userID string, at time.Time) domain.PresenceEntry {
	return domain.PresenceEntry{
		RoomID:        roomID,
		UserID:        userID,
		Role:          domain.RoleGuest,
		LastHeartbeat: at,
	}
}

func TestMemoryStoreUpsertReportsCreation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	created, err := s.Upsert(ctx, entry("r1", "u1", now))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Upsert(ctx, entry("r1", "u1", now.Add(time.Second)))
	require.NoError(t, err)
	assert.False(t, created)

	entries, err := s.List(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, now.Add(time.Second), entries[0].LastHeartbeat)
}

func TestMemoryStoreTouch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	ok, err := s.Touch(ctx, "r1", "u1", now)
	require.NoError(t, err)
	assert.False(t, ok, "touch of absent entry must not create it")

	_, err = s.Upsert(ctx, entry("r1", "u1", now))
	require.NoError(t, err)

	ok, err = s.Touch(ctx, "r1", "u1", now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := s.List(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, now.Add(time.Minute), entries[0].LastHeartbeat)
}

func TestMemoryStoreRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	removed, err := s.Remove(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Upsert(ctx, entry("r1", "u1", time.Now()))
	require.NoError(t, err)

	removed, err = s.Remove(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStoreExpireBefore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Upsert(ctx, entry("r1", "stale", now.Add(-time.Minute)))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, entry("r1", "fresh", now))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, entry("r2", "stale2", now.Add(-2*time.Minute)))
	require.NoError(t, err)

	cutoff := now.Add(-30 * time.Second)

	rooms, err := s.Rooms(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2"}, rooms)

	expired, err := s.ExpireBefore(ctx, "r1", cutoff)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].UserID)

	expired, err = s.ExpireBefore(ctx, "r2", cutoff)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "stale2", expired[0].UserID)

	remaining, err := s.List(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].UserID)

	empty, err := s.List(ctx, "r2")
	require.NoError(t, err)
	assert.Empty(t, empty)

	// The emptied room disappears from the room listing.
	rooms, err = s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, rooms)
}
