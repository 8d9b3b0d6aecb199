package store

import (
	"context"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// PresenceStore is the ephemeral table of (room, user) heartbeats.
//
// Mutations report the transition they caused so the tracker can emit
// add/remove events only on real state changes.
type PresenceStore interface {
	// Upsert adds or refreshes an entry. created is true when the user
	// was not present before the call.
	Upsert(ctx context.Context, entry domain.PresenceEntry) (created bool, err error)

	// Touch refreshes the heartbeat of an existing entry. ok is false
	// when the entry does not exist (already expired or never joined).
	Touch(ctx context.Context, roomID, userID string, at time.Time) (ok bool, err error)

	// Remove deletes an entry. removed is false when it was not present.
	Remove(ctx context.Context, roomID, userID string) (removed bool, err error)

	// List returns the current entries of a room.
	List(ctx context.Context, roomID string) ([]domain.PresenceEntry, error)

	// Rooms returns the ids of rooms that currently have entries.
	Rooms(ctx context.Context) ([]string, error)

	// ExpireBefore removes the room's entries whose heartbeat is older
	// than cutoff and returns the removed entries. Scoped to one room
	// so the caller can serialize it with the room's other mutations.
	ExpireBefore(ctx context.Context, roomID string, cutoff time.Time) ([]domain.PresenceEntry, error)

	Close() error
}
