package store

import (
	"context"
	"sync"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// MemoryStore implements PresenceStore in process memory. It is the
// single-node backend; rooms are naturally partitioned by map key.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string]domain.PresenceEntry
}

// NewMemoryStore creates an empty in-memory presence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]map[string]domain.PresenceEntry),
	}
}

func (s *MemoryStore) Upsert(_ context.Context, entry domain.PresenceEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[entry.RoomID]
	if !ok {
		room = make(map[string]domain.PresenceEntry)
		s.rooms[entry.RoomID] = room
	}

	_, existed := room[entry.UserID]
	room[entry.UserID] = entry
	return !existed, nil
}

func (s *MemoryStore) Touch(_ context.Context, roomID, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, nil
	}
	entry, ok := room[userID]
	if !ok {
		return false, nil
	}

	entry.LastHeartbeat = at
	room[userID] = entry
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false, nil
	}
	if _, ok := room[userID]; !ok {
		return false, nil
	}

	delete(room, userID)
	if len(room) == 0 {
		delete(s.rooms, roomID)
	}
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, roomID string) ([]domain.PresenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.rooms[roomID]
	entries := make([]domain.PresenceEntry, 0, len(room))
	for _, entry := range room {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *MemoryStore) Rooms(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) ExpireBefore(_ context.Context, roomID string, cutoff time.Time) ([]domain.PresenceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}

	var expired []domain.PresenceEntry
	for userID, entry := range room {
		if entry.LastHeartbeat.Before(cutoff) {
			expired = append(expired, entry)
			delete(room, userID)
		}
	}
	if len(room) == 0 {
		delete(s.rooms, roomID)
	}
	return expired, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
