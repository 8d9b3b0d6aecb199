package service

import (
	"context"
	"sync"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
)

// roomSequencer hands out the per-room sequence numbers that define
// message order. Sequences are dense per room and survive restarts by
// initializing from the highest persisted sequence. Timestamps are
// clamped to be monotonic per room so that the (created_at, seq) order
// key never runs against the seq order even when the wall clock steps
// backwards.
type roomSequencer struct {
	repo repository.MessageRepository
	now  func() time.Time

	mu    sync.Mutex
	rooms map[string]*roomSequence
}

type roomSequence struct {
	mu       sync.Mutex
	loaded   bool
	lastSeq  int64
	lastTime time.Time
}

func newRoomSequencer(repo repository.MessageRepository) *roomSequencer {
	return &roomSequencer{
		repo:  repo,
		now:   time.Now,
		rooms: make(map[string]*roomSequence),
	}
}

// Append reserves the next sequence number for the room and invokes
// commit with the room lock held. Holding the lock across the persist
// means messages become durable in sequence order, so a backlog read
// can never observe a sequence without every sequence below it. When
// commit fails the sequence is not consumed, keeping it dense.
func (s *roomSequencer) Append(ctx context.Context, roomID string, commit func(seq int64, ts time.Time) error) error {
	rs := s.roomState(roomID)

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.loaded {
		maxSeq, err := s.repo.MaxSeq(ctx, roomID)
		if err != nil {
			return err
		}
		rs.lastSeq = maxSeq
		rs.loaded = true
	}

	ts := s.now().UTC()
	if !ts.After(rs.lastTime) {
		ts = rs.lastTime
	}

	if err := commit(rs.lastSeq+1, ts); err != nil {
		return err
	}

	rs.lastSeq++
	rs.lastTime = ts
	return nil
}

func (s *roomSequencer) roomState(roomID string) *roomSequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		rs = &roomSequence{}
		s.rooms[roomID] = rs
	}
	return rs
}
