package service

import (
	"sync"
	"time"
)

// senderLimiter enforces a minimum interval between messages from the
// same sender. Limiting happens here rather than in clients so a
// misbehaving client cannot bypass it.
type senderLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      func() time.Time
}

func newSenderLimiter(interval time.Duration) *senderLimiter {
	return &senderLimiter{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

// Allow records an attempt for the sender and reports whether it is
// within the allowed rate. Rejected attempts do not update the window.
func (l *senderLimiter) Allow(senderID string) bool {
	if l.interval <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if prev, ok := l.last[senderID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[senderID] = now
	return true
}
