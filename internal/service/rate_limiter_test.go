package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSenderLimiterEnforcesInterval(t *testing.T) {
	clock := newFakeClock()
	l := newSenderLimiter(time.Second)
	l.now = clock.Now

	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))

	clock.Advance(999 * time.Millisecond)
	assert.False(t, l.Allow("u1"))

	clock.Advance(time.Millisecond)
	assert.True(t, l.Allow("u1"))
}

func TestSenderLimiterPerSender(t *testing.T) {
	clock := newFakeClock()
	l := newSenderLimiter(time.Second)
	l.now = clock.Now

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))
	assert.False(t, l.Allow("u1"))
}

func TestSenderLimiterRejectionDoesNotResetWindow(t *testing.T) {
	clock := newFakeClock()
	l := newSenderLimiter(time.Second)
	l.now = clock.Now

	assert.True(t, l.Allow("u1"))

	// Hammering during the window must not push the window forward.
	clock.Advance(500 * time.Millisecond)
	assert.False(t, l.Allow("u1"))
	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.Allow("u1"))
}

func TestSenderLimiterDisabled(t *testing.T) {
	l := newSenderLimiter(0)
	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
}
