package hub

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

func messageEvent(roomID string, seq int64) *domain.Event {
	return &domain.Event{
		Type:    domain.EventMessageCreated,
		RoomID:  roomID,
		Message: &domain.ChatMessage{RoomID: roomID, Seq: seq, ID: fmt.Sprintf("m%d", seq)},
	}
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	h := NewHub(16)
	sub := h.Subscribe("r1")
	defer sub.Close()

	for i := int64(1); i <= 5; i++ {
		h.Publish(messageEvent("r1", i))
	}

	for i := int64(1); i <= 5; i++ {
		ev := <-sub.Events()
		require.Equal(t, i, ev.Message.Seq)
	}
}

func TestHubRoomIsolation(t *testing.T) {
	h := NewHub(16)
	sub := h.Subscribe("r1")
	defer sub.Close()

	h.Publish(messageEvent("r2", 1))
	h.Publish(messageEvent("r1", 2))

	ev := <-sub.Events()
	assert.Equal(t, "r1", ev.RoomID)
	assert.Equal(t, int64(2), ev.Message.Seq)
	assert.Empty(t, sub.Events())
}

func TestHubCloseUnregisters(t *testing.T) {
	h := NewHub(16)
	sub := h.Subscribe("r1")

	require.Equal(t, 1, h.SubscriberCount("r1"))
	sub.Close()
	assert.Equal(t, 0, h.SubscriberCount("r1"))

	// Channel is closed; no event arrives after Close returns.
	_, open := <-sub.Events()
	assert.False(t, open)

	// Close is idempotent.
	sub.Close()
}

func TestHubEvictsSlowSubscriber(t *testing.T) {
	h := NewHub(2)
	slow := h.Subscribe("r1")
	fast := h.Subscribe("r1")

	// Fill the slow subscriber's buffer, keeping fast drained so only
	// slow overflows on the third publish.
	h.Publish(messageEvent("r1", 1))
	h.Publish(messageEvent("r1", 2))
	<-fast.Events()
	<-fast.Events()
	h.Publish(messageEvent("r1", 3))

	assert.Equal(t, 1, h.SubscriberCount("r1"))

	// The slow subscriber observes buffered events then a closed channel.
	var got []int64
	for ev := range slow.Events() {
		got = append(got, ev.Message.Seq)
	}
	assert.Equal(t, []int64{1, 2}, got)

	// The drained subscriber stays registered and keeps receiving.
	ev := <-fast.Events()
	assert.Equal(t, int64(3), ev.Message.Seq)
	fast.Close()
}

func TestHubFanOut(t *testing.T) {
	h := NewHub(16)
	a := h.Subscribe("r1")
	b := h.Subscribe("r1")
	defer a.Close()
	defer b.Close()

	h.Publish(messageEvent("r1", 1))

	evA := <-a.Events()
	evB := <-b.Events()
	assert.Equal(t, evA.Message.ID, evB.Message.ID)
}
