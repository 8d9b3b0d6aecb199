package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// eventPublisher fans a room event out locally and, when a bus is
// configured, to the other engine instances. Bus failures are logged
// and never fail the operation that produced the event: local
// subscribers already got it, and remote ones recover from their
// cursors.
type eventPublisher struct {
	hub    *hub.Hub
	bus    pubsub.Publisher
	origin string
}

func (p *eventPublisher) publish(ctx context.Context, ev *domain.Event) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	p.hub.Publish(ev)

	if p.bus == nil {
		return
	}
	busEv, err := pubsub.NewEvent(pubsub.TypeRoomEvent, ev.RoomID, p.origin, ev)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, ev.RoomID).Msg("failed to encode room event for bus")
		return
	}
	if err := p.bus.Publish(ctx, pubsub.RoomEventsChannel(ev.RoomID), busEv); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, ev.RoomID).Msg("failed to publish room event to bus")
	}
}
