package service

import (
	"context"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// Bridge re-injects room events published by other engine instances
// into the local hub, so websocket subscribers see the same stream no
// matter which instance committed the event.
type Bridge struct {
	hub    *hub.Hub
	bus    pubsub.Subscriber
	origin string
}

func NewBridge(h *hub.Hub, bus pubsub.Subscriber, origin string) *Bridge {
	return &Bridge{hub: h, bus: bus, origin: origin}
}

// Run consumes the bus until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	events, err := b.bus.SubscribePattern(ctx, pubsub.PatternRoomEvents)
	if err != nil {
		return err
	}

	l := log.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case busEv, ok := <-events:
			if !ok {
				return nil
			}
			if busEv.Type != pubsub.TypeRoomEvent || busEv.Origin == b.origin {
				continue
			}
			var ev domain.Event
			if err := busEv.UnmarshalPayload(&ev); err != nil {
				l.Warn().Err(err).Str(log.FieldRoomID, busEv.RoomID).Msg("failed to decode bridged room event")
				continue
			}
			b.hub.Publish(&ev)
		}
	}
}
