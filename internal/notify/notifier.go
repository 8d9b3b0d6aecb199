package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

const dispatchTimeout = 5 * time.Second

// Notifier dispatches new-message notifications to the external
// notification service via the event bus. Only durable room members
// are notified; presence alone never triggers a notification.
type Notifier struct {
	members repository.MembershipRepository
	bus     pubsub.Publisher
	origin  string
}

func New(members repository.MembershipRepository, bus pubsub.Publisher, origin string) *Notifier {
	return &Notifier{members: members, bus: bus, origin: origin}
}

// MessageCreated dispatches asynchronously. Failures are logged and
// never surface to the send path: message durability and fan-out do
// not depend on notification delivery.
func (n *Notifier) MessageCreated(ctx context.Context, msg *domain.ChatMessage) {
	logger := log.Ctx(ctx).With().
		Str(log.FieldRoomID, msg.RoomID).
		Str(log.FieldMessageID, msg.ID).
		Logger()

	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		dispatchCtx = log.WithLogger(dispatchCtx, logger)

		memberships, err := n.members.ListByRoom(dispatchCtx, msg.RoomID)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to list members for notification dispatch")
			return
		}

		recipients := make([]string, 0, len(memberships))
		for _, m := range memberships {
			if m.UserID == msg.SenderID {
				continue
			}
			recipients = append(recipients, m.UserID)
		}
		if len(recipients) == 0 {
			return
		}

		payload := domain.NotificationEvent{
			EventID:          uuid.New().String(),
			RoomID:           msg.RoomID,
			MessageID:        msg.ID,
			SenderID:         msg.SenderID,
			SenderName:       msg.SenderName,
			RecipientUserIDs: recipients,
		}
		ev, err := pubsub.NewEvent(pubsub.TypeNotificationDispatch, msg.RoomID, n.origin, payload)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode notification event")
			return
		}
		if err := n.bus.Publish(dispatchCtx, pubsub.ChannelNotifications, ev); err != nil {
			logger.Warn().Err(err).Msg("failed to publish notification event")
			return
		}
		logger.Debug().Int("recipients", len(recipients)).Msg("notification dispatched")
	}()
}
