package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LandoDApp/varbe-web-sub001/internal/audit"
	"github.com/LandoDApp/varbe-web-sub001/internal/config"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/idgen"
	"github.com/LandoDApp/varbe-web-sub001/internal/pubsub"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

const (
	appendAttempts     = 3
	appendInitialDelay = 50 * time.Millisecond

	maxReactionEmojiRunes = 8
)

// Notifier is the fire-and-forget notification dispatch for newly
// created messages.
type Notifier interface {
	MessageCreated(ctx context.Context, msg *domain.ChatMessage)
}

type streamService struct {
	repo      repository.MessageRepository
	rooms     DirectoryService
	members   MembershipService
	ids       *idgen.Snowflake
	seq       *roomSequencer
	limiter   *senderLimiter
	publisher *eventPublisher
	notifier  Notifier
	cfg       config.ChatConfig
	reactMu   *keyedMutex
}

// NewStreamService builds the ordered message log with live fan-out.
// The notifier may be nil when notification dispatch is disabled.
func NewStreamService(
	repo repository.MessageRepository,
	rooms DirectoryService,
	members MembershipService,
	ids *idgen.Snowflake,
	h *hub.Hub,
	bus pubsub.Publisher,
	origin string,
	notifier Notifier,
	cfg config.ChatConfig,
) StreamService {
	return &streamService{
		repo:      repo,
		rooms:     rooms,
		members:   members,
		ids:       ids,
		seq:       newRoomSequencer(repo),
		limiter:   newSenderLimiter(cfg.MinSendInterval),
		publisher: &eventPublisher{hub: h, bus: bus, origin: origin},
		notifier:  notifier,
		cfg:       cfg,
		reactMu:   newKeyedMutex(),
	}
}

func (s *streamService) Send(ctx context.Context, req *SendRequest) (*domain.ChatMessage, error) {
	body := strings.TrimSpace(req.Body)
	kind := req.Kind
	if kind == "" {
		kind = domain.KindText
	}

	if body == "" && kind != domain.KindMedia {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > s.cfg.MaxBodyLength {
		return nil, ErrMessageTooLong
	}
	if !domain.ValidKind(kind) {
		return nil, ErrInvalidKind
	}
	if kind == domain.KindMedia && req.MediaRef == "" {
		return nil, ErrMediaRefRequired
	}
	if !s.limiter.Allow(req.SenderID) {
		return nil, ErrRateLimited
	}
	if _, err := s.rooms.Resolve(ctx, req.RoomID); err != nil {
		return nil, err
	}
	if s.cfg.RequireMembership && kind != domain.KindSystem {
		ok, err := s.members.IsMember(ctx, req.RoomID, req.SenderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotMember
		}
	}

	msg, err := s.append(ctx, req, body, kind)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.MessageCreated(ctx, msg)
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, req.SenderID, msg.RoomID, "message sent")
	return msg, nil
}

// append assigns the order key, persists the message and fans it out,
// retrying transient storage failures with backoff. Persist and
// fan-out run under the room's sequence lock so both the durable log
// and live delivery follow sequence order.
func (s *streamService) append(ctx context.Context, req *SendRequest, body string, kind domain.MessageKind) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	var lastErr error
	delay := appendInitialDelay
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		id, err := s.ids.Generate()
		if err != nil {
			return nil, err
		}

		var msg *domain.ChatMessage
		err = s.seq.Append(ctx, req.RoomID, func(seq int64, ts time.Time) error {
			m := &domain.ChatMessage{
				ID:         id,
				RoomID:     req.RoomID,
				Seq:        seq,
				SenderID:   req.SenderID,
				SenderName: req.SenderName,
				Body:       body,
				Kind:       kind,
				MediaRef:   req.MediaRef,
				Reactions:  domain.ReactionSet{},
				CreatedAt:  ts,
			}
			if err := s.repo.Append(ctx, m); err != nil {
				return err
			}
			msg = m
			s.publisher.publish(ctx, &domain.Event{
				Type:      domain.EventMessageCreated,
				RoomID:    m.RoomID,
				Message:   m,
				Timestamp: m.CreatedAt,
			})
			return nil
		})
		if err != nil {
			lastErr = err
			l.Warn().Err(err).
				Str(log.FieldRoomID, req.RoomID).
				Int("attempt", attempt).
				Msg("message append failed")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			delay *= 2
			continue
		}
		return msg, nil
	}
	return nil, lastErr
}

func (s *streamService) Subscribe(ctx context.Context, roomID string, sinceSeq int64) (*MessageSubscription, error) {
	if _, err := s.rooms.Resolve(ctx, roomID); err != nil {
		return nil, err
	}

	// Register before reading the backlog so nothing can land between
	// the two. The horizon filter in the pump drops the overlap.
	hubSub := s.publisher.hub.Subscribe(roomID)

	messages, err := s.repo.ListSince(ctx, roomID, sinceSeq, 0)
	if err != nil {
		hubSub.Close()
		return nil, err
	}

	horizon := sinceSeq
	backlog := make([]*domain.ChatMessage, len(messages))
	for i := range messages {
		backlog[i] = &messages[i]
		if messages[i].Seq > horizon {
			horizon = messages[i].Seq
		}
	}

	sub := &MessageSubscription{
		backlog: backlog,
		events:  make(chan *domain.Event),
		sub:     hubSub,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go sub.pump(horizon)
	return sub, nil
}

func (s *streamService) React(ctx context.Context, messageID, userID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxReactionEmojiRunes {
		return ErrInvalidEmoji
	}

	// Serialize toggles per message so concurrent reactions cannot lose
	// each other's read-modify-write.
	unlock := s.reactMu.Lock(messageID)
	defer unlock()

	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	reactions := msg.Reactions.Clone()
	if reactions == nil {
		reactions = domain.ReactionSet{}
	}
	added := reactions.Toggle(emoji, userID)

	if err := s.repo.UpdateReactions(ctx, messageID, reactions); err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	s.publisher.publish(ctx, &domain.Event{
		Type:   domain.EventReactionUpdated,
		RoomID: msg.RoomID,
		Reaction: &domain.ReactionChange{
			MessageID: messageID,
			Seq:       msg.Seq,
			UserID:    userID,
			Emoji:     emoji,
			Added:     added,
			Reactions: reactions,
		},
	})

	audit.LogWithDetail(ctx, audit.ActionReact, userID, messageID, "reaction toggled")
	return nil
}

func (s *streamService) History(ctx context.Context, roomID string, sinceSeq int64, limit int) (*domain.HistoryPage, error) {
	if _, err := s.rooms.Resolve(ctx, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryPageSize {
		limit = s.cfg.HistoryPageSize
	}

	// Fetch one extra row to learn whether another page exists.
	messages, err := s.repo.ListSince(ctx, roomID, sinceSeq, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	next := sinceSeq
	if len(messages) > 0 {
		next = messages[len(messages)-1].Seq
	}
	return &domain.HistoryPage{
		Messages:   messages,
		NextCursor: next,
		HasMore:    hasMore,
	}, nil
}
