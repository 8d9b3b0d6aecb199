package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LandoDApp/varbe-web-sub001/internal/client"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/middleware"
	"github.com/LandoDApp/varbe-web-sub001/internal/service"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 45 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound frame types.
const (
	frameHeartbeat = "heartbeat"
	frameSend      = "send"
	frameReact     = "react"
	frameLeave     = "leave"
)

// Outbound frame types.
const (
	frameBacklog  = "backlog"
	frameOnline   = "online"
	frameEvent    = "event"
	framePresence = "presence"
	frameAck      = "ack"
	frameError    = "error"
)

type clientFrame struct {
	Type      string             `json:"type"`
	Body      string             `json:"body,omitempty"`
	Kind      domain.MessageKind `json:"kind,omitempty"`
	MediaRef  string             `json:"media_ref,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	Emoji     string             `json:"emoji,omitempty"`
}

type serverFrame struct {
	Type     string                 `json:"type"`
	Messages []*domain.ChatMessage  `json:"messages,omitempty"`
	Online   []domain.PresenceEntry `json:"online,omitempty"`
	Event    *domain.Event          `json:"event,omitempty"`
	Change   *domain.PresenceChange `json:"change,omitempty"`
	Message  *domain.ChatMessage    `json:"message,omitempty"`
	Error    *frameErrorInfo        `json:"error,omitempty"`
}

type frameErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSHandler attaches websocket clients to a room: one presence session,
// the message stream from the client's cursor and the online set.
type WSHandler struct {
	stream     service.StreamService
	presence   service.PresenceTracker
	membership service.MembershipService
	profiles   *client.ProfileClient
	auth       *middleware.AuthMiddleware
}

func NewWSHandler(
	stream service.StreamService,
	presence service.PresenceTracker,
	membership service.MembershipService,
	profiles *client.ProfileClient,
	auth *middleware.AuthMiddleware,
) *WSHandler {
	return &WSHandler{
		stream:     stream,
		presence:   presence,
		membership: membership,
		profiles:   profiles,
		auth:       auth,
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/rooms/:id", h.HandleRoom)
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsConn) write(frame *serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow consumer; the connection is torn down by the write pump
		// when the buffer stays full.
	}
}

// HandleRoom upgrades the connection and runs it until disconnect.
// The token travels as a query parameter because browsers cannot set
// headers on websocket dials.
func (h *WSHandler) HandleRoom(c *gin.Context) {
	roomID := c.Param("id")

	claims, err := h.auth.Validate(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since cursor"})
		return
	}

	ctx := c.Request.Context()
	l := log.Ctx(ctx).With().
		Str(log.FieldRoomID, roomID).
		Str(log.FieldUserID, claims.UserID).
		Logger()

	role := domain.RoleGuest
	if isMember, err := h.membership.IsMember(ctx, roomID, claims.UserID); err == nil && isMember {
		role = domain.RoleMember
	}

	senderName := claims.Username
	if profile := h.profiles.Resolve(ctx, claims.UserID); profile != nil && profile.DisplayName != "" {
		senderName = profile.DisplayName
	}
	if senderName == "" {
		senderName = client.AnonymousName
	}

	session, err := h.presence.OpenSession(ctx, roomID, claims.UserID, role)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}

	// The connection outlives the upgrade request, so detach from the
	// request context now.
	connCtx, cancel := context.WithCancel(log.WithLogger(context.Background(), l))

	msgSub, err := h.stream.Subscribe(connCtx, roomID, since)
	if err != nil {
		cancel()
		session.Close(context.Background())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}
	onlineSub, err := h.presence.SubscribeOnline(connCtx, roomID)
	if err != nil {
		cancel()
		msgSub.Close()
		session.Close(context.Background())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		msgSub.Close()
		onlineSub.Close()
		session.Close(context.Background())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ws := &wsConn{conn: conn, send: make(chan []byte, sendBufferSize)}

	l.Info().Str(log.FieldSessionID, session.ID()).Msg("websocket client connected")

	ws.write(&serverFrame{Type: frameBacklog, Messages: msgSub.Backlog()})
	ws.write(&serverFrame{Type: frameOnline, Online: onlineSub.Snapshot()})

	go h.forwardEvents(ws, msgSub, onlineSub)
	go h.writePump(ws, cancel)
	h.readPump(connCtx, ws, session, roomID, claims.UserID, senderName)

	// Read pump returned: the client is gone or asked to leave.
	cancel()
	msgSub.Close()
	onlineSub.Close()
	if err := session.Close(context.Background()); err != nil {
		l.Warn().Err(err).Msg("failed to release presence session")
	}
	l.Info().Str(log.FieldSessionID, session.ID()).Msg("websocket client disconnected")
}

// forwardEvents drains both subscriptions into the send buffer. It
// returns when both channels are closed.
func (h *WSHandler) forwardEvents(ws *wsConn, msgSub *service.MessageSubscription, onlineSub *service.OnlineSubscription) {
	events := msgSub.Events()
	changes := onlineSub.Changes()
	for events != nil || changes != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ws.write(&serverFrame{Type: frameEvent, Event: ev})
		case ch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			ws.write(&serverFrame{Type: framePresence, Change: &ch})
		}
	}
}

func (h *WSHandler) readPump(ctx context.Context, ws *wsConn, session *service.Session, roomID, userID, senderName string) {
	defer ws.conn.Close()

	ws.conn.SetReadLimit(maxMessageSize)
	ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Ctx(ctx).Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			ws.write(&serverFrame{Type: frameError, Error: &frameErrorInfo{Code: "BAD_FRAME", Message: "invalid frame"}})
			continue
		}

		switch frame.Type {
		case frameHeartbeat:
			if err := session.Heartbeat(ctx); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("heartbeat failed")
			}

		case frameSend:
			msg, err := h.stream.Send(ctx, &service.SendRequest{
				RoomID:     roomID,
				SenderID:   userID,
				SenderName: senderName,
				Body:       frame.Body,
				Kind:       frame.Kind,
				MediaRef:   frame.MediaRef,
			})
			if err != nil {
				ws.write(&serverFrame{Type: frameError, Error: frameErrorFor(err)})
				continue
			}
			ws.write(&serverFrame{Type: frameAck, Message: msg})

		case frameReact:
			if err := h.stream.React(ctx, frame.MessageID, userID, frame.Emoji); err != nil {
				ws.write(&serverFrame{Type: frameError, Error: frameErrorFor(err)})
			}

		case frameLeave:
			return

		default:
			ws.write(&serverFrame{Type: frameError, Error: &frameErrorInfo{Code: "BAD_FRAME", Message: "unknown frame type"}})
		}
	}
}

func (h *WSHandler) writePump(ws *wsConn, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		cancel()
		ws.conn.Close()
	}()

	for {
		select {
		case data, ok := <-ws.send:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func frameErrorFor(err error) *frameErrorInfo {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return &frameErrorInfo{Code: "ROOM_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, service.ErrMessageNotFound):
		return &frameErrorInfo{Code: "MESSAGE_NOT_FOUND", Message: err.Error()}
	case errors.Is(err, service.ErrNotMember):
		return &frameErrorInfo{Code: "NOT_MEMBER", Message: err.Error()}
	case errors.Is(err, service.ErrRateLimited):
		return &frameErrorInfo{Code: "RATE_LIMITED", Message: err.Error()}
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrMediaRefRequired),
		errors.Is(err, service.ErrInvalidEmoji):
		return &frameErrorInfo{Code: "VALIDATION_FAILED", Message: err.Error()}
	default:
		return &frameErrorInfo{Code: "INTERNAL", Message: "internal error"}
	}
}
