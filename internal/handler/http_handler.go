package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/middleware"
	"github.com/LandoDApp/varbe-web-sub001/internal/service"
	"github.com/LandoDApp/varbe-web-sub001/pkg/response"
)

// HTTPHandler exposes the chatroom engine over REST.
type HTTPHandler struct {
	directory  service.DirectoryService
	stream     service.StreamService
	presence   service.PresenceTracker
	membership service.MembershipService
	auth       *middleware.AuthMiddleware
}

func NewHTTPHandler(
	directory service.DirectoryService,
	stream service.StreamService,
	presence service.PresenceTracker,
	membership service.MembershipService,
	auth *middleware.AuthMiddleware,
) *HTTPHandler {
	return &HTTPHandler{
		directory:  directory,
		stream:     stream,
		presence:   presence,
		membership: membership,
		auth:       auth,
	}
}

// RegisterRoutes mounts the REST API on the router.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id", h.GetRoom)
	api.GET("/rooms/:id/messages", h.GetMessages)
	api.GET("/rooms/:id/online", h.GetOnline)
	api.GET("/rooms/:id/members", h.GetMembers)

	authed := api.Group("")
	authed.Use(h.auth.RequireAuth())
	authed.POST("/rooms", h.CreateRoom)
	authed.POST("/rooms/:id/messages", h.SendMessage)
	authed.POST("/messages/:id/reactions", h.React)
	authed.PUT("/rooms/:id/membership", h.BecomeMember)
	authed.DELETE("/rooms/:id/membership", h.LeaveMembership)
	authed.GET("/rooms/:id/membership", h.GetMembership)
}

func (h *HTTPHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func (h *HTTPHandler) ListRooms(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	category := c.Query("category")

	result, err := h.directory.List(c.Request.Context(), page, pageSize, category)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *HTTPHandler) GetRoom(c *gin.Context) {
	room, err := h.directory.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, room)
}

func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	room, err := h.directory.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, room)
}

func (h *HTTPHandler) GetMessages(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil || since < 0 {
		response.BadRequest(c, "invalid since cursor")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	page, err := h.stream.History(c.Request.Context(), c.Param("id"), since, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, page)
}

type sendMessageRequest struct {
	Body     string             `json:"body"`
	Kind     domain.MessageKind `json:"kind"`
	MediaRef string             `json:"media_ref"`
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.stream.Send(c.Request.Context(), &service.SendRequest{
		RoomID:     c.Param("id"),
		SenderID:   middleware.GetUserID(c),
		SenderName: middleware.GetUsername(c),
		Body:       req.Body,
		Kind:       req.Kind,
		MediaRef:   req.MediaRef,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, msg)
}

type reactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func (h *HTTPHandler) React(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	err := h.stream.React(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Emoji)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message_id": c.Param("id")})
}

func (h *HTTPHandler) GetOnline(c *gin.Context) {
	entries, err := h.presence.Online(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"online": entries, "count": len(entries)})
}

func (h *HTTPHandler) GetMembers(c *gin.Context) {
	members, err := h.membership.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"members": members, "count": len(members)})
}

type becomeMemberRequest struct {
	Role domain.PresenceRole `json:"role"`
}

func (h *HTTPHandler) BecomeMember(c *gin.Context) {
	var req becomeMemberRequest
	// Body is optional; default to member role.
	_ = c.ShouldBindJSON(&req)
	if req.Role == "" {
		req.Role = domain.RoleMember
	}

	m, err := h.membership.BecomeMember(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, m)
}

func (h *HTTPHandler) LeaveMembership(c *gin.Context) {
	if err := h.membership.LeaveMembership(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"room_id": c.Param("id")})
}

func (h *HTTPHandler) GetMembership(c *gin.Context) {
	m, err := h.membership.GetMembership(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, m)
}

// writeError maps service errors to the API envelope.
func (h *HTTPHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, "ROOM_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, "MESSAGE_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrNotMember):
		response.Error(c, http.StatusForbidden, "NOT_MEMBER", err.Error())
	case errors.Is(err, service.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, "RATE_LIMITED", err.Error())
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrMediaRefRequired),
		errors.Is(err, service.ErrInvalidEmoji),
		errors.Is(err, service.ErrEmptyRoomName),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidRegion):
		response.Error(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	default:
		response.InternalError(c, "internal server error")
	}
}
