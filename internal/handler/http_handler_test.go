package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LandoDApp/varbe-web-sub001/internal/config"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/hub"
	"github.com/LandoDApp/varbe-web-sub001/internal/idgen"
	"github.com/LandoDApp/varbe-web-sub001/internal/middleware"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
	"github.com/LandoDApp/varbe-web-sub001/internal/service"
	"github.com/LandoDApp/varbe-web-sub001/internal/store"
	"github.com/LandoDApp/varbe-web-sub001/pkg/jwt"
)

type apiEnv struct {
	router *gin.Engine
	tokens *jwt.Manager
	roomID string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&repository.RoomModel{},
		&repository.MessageModel{},
		&repository.MembershipModel{},
	))

	roomRepo := repository.NewGormRoomRepository(db)
	room := &domain.Room{Name: "lobby", Category: domain.CategoryGeneral, Region: domain.RegionGlobal}
	require.NoError(t, roomRepo.Create(context.Background(), room))

	tokens, err := jwt.NewManager("test-secret", "test", time.Hour)
	require.NoError(t, err)
	auth := middleware.NewAuthMiddleware(tokens)

	ids, err := idgen.NewSnowflake(1, idgen.DefaultEpoch)
	require.NoError(t, err)

	h := hub.NewHub(16)
	directory := service.NewDirectoryService(roomRepo, nil, time.Minute)
	membership := service.NewMembershipService(repository.NewGormMembershipRepository(db), directory)
	stream := service.NewStreamService(
		repository.NewGormMessageRepository(db),
		directory, membership, ids, h, nil, "test", nil,
		config.ChatConfig{MaxBodyLength: 2000, HistoryPageSize: 50},
	)
	presence := service.NewPresenceTracker(store.NewMemoryStore(), directory, h, nil, "test", time.Minute, time.Minute)

	router := gin.New()
	NewHTTPHandler(directory, stream, presence, membership, auth).RegisterRoutes(router)

	return &apiEnv{router: router, tokens: tokens, roomID: room.ID}
}

func (e *apiEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetRoom(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/rooms/"+env.roomID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "lobby", body["data"].(map[string]interface{})["name"])
}

func TestGetRoomNotFound(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/rooms/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "ROOM_NOT_FOUND", body["error"].(map[string]interface{})["code"])
}

func TestSendMessageRequiresAuth(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/rooms/"+env.roomID+"/messages", "", gin.H{"body": "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendAndReadMessages(t *testing.T) {
	env := newAPIEnv(t)
	token, err := env.tokens.Generate("u1", "alice")
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/v1/rooms/"+env.roomID+"/messages", token, gin.H{"body": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	msg := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "hello", msg["body"])
	assert.Equal(t, float64(1), msg["seq"])
	assert.Equal(t, "alice", msg["sender_name"])

	rec = env.request(t, http.MethodGet, "/api/v1/rooms/"+env.roomID+"/messages?since=0", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode(t, rec)["data"].(map[string]interface{})
	assert.Len(t, page["messages"], 1)
	assert.Equal(t, false, page["has_more"])
}

func TestSendEmptyMessageRejected(t *testing.T) {
	env := newAPIEnv(t)
	token, err := env.tokens.Generate("u1", "alice")
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/v1/rooms/"+env.roomID+"/messages", token, gin.H{"body": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode(t, rec)["error"].(map[string]interface{})["code"])
}

func TestReactEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	token, err := env.tokens.Generate("u1", "alice")
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/v1/rooms/"+env.roomID+"/messages", token, gin.H{"body": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	msgID := decode(t, rec)["data"].(map[string]interface{})["id"].(string)

	rec = env.request(t, http.MethodPost, "/api/v1/messages/"+msgID+"/reactions", token, gin.H{"emoji": "🔥"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/messages/nope/reactions", token, gin.H{"emoji": "🔥"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMembershipLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	token, err := env.tokens.Generate("u1", "alice")
	require.NoError(t, err)

	path := "/api/v1/rooms/" + env.roomID + "/membership"

	rec := env.request(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodPut, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	joined := decode(t, rec)["data"].(map[string]interface{})["joined_at"]

	// Joining again returns the same record.
	rec = env.request(t, http.MethodPut, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, joined, decode(t, rec)["data"].(map[string]interface{})["joined_at"])

	rec = env.request(t, http.MethodGet, "/api/v1/rooms/"+env.roomID+"/members", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["data"].(map[string]interface{})["count"])

	rec = env.request(t, http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRoomEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	token, err := env.tokens.Generate("admin", "admin")
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/v1/rooms", token, gin.H{
		"name":     "gamers",
		"category": "gaming",
		"emoji":    "🎮",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "global", created["region"])

	rec = env.request(t, http.MethodPost, "/api/v1/rooms", token, gin.H{
		"name":     "bad",
		"category": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOnlineEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/rooms/"+env.roomID+"/online", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["data"].(map[string]interface{})["count"])
}
