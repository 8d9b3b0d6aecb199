package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// RedisStore implements PresenceStore on Redis, for deployments where
// presence must survive a process restart or be shared between the room
// owner and read-only replicas.
//
// Key layout:
//
//	presence:rooms                        SET<room_id>    rooms with entries
//	presence:room:{room_id}:heartbeats    ZSET<user_id>   score = heartbeat unix ms
//	presence:room:{room_id}:roles         HASH<user_id>   display role
//
// Heartbeats are ZSET scores rather than per-key TTLs so the sweeper can
// find expired entries with one range query and report the removals.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed presence store and verifies the
// connection.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

const roomsKey = "presence:rooms"

func heartbeatsKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s:heartbeats", roomID)
}

func rolesKey(roomID string) string {
	return fmt.Sprintf("presence:room:%s:roles", roomID)
}

func (s *RedisStore) Upsert(ctx context.Context, entry domain.PresenceEntry) (bool, error) {
	pipe := s.client.TxPipeline()
	addCmd := pipe.ZAdd(ctx, heartbeatsKey(entry.RoomID), redis.Z{
		Score:  float64(entry.LastHeartbeat.UnixMilli()),
		Member: entry.UserID,
	})
	pipe.HSet(ctx, rolesKey(entry.RoomID), entry.UserID, string(entry.Role))
	pipe.SAdd(ctx, roomsKey, entry.RoomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return addCmd.Val() == 1, nil
}

func (s *RedisStore) Touch(ctx context.Context, roomID, userID string, at time.Time) (bool, error) {
	key := heartbeatsKey(roomID)
	if err := s.client.ZScore(ctx, key, userID).Err(); err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	err := s.client.ZAddXX(ctx, key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: userID,
	}).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Remove(ctx context.Context, roomID, userID string) (bool, error) {
	pipe := s.client.TxPipeline()
	remCmd := pipe.ZRem(ctx, heartbeatsKey(roomID), userID)
	pipe.HDel(ctx, rolesKey(roomID), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if err := s.cleanupRoom(ctx, roomID); err != nil {
		return false, err
	}
	return remCmd.Val() > 0, nil
}

func (s *RedisStore) List(ctx context.Context, roomID string) ([]domain.PresenceEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, heartbeatsKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	roles, err := s.client.HGetAll(ctx, rolesKey(roomID)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.PresenceEntry, 0, len(members))
	for _, m := range members {
		userID := m.Member.(string)
		entries = append(entries, domain.PresenceEntry{
			RoomID:        roomID,
			UserID:        userID,
			Role:          roleOrGuest(roles[userID]),
			LastHeartbeat: time.UnixMilli(int64(m.Score)),
		})
	}
	return entries, nil
}

func (s *RedisStore) Rooms(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, roomsKey).Result()
}

// expireScript removes stale members atomically, so a heartbeat racing
// the sweep either lands before the read (the member survives) or after
// the whole removal (the member is re-added). A read-then-ZREM pair
// would discard the racing heartbeat.
var expireScript = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES')
local out = {}
for i = 1, #stale, 2 do
	local member = stale[i]
	out[#out+1] = member
	out[#out+1] = stale[i+1]
	out[#out+1] = redis.call('HGET', KEYS[2], member) or ''
	redis.call('ZREM', KEYS[1], member)
	redis.call('HDEL', KEYS[2], member)
end
return out
`)

func (s *RedisStore) ExpireBefore(ctx context.Context, roomID string, cutoff time.Time) ([]domain.PresenceEntry, error) {
	maxScore := strconv.FormatInt(cutoff.UnixMilli()-1, 10)

	res, err := expireScript.Run(ctx, s.client,
		[]string{heartbeatsKey(roomID), rolesKey(roomID)}, maxScore).Result()
	if err != nil {
		return nil, err
	}
	flat, ok := res.([]interface{})
	if !ok || len(flat) == 0 {
		return nil, nil
	}

	var expired []domain.PresenceEntry
	for i := 0; i+2 < len(flat); i += 3 {
		userID, _ := flat[i].(string)
		scoreStr, _ := flat[i+1].(string)
		role, _ := flat[i+2].(string)

		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return expired, fmt.Errorf("malformed heartbeat score %q: %w", scoreStr, err)
		}
		expired = append(expired, domain.PresenceEntry{
			RoomID:        roomID,
			UserID:        userID,
			Role:          roleOrGuest(role),
			LastHeartbeat: time.UnixMilli(int64(score)),
		})
	}

	if err := s.cleanupRoom(ctx, roomID); err != nil {
		return expired, err
	}
	return expired, nil
}

func (s *RedisStore) cleanupRoom(ctx context.Context, roomID string) error {
	count, err := s.client.ZCard(ctx, heartbeatsKey(roomID)).Result()
	if err != nil {
		return err
	}
	if count == 0 {
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, rolesKey(roomID))
		pipe.SRem(ctx, roomsKey, roomID)
		_, err = pipe.Exec(ctx)
		return err
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func roleOrGuest(role string) domain.PresenceRole {
	if role == "" {
		return domain.RoleGuest
	}
	return domain.PresenceRole(role)
}
