package cache

import (
	"context"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// RoomCache is a read-through cache for room metadata.
type RoomCache interface {
	Get(ctx context.Context, roomID string) (*domain.Room, error)
	Set(ctx context.Context, room *domain.Room, ttl time.Duration) error
	Delete(ctx context.Context, roomIDs ...string) error
	Close() error
}
