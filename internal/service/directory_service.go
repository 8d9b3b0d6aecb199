package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LandoDApp/varbe-web-sub001/internal/cache"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

const (
	defaultRoomPageSize = 20
	maxRoomPageSize     = 100
)

type directoryService struct {
	repo     repository.RoomRepository
	cache    cache.RoomCache
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewDirectoryService builds the room directory. The cache is optional;
// pass nil to read through to the repository on every resolve.
func NewDirectoryService(repo repository.RoomRepository, roomCache cache.RoomCache, cacheTTL time.Duration) DirectoryService {
	return &directoryService{
		repo:     repo,
		cache:    roomCache,
		cacheTTL: cacheTTL,
	}
}

func (s *directoryService) Resolve(ctx context.Context, roomID string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	if s.cache != nil {
		room, err := s.cache.Get(ctx, roomID)
		if err == nil {
			return room, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("room cache read failed")
		}
	}

	// Collapse concurrent misses for the same room into one repo read.
	v, err, _ := s.group.Do(roomID, func() (interface{}, error) {
		room, err := s.repo.GetByID(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, room, s.cacheTTL); err != nil {
				l.Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("room cache write failed")
			}
		}
		return room, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return v.(*domain.Room), nil
}

func (s *directoryService) Create(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyRoomName
	}
	if !domain.ValidCategory(req.Category) {
		return nil, ErrInvalidCategory
	}
	region := req.Region
	if region == "" {
		region = domain.RegionGlobal
	}
	if !domain.ValidRegion(region) {
		return nil, ErrInvalidRegion
	}

	room := &domain.Room{
		Name:     name,
		Emoji:    req.Emoji,
		Category: req.Category,
		Region:   region,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, room, s.cacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldRoomID, room.ID).Msg("room cache write failed")
		}
	}
	return room, nil
}

func (s *directoryService) List(ctx context.Context, page, pageSize int, category string) (*domain.ListRoomsResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxRoomPageSize {
		pageSize = defaultRoomPageSize
	}
	if category != "" && !domain.ValidCategory(domain.RoomCategory(category)) {
		return nil, ErrInvalidCategory
	}

	rooms, total, err := s.repo.List(ctx, page, pageSize, category)
	if err != nil {
		return nil, err
	}
	return &domain.ListRoomsResponse{
		Rooms:      rooms,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}
