package service

import (
	"context"
	"errors"
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/audit"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/internal/repository"
)

type membershipService struct {
	repo  repository.MembershipRepository
	rooms DirectoryService
	now   func() time.Time
}

func NewMembershipService(repo repository.MembershipRepository, rooms DirectoryService) MembershipService {
	return &membershipService{
		repo:  repo,
		rooms: rooms,
		now:   time.Now,
	}
}

func (s *membershipService) BecomeMember(ctx context.Context, roomID, userID string, role domain.PresenceRole) (*domain.Membership, error) {
	if _, err := s.rooms.Resolve(ctx, roomID); err != nil {
		return nil, err
	}

	m, err := s.repo.Upsert(ctx, &domain.Membership{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	audit.LogWithDetail(ctx, audit.ActionBecomeMember, userID, roomID, "user became a room member")
	return m, nil
}

func (s *membershipService) LeaveMembership(ctx context.Context, roomID, userID string) error {
	if err := s.repo.Delete(ctx, roomID, userID); err != nil {
		return err
	}
	audit.LogWithDetail(ctx, audit.ActionLeaveMembership, userID, roomID, "user left room membership")
	return nil
}

func (s *membershipService) GetMembership(ctx context.Context, roomID, userID string) (*domain.Membership, error) {
	m, err := s.repo.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return m, nil
}

func (s *membershipService) ListMembers(ctx context.Context, roomID string) ([]domain.Membership, error) {
	return s.repo.ListByRoom(ctx, roomID)
}

func (s *membershipService) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	_, err := s.repo.Get(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
