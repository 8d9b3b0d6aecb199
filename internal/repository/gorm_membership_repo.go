package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// GormMembershipRepository implements MembershipRepository using GORM.
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GORM-based membership repository.
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Upsert inserts the membership if absent and returns the stored record.
// A concurrent or repeated insert is a no-op: the row that won keeps its
// original joined_at.
func (r *GormMembershipRepository) Upsert(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	l := log.Ctx(ctx)

	model := MembershipToModel(m)
	if model.JoinedAt.IsZero() {
		model.JoinedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldRoomID, m.RoomID).
			Str(log.FieldUserID, m.UserID).
			Msg("failed to upsert membership in db")
		return nil, result.Error
	}

	// Read back so repeated joins return the first record.
	return r.Get(ctx, m.RoomID, m.UserID)
}

// Delete removes a membership. Deleting an absent row is a no-op.
func (r *GormMembershipRepository) Delete(ctx context.Context, roomID, userID string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&MembershipModel{})
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldRoomID, roomID).
			Str(log.FieldUserID, userID).
			Msg("failed to delete membership in db")
		return result.Error
	}
	return nil
}

// Get retrieves a membership record.
func (r *GormMembershipRepository) Get(ctx context.Context, roomID, userID string) (*domain.Membership, error) {
	var model MembershipModel
	result := r.db.WithContext(ctx).
		First(&model, "room_id = ? AND user_id = ?", roomID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListByRoom returns a room's memberships ordered by join time, user id
// as tiebreak.
func (r *GormMembershipRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Membership, error) {
	l := log.Ctx(ctx)

	var models []MembershipModel
	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC, user_id ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to list memberships from db")
		return nil, result.Error
	}

	members := make([]domain.Membership, len(models))
	for i, model := range models {
		members[i] = *model.ToDomain()
	}
	return members, nil
}
