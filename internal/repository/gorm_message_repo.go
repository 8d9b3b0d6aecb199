package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LandoDApp/varbe-web-sub001/internal/database"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append persists a message under its already-assigned (room, seq) key.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	l := log.Ctx(ctx)

	model := MessageToModel(msg)
	if model.Reactions == nil {
		model.Reactions = database.ReactionColumn{}
	}
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).
			Str(log.FieldRoomID, msg.RoomID).
			Int64(log.FieldMessageSeq, msg.Seq).
			Msg("failed to append message to db")
		return result.Error
	}
	return nil
}

// GetByID retrieves a message by its message id.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var model MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// ListSince returns up to limit messages of a room with seq > sinceSeq,
// in ascending canonical order. limit <= 0 means no limit.
func (r *GormMessageRepository) ListSince(ctx context.Context, roomID string, sinceSeq int64, limit int) ([]domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	query := r.db.WithContext(ctx).
		Where("room_id = ? AND seq > ?", roomID, sinceSeq).
		Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages from db")
		return nil, err
	}

	messages := make([]domain.ChatMessage, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, nil
}

// MaxSeq returns the highest assigned seq of a room, 0 if none.
func (r *GormMessageRepository) MaxSeq(ctx context.Context, roomID string) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&MessageModel{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// UpdateReactions replaces the reaction set of a message.
func (r *GormMessageRepository) UpdateReactions(ctx context.Context, id string, reactions domain.ReactionSet) error {
	l := log.Ctx(ctx)

	col := database.ReactionColumn(reactions)
	if col == nil {
		col = database.ReactionColumn{}
	}
	result := r.db.WithContext(ctx).Model(&MessageModel{}).
		Where("id = ?", id).
		Update("reactions", col)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to update reactions in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
