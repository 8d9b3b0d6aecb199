package repository

import (
	"time"

	"github.com/LandoDApp/varbe-web-sub001/internal/database"
	"github.com/LandoDApp/varbe-web-sub001/internal/domain"
)

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Emoji     string    `gorm:"type:varchar(16)"`
	Category  string    `gorm:"type:varchar(20);index;not null"`
	Region    string    `gorm:"type:varchar(20);index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RoomModel) TableName() string {
	return "rooms"
}

func (m *RoomModel) ToDomain() *domain.Room {
	return &domain.Room{
		ID:        m.ID,
		Name:      m.Name,
		Emoji:     m.Emoji,
		Category:  domain.RoomCategory(m.Category),
		Region:    domain.RoomRegion(m.Region),
		CreatedAt: m.CreatedAt,
	}
}

func RoomToModel(r *domain.Room) *RoomModel {
	return &RoomModel{
		ID:        r.ID,
		Name:      r.Name,
		Emoji:     r.Emoji,
		Category:  string(r.Category),
		Region:    string(r.Region),
		CreatedAt: r.CreatedAt,
	}
}

// MessageModel is the GORM model for the messages table, keyed by
// (room_id, seq) so backlog reads are a single index range scan.
type MessageModel struct {
	RoomID     string                  `gorm:"type:varchar(36);primaryKey"`
	Seq        int64                   `gorm:"primaryKey;autoIncrement:false"`
	ID         string                  `gorm:"type:varchar(32);uniqueIndex;not null"`
	SenderID   string                  `gorm:"type:varchar(36);index;not null"`
	SenderName string                  `gorm:"type:varchar(100);not null"`
	Body       string                  `gorm:"type:text;not null"`
	Kind       string                  `gorm:"type:varchar(10);not null"`
	MediaRef   string                  `gorm:"type:text"`
	Reactions  database.ReactionColumn `gorm:"type:text"`
	Edited     bool                    `gorm:"not null;default:false"`
	CreatedAt  time.Time               `gorm:"not null"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) ToDomain() *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		Seq:        m.Seq,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Body:       m.Body,
		Kind:       domain.MessageKind(m.Kind),
		MediaRef:   m.MediaRef,
		Reactions:  domain.ReactionSet(m.Reactions),
		Edited:     m.Edited,
		CreatedAt:  m.CreatedAt,
	}
}

func MessageToModel(msg *domain.ChatMessage) *MessageModel {
	return &MessageModel{
		RoomID:     msg.RoomID,
		Seq:        msg.Seq,
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Kind:       string(msg.Kind),
		MediaRef:   msg.MediaRef,
		Reactions:  database.ReactionColumn(msg.Reactions),
		Edited:     msg.Edited,
		CreatedAt:  msg.CreatedAt,
	}
}

// MembershipModel is the GORM model for the memberships table.
type MembershipModel struct {
	RoomID   string    `gorm:"type:varchar(36);primaryKey"`
	UserID   string    `gorm:"type:varchar(36);primaryKey"`
	Role     string    `gorm:"type:varchar(10);not null;default:'member'"`
	JoinedAt time.Time `gorm:"not null;index"`
}

func (MembershipModel) TableName() string {
	return "memberships"
}

func (m *MembershipModel) ToDomain() *domain.Membership {
	return &domain.Membership{
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Role:     domain.PresenceRole(m.Role),
		JoinedAt: m.JoinedAt,
	}
}

func MembershipToModel(m *domain.Membership) *MembershipModel {
	return &MembershipModel{
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
}
