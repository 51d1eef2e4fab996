package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation groups messages into versions (edit branches). UpdatedAt is
// bumped every time a reply finalizes so listings can sort by recency.
type Conversation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	AssistantID uuid.UUID `gorm:"type:uuid;not null;index" json:"assistant_id"`
	Title       string    `gorm:"column:title;not null;default:''" json:"title"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime;index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ConversationChannel is the realtime channel subscribers of this conversation listen on.
func ConversationChannel(id uuid.UUID) string {
	return "conversation:" + id.String()
}
