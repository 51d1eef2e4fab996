package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation version. Within a (conversation,
// version) pair Index is unique and dense.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_message_conv_version_index,priority:1" json:"conversation_id"`
	AssistantID    *uuid.UUID `gorm:"type:uuid;column:assistant_id;index" json:"assistant_id,omitempty"`

	Role    string `gorm:"column:role;not null;index" json:"role"`
	Version int    `gorm:"column:version;not null;default:1;uniqueIndex:idx_message_conv_version_index,priority:2" json:"version"`
	Index   int    `gorm:"column:message_index;not null;uniqueIndex:idx_message_conv_version_index,priority:3" json:"index"`

	ContentText string     `gorm:"column:content_text;type:text;not null;default:''" json:"content_text"`
	ProcessedAt *time.Time `gorm:"column:processed_at;index" json:"processed_at,omitempty"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string { return "message" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Message) IsCancelled() bool { return m != nil && m.CancelledAt != nil }

func (m *Message) IsProcessed() bool { return m != nil && m.ProcessedAt != nil }

// IsPopulated reports whether the message already has non-blank content.
func (m *Message) IsPopulated() bool {
	return m != nil && strings.TrimSpace(m.ContentText) != ""
}
