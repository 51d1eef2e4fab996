package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns assistants and conversations and carries the provider keys used
// when an assistant has no APIService override.
type User struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;default:''" json:"name"`

	// Provider keys are sealed at rest by the "encrypted" serializer.
	OpenAIKey    string `gorm:"column:openai_key;type:text;serializer:encrypted;not null;default:''" json:"-"`
	AnthropicKey string `gorm:"column:anthropic_key;type:text;serializer:encrypted;not null;default:''" json:"-"`

	LastCancelledMessageID *uuid.UUID `gorm:"type:uuid;column:last_cancelled_message_id" json:"last_cancelled_message_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// KeyFor returns the user's stored key for a backend name ("OpenAI", "Anthropic").
func (u *User) KeyFor(backend string) string {
	if u == nil {
		return ""
	}
	switch strings.ToLower(backend) {
	case "openai":
		return strings.TrimSpace(u.OpenAIKey)
	case "anthropic":
		return strings.TrimSpace(u.AnthropicKey)
	default:
		return ""
	}
}
