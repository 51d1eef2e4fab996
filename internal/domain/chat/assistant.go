package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LanguageModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description    string    `gorm:"column:description;not null;default:''" json:"description"`
	SupportsImages bool      `gorm:"column:supports_images;not null;default:false" json:"supports_images"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (LanguageModel) TableName() string { return "language_model" }

func (m *LanguageModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// APIService is a user-configured endpoint that overrides backend selection
// for the assistants pointing at it.
type APIService struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string    `gorm:"column:name;not null" json:"name"`
	Driver string    `gorm:"column:driver;not null" json:"driver"` // "openai" | "anthropic"
	URL    string    `gorm:"column:url;not null;default:''" json:"url"`
	Token  string    `gorm:"column:token;type:text;serializer:encrypted;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (APIService) TableName() string { return "api_service" }

func (s *APIService) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Assistant struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string    `gorm:"column:name;not null" json:"name"`

	LanguageModelID uuid.UUID      `gorm:"type:uuid;column:language_model_id;not null;index" json:"language_model_id"`
	LanguageModel   *LanguageModel `gorm:"foreignKey:LanguageModelID" json:"language_model,omitempty"`

	APIServiceID *uuid.UUID  `gorm:"type:uuid;column:api_service_id;index" json:"api_service_id,omitempty"`
	APIService   *APIService `gorm:"foreignKey:APIServiceID" json:"api_service,omitempty"`

	Instructions string   `gorm:"column:instructions;type:text;not null;default:''" json:"instructions"`
	Temperature  *float64 `gorm:"column:temperature" json:"temperature,omitempty"`
	MaxTokens    int      `gorm:"column:max_tokens;not null;default:0" json:"max_tokens"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Assistant) TableName() string { return "assistant" }

func (a *Assistant) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Model is the configured language model name, or "" when it was not loaded.
func (a *Assistant) Model() string {
	if a == nil || a.LanguageModel == nil {
		return ""
	}
	return a.LanguageModel.Name
}
