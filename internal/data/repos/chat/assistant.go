package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

type AssistantRepo interface {
	Create(dbc dbctx.Context, rows []*types.Assistant) ([]*types.Assistant, error)
	// GetByID loads the assistant with its language model and API service override.
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assistant, error)
}

type assistantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssistantRepo(db *gorm.DB, log *logger.Logger) AssistantRepo {
	return &assistantRepo{db: db, log: log.With("repo", "AssistantRepo")}
}

func (r *assistantRepo) Create(dbc dbctx.Context, rows []*types.Assistant) ([]*types.Assistant, error) {
	if len(rows) == 0 {
		return []*types.Assistant{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assistantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assistant, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing assistant id")
	}
	var out types.Assistant
	if err := dbc.DB(r.db).
		Preload("LanguageModel").
		Preload("APIService").
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
