package db

import (
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/domain/jobs"
	// Registers the serializer behind credential columns.
	_ "github.com/yungbote/replygen-backend/internal/platform/secretbox"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&chat.User{},
		&chat.LanguageModel{},
		&chat.APIService{},
		&chat.Assistant{},
		&chat.Conversation{},
		&chat.Message{},

		&jobs.JobRun{},
	)
}
