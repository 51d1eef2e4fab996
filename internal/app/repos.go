package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Assistant    repos.AssistantRepo
	Conversation repos.ConversationRepo
	Message      repos.MessageRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Assistant:    repos.NewAssistantRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
