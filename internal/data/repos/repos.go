package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/data/repos/chat"
	"github.com/yungbote/replygen-backend/internal/data/repos/jobs"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

type UserRepo = chat.UserRepo
type AssistantRepo = chat.AssistantRepo
type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo
type MessageClaim = chat.ClaimInput

type JobRunRepo = jobs.JobRunRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return chat.NewUserRepo(db, baseLog) }
func NewAssistantRepo(db *gorm.DB, baseLog *logger.Logger) AssistantRepo {
	return chat.NewAssistantRepo(db, baseLog)
}
func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
