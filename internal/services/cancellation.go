package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/data/repos/dberr"
	"github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

// CancellationService records a user's request to stop a reply. The durable
// cancelled_at column is authoritative; the coordination hint only lets a
// running generation notice sooner.
type CancellationService interface {
	CancelMessage(dbc dbctx.Context, userID, messageID uuid.UUID) (*chat.Message, error)
}

type cancellationService struct {
	db            *gorm.DB
	log           *logger.Logger
	users         repos.UserRepo
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	hints         redis.Hints
	now           func() time.Time
}

func NewCancellationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	conversations repos.ConversationRepo,
	messages repos.MessageRepo,
	store redis.CoordinationStore,
) CancellationService {
	return &cancellationService{
		db:            db,
		log:           baseLog.With("service", "CancellationService"),
		users:         users,
		conversations: conversations,
		messages:      messages,
		hints:         redis.Hints{Store: store},
		now:           time.Now,
	}
}

func (s *cancellationService) CancelMessage(dbc dbctx.Context, userID, messageID uuid.UUID) (*chat.Message, error) {
	if userID == uuid.Nil || messageID == uuid.Nil {
		return nil, ErrInvalid
	}
	msg, err := s.messages.GetByID(dbc, messageID)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.GetByID(dbc, msg.ConversationID)
	if dberr.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrNotFound
	}
	if msg.Role != chat.RoleAssistant {
		return nil, fmt.Errorf("%w: only assistant messages can be cancelled", ErrInvalid)
	}
	if msg.IsCancelled() {
		return msg, nil
	}

	now := s.now().UTC()
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.messages.UpdateFields(inner, msg.ID, map[string]interface{}{"cancelled_at": now}); err != nil {
			return err
		}
		return s.users.UpdateFields(inner, userID, map[string]interface{}{"last_cancelled_message_id": msg.ID})
	})
	if err != nil {
		return nil, err
	}
	msg.CancelledAt = &now

	if err := s.hints.MarkCancelled(dbc.Ctx, msg.ID); err != nil {
		s.log.Warn("cancel hint not published", "message_id", msg.ID, "error", err)
	}
	s.log.Info("message cancelled", "message_id", msg.ID, "conversation_id", msg.ConversationID)
	return msg, nil
}
