package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	// GetAssistantByIndex returns (nil, nil) when no assistant message sits at
	// that position.
	GetAssistantByIndex(dbc dbctx.Context, conversationID uuid.UUID, version int, index int) (*types.Message, error)
	LatestForVersion(dbc dbctx.Context, conversationID uuid.UUID, version int) (*types.Message, error)
	ListHistory(dbc dbctx.Context, conversationID uuid.UUID, version int, beforeIndex int) ([]*types.Message, error)
	Claim(dbc dbctx.Context, in ClaimInput) (bool, error)
	ReleaseClaim(dbc dbctx.Context, id uuid.UUID) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ClaimInput describes the conditional update that marks a message as being
// generated. The claim only succeeds while the message is empty, not
// cancelled, not held by a live claim, and the assistant message before it
// is not itself mid-generation.
type ClaimInput struct {
	Message *types.Message
	Now     time.Time
	// Claims older than Lease are considered abandoned and may be taken over.
	Lease time.Duration
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing message id")
	}
	var out types.Message
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) GetAssistantByIndex(dbc dbctx.Context, conversationID uuid.UUID, version int, index int) (*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation id")
	}
	if index < 0 {
		return nil, nil
	}
	var out types.Message
	err := dbc.DB(r.db).
		Where("conversation_id = ? AND version = ? AND message_index = ? AND role = ?", conversationID, version, index, types.RoleAssistant).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) LatestForVersion(dbc dbctx.Context, conversationID uuid.UUID, version int) (*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation id")
	}
	var out types.Message
	err := dbc.DB(r.db).
		Where("conversation_id = ? AND version = ?", conversationID, version).
		Order("message_index DESC").
		Limit(1).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *messageRepo) ListHistory(dbc dbctx.Context, conversationID uuid.UUID, version int, beforeIndex int) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation id")
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Where("conversation_id = ? AND version = ? AND message_index < ?", conversationID, version, beforeIndex).
		Order("message_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) Claim(dbc dbctx.Context, in ClaimInput) (bool, error) {
	m := in.Message
	if m == nil || m.ID == uuid.Nil {
		return false, fmt.Errorf("missing message")
	}
	now := in.Now.UTC()
	staleBefore := now.Add(-in.Lease)

	res := dbc.DB(r.db).
		Model(&types.Message{}).
		Where("id = ? AND TRIM(content_text) = '' AND cancelled_at IS NULL", m.ID).
		Where("(processed_at IS NULL OR processed_at < ?)", staleBefore).
		Where(`NOT EXISTS (
			SELECT 1 FROM message prev
			WHERE prev.conversation_id = ?
			  AND prev.version = ?
			  AND prev.message_index = ?
			  AND prev.role = ?
			  AND prev.processed_at IS NOT NULL
			  AND prev.cancelled_at IS NULL
			  AND TRIM(prev.content_text) = ''
		)`, m.ConversationID, m.Version, m.Index-1, types.RoleAssistant).
		Updates(map[string]interface{}{
			"processed_at": now,
			"content_text": "",
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepo) ReleaseClaim(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing message id")
	}
	return dbc.DB(r.db).
		Model(&types.Message{}).
		Where("id = ? AND TRIM(content_text) = ''", id).
		Updates(map[string]interface{}{
			"processed_at": nil,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing message id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
