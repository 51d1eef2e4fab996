package chat

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/replygen-backend/internal/clients/redis"
	"github.com/yungbote/replygen-backend/internal/data/repos"
	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
)

// StalenessChecker answers whether the run generating a message should stop:
// the message was cancelled, or a newer message superseded it.
type StalenessChecker interface {
	IsStale(ctx context.Context) bool
}

type stalenessChecker struct {
	messageID      uuid.UUID
	conversationID uuid.UUID
	version        int

	messages repos.MessageRepo
	hints    redis.Hints
	every    int
	log      *logger.Logger

	calls int
}

func newStalenessChecker(msg *types.Message, messages repos.MessageRepo, hints redis.Hints, every int, log *logger.Logger) *stalenessChecker {
	if every < 1 {
		every = 1
	}
	return &stalenessChecker{
		messageID:      msg.ID,
		conversationID: msg.ConversationID,
		version:        msg.Version,
		messages:       messages,
		hints:          hints,
		every:          every,
		log:            log,
	}
}

// IsStale is called once per chunk. The first call reads the durable store
// only. Later calls read the coordination hints and, every Nth call, the
// durable store again. Lookup errors count as not stale.
func (c *stalenessChecker) IsStale(ctx context.Context) bool {
	c.calls++
	if c.calls == 1 {
		return c.durable(ctx)
	}
	if c.hinted(ctx) {
		return true
	}
	if (c.calls-1)%c.every == 0 {
		return c.durable(ctx)
	}
	return false
}

func (c *stalenessChecker) durable(ctx context.Context) bool {
	dbc := dbctx.Background(ctx)
	cur, err := c.messages.GetByID(dbc, c.messageID)
	if err != nil {
		c.log.Warn("staleness check: message lookup failed", "message_id", c.messageID, "error", err)
		return false
	}
	if cur.IsCancelled() {
		return true
	}
	latest, err := c.messages.LatestForVersion(dbc, c.conversationID, c.version)
	if err != nil {
		c.log.Warn("staleness check: latest lookup failed", "message_id", c.messageID, "error", err)
		return false
	}
	return latest != nil && latest.ID != c.messageID
}

func (c *stalenessChecker) hinted(ctx context.Context) bool {
	if c.hints.Store == nil {
		return false
	}
	cancelled, err := c.hints.CancelledMessageID(ctx)
	if err != nil {
		c.log.Warn("staleness check: cancel hint unreadable", "message_id", c.messageID, "error", err)
	} else if cancelled == c.messageID {
		return true
	}
	latest, err := c.hints.LatestAssistantMessageID(ctx, c.conversationID)
	if err != nil {
		c.log.Warn("staleness check: latest hint unreadable", "message_id", c.messageID, "error", err)
		return false
	}
	return latest != uuid.Nil && latest != c.messageID
}
