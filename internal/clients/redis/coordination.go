package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const cancelledMessageKey = "message-cancelled-id"

func latestAssistantKey(conversationID uuid.UUID) string {
	return fmt.Sprintf("conversation-%s-latest-assistant_message-id", conversationID)
}

// CoordinationStore is the shared key-value store generation runs use to
// publish cancellation and recency hints. Values are advisory: writes are
// unconditional, there is no TTL, and readers must tolerate stale data.
type CoordinationStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type redisStore struct {
	rdb goredis.UniversalClient
}

func NewCoordinationStore(rdb goredis.UniversalClient) CoordinationStore {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, key, value, 0).Err()
}

// Hints wraps a CoordinationStore with the two facts the generation
// pipeline shares: the last cancelled message and the newest assistant
// message per conversation.
type Hints struct {
	Store CoordinationStore
}

func (h Hints) MarkCancelled(ctx context.Context, messageID uuid.UUID) error {
	return h.Store.Set(ctx, cancelledMessageKey, messageID.String())
}

// CancelledMessageID returns uuid.Nil when nothing was recorded or the value is unreadable.
func (h Hints) CancelledMessageID(ctx context.Context) (uuid.UUID, error) {
	return h.getID(ctx, cancelledMessageKey)
}

func (h Hints) SetLatestAssistantMessage(ctx context.Context, conversationID, messageID uuid.UUID) error {
	return h.Store.Set(ctx, latestAssistantKey(conversationID), messageID.String())
}

func (h Hints) LatestAssistantMessageID(ctx context.Context, conversationID uuid.UUID) (uuid.UUID, error) {
	return h.getID(ctx, latestAssistantKey(conversationID))
}

func (h Hints) getID(ctx context.Context, key string) (uuid.UUID, error) {
	raw, ok, err := h.Store.Get(ctx, key)
	if err != nil || !ok {
		return uuid.Nil, err
	}
	id, perr := uuid.Parse(strings.TrimSpace(raw))
	if perr != nil {
		return uuid.Nil, nil
	}
	return id, nil
}
