package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/replygen-backend/internal/domain/chat"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, openAIKey, anthropicKey string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		Name:         "tester",
		OpenAIKey:    openAIKey,
		AnthropicKey: anthropicKey,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedAssistant creates an assistant bound to the named language model,
// creating the model row on first use.
func SeedAssistant(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, model string, svc *types.APIService) *types.Assistant {
	tb.Helper()
	var lm types.LanguageModel
	if err := tx.WithContext(ctx).Where("name = ?", model).FirstOrCreate(&lm, types.LanguageModel{Name: model}).Error; err != nil {
		tb.Fatalf("seed language model: %v", err)
	}
	a := &types.Assistant{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            "helper",
		LanguageModelID: lm.ID,
		Instructions:    "You are a helpful assistant.",
	}
	if svc != nil {
		svc.UserID = userID
		if err := tx.WithContext(ctx).Create(svc).Error; err != nil {
			tb.Fatalf("seed api service: %v", err)
		}
		a.APIServiceID = &svc.ID
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assistant: %v", err)
	}
	return a
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, assistantID uuid.UUID) *types.Conversation {
	tb.Helper()
	c := &types.Conversation{
		ID:          uuid.New(),
		UserID:      userID,
		AssistantID: assistantID,
		Title:       "chat",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

// MessageSeed describes one row for SeedMessage. Zero values mean an empty,
// unprocessed, uncancelled message on version 1.
type MessageSeed struct {
	Role        string
	Index       int
	Version     int
	Content     string
	AssistantID *uuid.UUID
	ProcessedAt *time.Time
	CancelledAt *time.Time
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, in MessageSeed) *types.Message {
	tb.Helper()
	if in.Version == 0 {
		in.Version = 1
	}
	if in.Role == "" {
		in.Role = types.RoleAssistant
	}
	m := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		AssistantID:    in.AssistantID,
		Role:           in.Role,
		Version:        in.Version,
		Index:          in.Index,
		ContentText:    in.Content,
		ProcessedAt:    in.ProcessedAt,
		CancelledAt:    in.CancelledAt,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func PtrTime(t time.Time) *time.Time { return &t }
